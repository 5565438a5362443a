// Package bot wires the Telegram commands to the mode resolver, the download
// invoker and the worker pool.
package bot

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"

	"media-bot/internal/download"
	mlog "media-bot/internal/log"
	"media-bot/internal/metrics"
	"media-bot/internal/mode"
	"media-bot/internal/ratelimit"
	"media-bot/internal/worker"
)

const usageText = "Usage: /download <url> <mode>"

// Messenger is the part of *tele.Bot the download jobs talk to.
type Messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
}

// Fetcher produces a file for a URL and a preset.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, p mode.Preset) (*download.Artifact, error)
}

// Options configures a Handler. Messenger, Fetcher and Pool are required.
type Options struct {
	Messenger Messenger
	Fetcher   Fetcher
	Pool      *worker.Pool
	Limiter   *ratelimit.PerChat
	MaxSize   int64

	// BaseContext is the parent of every job context. Cancelling it aborts
	// running downloads; it defaults to context.Background().
	BaseContext context.Context
}

// Handler serves /start, /help, /modes and /download.
type Handler struct {
	msgr    Messenger
	fetcher Fetcher
	pool    *worker.Pool
	limiter *ratelimit.PerChat
	maxSize int64
	baseCtx context.Context
	logger  zerolog.Logger
}

func NewHandler(opts Options) *Handler {
	ctx := opts.BaseContext
	if ctx == nil {
		ctx = context.Background()
	}
	return &Handler{
		msgr:    opts.Messenger,
		fetcher: opts.Fetcher,
		pool:    opts.Pool,
		limiter: opts.Limiter,
		maxSize: opts.MaxSize,
		baseCtx: ctx,
		logger:  mlog.WithComponent("bot"),
	}
}

// Register installs the command handlers on b.
func (h *Handler) Register(b *tele.Bot) {
	b.Handle("/start", h.OnStart)
	b.Handle("/help", h.OnStart)
	b.Handle("/modes", h.OnModes)
	b.Handle("/download", h.OnDownload)
}

// OnStart replies with the help text.
func (h *Handler) OnStart(c tele.Context) error {
	return c.Send(HelpText(), tele.ModeHTML)
}

// OnModes replies with the bare list of mode tokens.
func (h *Handler) OnModes(c tele.Context) error {
	return c.Send("Available modes: " + mode.Tokens(", "))
}

// HelpText lists every mode grouped by kind.
func HelpText() string {
	var audio, video strings.Builder
	for _, p := range mode.All() {
		line := fmt.Sprintf(" - /download %s %s → %s\n",
			html.EscapeString("<url>"), p.Mode, html.EscapeString(p.Label))
		if p.Kind == mode.KindAudio {
			audio.WriteString(line)
		} else {
			video.WriteString(line)
		}
	}
	return "🎵 <b>Audio options:</b>\n" + audio.String() +
		"\n🎬 <b>Video options:</b>\n" + video.String()
}

// OnDownload validates the command and hands the download to the pool. It
// returns before the download starts.
func (h *Handler) OnDownload(c tele.Context) error {
	args := c.Args()
	if len(args) < 2 {
		metrics.IncRejected("usage")
		return c.Send(usageText)
	}
	rawURL, token := args[0], args[1]

	if !download.IsHTTPURL(rawURL) {
		metrics.IncRejected("invalid_url")
		return c.Send("❌ Not a valid http(s) URL.\n" + usageText)
	}

	p, err := mode.Resolve(token)
	if err != nil {
		metrics.IncRejected(metrics.ResultInvalidMode)
		return c.Send(fmt.Sprintf("❌ Unknown mode %q. Available modes: %s", token, mode.Tokens(", ")))
	}

	chat := c.Chat()
	if chat == nil {
		return nil
	}
	if !h.limiter.Allow(chat.ID) {
		metrics.IncRejected("rate_limited")
		return c.Send("⏳ Too many downloads, try again in a minute.")
	}

	status, err := h.msgr.Send(chat, fmt.Sprintf("⬇️ Downloading in %s...", p.Mode))
	if err != nil {
		return fmt.Errorf("sending status message: %w", err)
	}

	jobID := uuid.NewString()
	ctx := mlog.ContextWithJobID(h.baseCtx, jobID)
	ctx = mlog.ContextWithChatID(ctx, chat.ID)
	req := request{chat: chat, status: status, url: rawURL, preset: p}

	logger := mlog.WithContext(ctx, h.logger)
	logger.Info().
		Str(mlog.FieldEvent, "download.queued").
		Str(mlog.FieldMode, string(p.Mode)).
		Str(mlog.FieldURL, rawURL).
		Msg("download queued")

	if err := h.pool.Submit(ctx, func(ctx context.Context) { h.process(ctx, req) }); err != nil {
		h.fail(ctx, req, "❌ The bot is shutting down, try again later.")
	}
	return nil
}

type request struct {
	chat   *tele.Chat
	status *tele.Message
	url    string
	preset mode.Preset
}

// process runs on a worker: download, size check, upload, cleanup.
func (h *Handler) process(ctx context.Context, req request) {
	modeLabel := string(req.preset.Mode)
	logger := mlog.WithContext(ctx, h.logger).With().Str(mlog.FieldMode, modeLabel).Logger()

	start := time.Now()
	art, err := h.fetcher.Fetch(ctx, req.url, req.preset)
	metrics.DownloadDuration.WithLabelValues(modeLabel).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ObserveDownload(modeLabel, metrics.ResultFailed)
		h.fail(ctx, req, "❌ Error: "+err.Error())
		return
	}
	defer func() {
		if err := art.Remove(); err != nil {
			logger.Warn().Err(err).Str(mlog.FieldPath, art.Path).Msg("failed to remove artifact")
		}
	}()

	if err := download.CheckSize(art, h.maxSize); err != nil {
		metrics.ObserveDownload(modeLabel, metrics.ResultTooLarge)
		logger.Info().
			Str(mlog.FieldEvent, "delivery.skipped").
			Int64(mlog.FieldBytes, art.Size).
			Msg("artifact exceeds upload ceiling")
		h.fail(ctx, req, "❌ "+err.Error())
		return
	}

	h.edit(ctx, req.status, "📤 Uploading...")
	if _, err := h.msgr.Send(req.chat, attachment(art, req.preset)); err != nil {
		metrics.ObserveDownload(modeLabel, metrics.ResultSendFailed)
		logger.Warn().Err(err).Str(mlog.FieldEvent, "delivery.failed").Msg("upload failed")
		h.fail(ctx, req, "❌ Upload failed: "+err.Error())
		return
	}

	metrics.ObserveDownload(modeLabel, metrics.ResultOK)
	metrics.DeliveredBytes.WithLabelValues(modeLabel).Add(float64(art.Size))
	logger.Info().
		Str(mlog.FieldEvent, "delivery.completed").
		Int64(mlog.FieldBytes, art.Size).
		Dur("duration", time.Since(start)).
		Msg("file delivered")

	if req.status != nil {
		if err := h.msgr.Delete(req.status); err != nil {
			logger.Debug().Err(err).Msg("failed to delete status message")
		}
	}
}

// fail reports text to the user, replacing the status message when there is
// one.
func (h *Handler) fail(ctx context.Context, req request, text string) {
	if req.status != nil {
		if _, err := h.msgr.Edit(req.status, text); err == nil {
			return
		}
	}
	if _, err := h.msgr.Send(req.chat, text); err != nil {
		logger := mlog.WithContext(ctx, h.logger)
		logger.Warn().Err(err).Msg("failed to report error to chat")
	}
}

func (h *Handler) edit(ctx context.Context, msg *tele.Message, text string) {
	if msg == nil {
		return
	}
	if _, err := h.msgr.Edit(msg, text); err != nil {
		logger := mlog.WithContext(ctx, h.logger)
		logger.Debug().Err(err).Msg("failed to edit status message")
	}
}
