package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/middleware"

	"media-bot/internal/config"
	mlog "media-bot/internal/log"
)

// Settings selects how updates reach the bot.
type Settings struct {
	Token        string
	Mode         string // config.ModePolling or config.ModeWebhook
	PollTimeout  time.Duration
	PublicURL    string // webhook mode: externally reachable base URL
	AllowedChats []int64
}

// Bot couples the telebot instance with its delivery transport.
type Bot struct {
	*tele.Bot
	settings Settings
	logger   zerolog.Logger
}

// New creates the telebot instance. In webhook mode no poller runs; updates
// arrive through WebhookHandler.
func New(s Settings) (*Bot, error) {
	pref := tele.Settings{Token: s.Token}
	if s.Mode == config.ModePolling {
		pref.Poller = &tele.LongPoller{Timeout: s.PollTimeout}
	}
	return newBot(pref, s)
}

func newBot(pref tele.Settings, s Settings) (*Bot, error) {
	logger := mlog.WithComponent("bot")

	pref.OnError = func(err error, c tele.Context) {
		ev := logger.Error().Err(err).Str(mlog.FieldEvent, "bot.handler_error")
		if c != nil && c.Chat() != nil {
			ev = ev.Int64(mlog.FieldChatID, c.Chat().ID)
		}
		ev.Msg("handler error")
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}

	b.Use(middleware.Recover(func(err error, c tele.Context) {
		ev := logger.Error().Err(err).Str(mlog.FieldEvent, "bot.panic")
		if c != nil && c.Chat() != nil {
			ev = ev.Int64(mlog.FieldChatID, c.Chat().ID)
		}
		ev.Msg("handler panicked")
	}))
	if len(s.AllowedChats) > 0 {
		b.Use(allowChats(s.AllowedChats, logger))
	}
	b.Use(logCommands(logger))

	return &Bot{Bot: b, settings: s, logger: logger}, nil
}

// HTTPHandler returns the webhook endpoint handler for webhook mode.
func (b *Bot) HTTPHandler() *WebhookHandler {
	return NewWebhookHandler(b.Bot, SecretToken(b.settings.Token))
}

// Run delivers updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	switch b.settings.Mode {
	case config.ModeWebhook:
		endpoint := b.settings.PublicURL + "/" + SecretPath(b.settings.Token)
		err := b.SetWebhook(&tele.Webhook{
			Endpoint:       &tele.WebhookEndpoint{PublicURL: endpoint},
			SecretToken:    SecretToken(b.settings.Token),
			AllowedUpdates: []string{"message"},
		})
		if err != nil {
			return fmt.Errorf("registering webhook: %w", err)
		}
		b.logger.Info().Str(mlog.FieldEvent, "bot.started").Str("transport", "webhook").Msg("bot is running")
		<-ctx.Done()
		return nil

	case config.ModePolling:
		if err := b.RemoveWebhook(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to remove webhook before polling")
		}
		done := make(chan struct{})
		go func() {
			defer close(done)
			b.Start()
		}()
		b.logger.Info().Str(mlog.FieldEvent, "bot.started").Str("transport", "polling").Msg("bot is running")
		<-ctx.Done()
		b.Stop()
		<-done
		return nil

	default:
		return errors.New("unknown telegram mode " + b.settings.Mode)
	}
}

func logCommands(logger zerolog.Logger) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if msg := c.Message(); msg != nil && msg.Chat != nil {
				ev := logger.Debug().
					Str(mlog.FieldEvent, "bot.command").
					Int64(mlog.FieldChatID, msg.Chat.ID).
					Str("text", msg.Text)
				if c.Sender() != nil {
					ev = ev.Int64("user_id", c.Sender().ID)
				}
				ev.Msg("command received")
			}
			return next(c)
		}
	}
}

// allowChats drops updates whose chat is not listed. It matches the chat, not
// the sender, so a listed group serves all its members and a listed user gets
// no access to unlisted groups.
func allowChats(ids []int64, logger zerolog.Logger) tele.MiddlewareFunc {
	allowed := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil {
				return nil
			}
			if _, ok := allowed[chat.ID]; !ok {
				logger.Debug().
					Str(mlog.FieldEvent, "bot.chat_denied").
					Int64(mlog.FieldChatID, chat.ID).
					Msg("update from chat not in allowed_chats")
				return nil
			}
			return next(c)
		}
	}
}
