package bot

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"

	mlog "media-bot/internal/log"
	"media-bot/internal/metrics"
)

const (
	secretHeader   = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdateBytes = 1 << 20
)

// SecretPath is the URL path segment the webhook is served on. It is derived
// from the bot token so the token itself never appears in a URL.
func SecretPath(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// SecretToken is the value Telegram echoes in the secret-token header.
func SecretToken(token string) string {
	sum := sha256.Sum256([]byte("webhook-secret:" + token))
	return hex.EncodeToString(sum[:16])
}

// UpdateProcessor dispatches a decoded update to the registered handlers.
type UpdateProcessor interface {
	ProcessUpdate(u tele.Update)
}

// WebhookHandler receives updates pushed by Telegram.
//
// Undecodable updates are acknowledged with 200: Telegram redelivers on any
// other status and a malformed body will never decode on a later attempt.
type WebhookHandler struct {
	proc   UpdateProcessor
	secret string
	logger zerolog.Logger
}

func NewWebhookHandler(proc UpdateProcessor, secretToken string) *WebhookHandler {
	return &WebhookHandler{
		proc:   proc,
		secret: secretToken,
		logger: mlog.WithComponent("webhook"),
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		metrics.WebhookUpdates.WithLabelValues("bad_method").Inc()
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(secretHeader)), []byte(h.secret)) != 1 {
		metrics.WebhookUpdates.WithLabelValues("unauthorized").Inc()
		h.logger.Warn().Str(mlog.FieldEvent, "webhook.unauthorized").Msg("webhook request with invalid secret token")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var u tele.Update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUpdateBytes)).Decode(&u); err != nil {
		metrics.WebhookUpdates.WithLabelValues("malformed").Inc()
		h.logger.Warn().Err(err).Str(mlog.FieldEvent, "webhook.malformed").Msg("cannot decode update, acknowledging")
		w.WriteHeader(http.StatusOK)
		return
	}

	metrics.WebhookUpdates.WithLabelValues("ok").Inc()
	h.proc.ProcessUpdate(u)
	w.WriteHeader(http.StatusOK)
}
