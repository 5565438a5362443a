package bot

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
)

type recordingProcessor struct {
	mu      sync.Mutex
	updates []tele.Update
}

func (p *recordingProcessor) ProcessUpdate(u tele.Update) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, u)
}

const sampleUpdate = `{"update_id":17,"message":{"message_id":3,"date":1700000000,` +
	`"chat":{"id":42,"type":"private"},"text":"/download https://media.example/v mp4"}}`

func postUpdate(t *testing.T, h http.Handler, body, secret string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(secretHeader, secret)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookHandler_DispatchesUpdate(t *testing.T) {
	proc := &recordingProcessor{}
	h := NewWebhookHandler(proc, "s3cret")

	rec := postUpdate(t, h, sampleUpdate, "s3cret")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, proc.updates, 1)
	u := proc.updates[0]
	assert.Equal(t, 17, u.ID)
	require.NotNil(t, u.Message)
	assert.Equal(t, int64(42), u.Message.Chat.ID)
	assert.Equal(t, "/download https://media.example/v mp4", u.Message.Text)
}

func TestWebhookHandler_RejectsBadSecret(t *testing.T) {
	proc := &recordingProcessor{}
	h := NewWebhookHandler(proc, "s3cret")

	for _, secret := range []string{"", "wrong"} {
		rec := postUpdate(t, h, sampleUpdate, secret)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	assert.Empty(t, proc.updates)
}

func TestWebhookHandler_AcknowledgesMalformedBody(t *testing.T) {
	proc := &recordingProcessor{}
	h := NewWebhookHandler(proc, "s3cret")

	rec := postUpdate(t, h, `{"update_id":`, "s3cret")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, proc.updates)
}

func TestWebhookHandler_MethodNotAllowed(t *testing.T) {
	h := NewWebhookHandler(&recordingProcessor{}, "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hook", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestSecretDerivation(t *testing.T) {
	path := SecretPath("123:abc")
	assert.Len(t, path, 64)
	assert.NotContains(t, path, "123:abc")
	assert.Equal(t, path, SecretPath("123:abc"))
	assert.NotEqual(t, path, SecretPath("123:abd"))

	token := SecretToken("123:abc")
	assert.Len(t, token, 32)
	assert.NotEqual(t, path[:32], token)
}
