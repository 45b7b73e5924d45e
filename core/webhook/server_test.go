package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nowkit/nowkit/core/bot"
	"github.com/nowkit/nowkit/core/bot/render"
	"github.com/nowkit/nowkit/core/bot/router"
	"github.com/nowkit/nowkit/core/sender"
)

// captureDeliverer records rendered payloads instead of calling the provider.
type captureDeliverer struct {
	mu       sync.Mutex
	payloads []render.Payload
}

func (c *captureDeliverer) Send(_ context.Context, payloads []render.Payload) []sender.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payloads...)
	results := make([]sender.Result, len(payloads))
	for i, p := range payloads {
		results[i] = sender.Result{Method: p.Method, OK: true}
	}
	return results
}

func newTestServer(t *testing.T) (*httptest.Server, *captureDeliverer) {
	t.Helper()

	rt := router.New(router.Options{BotUsername: "test_bot"})
	rt.MustRegister("ping", router.Route{
		Description: "check that the server is alive",
		Handler: func(context.Context, *bot.Message, *router.Context) ([]render.Template, error) {
			return render.Text("pong!"), nil
		},
	})

	capture := &captureDeliverer{}
	srv := httptest.NewServer(New(rt, capture, "/webhook").Handler())
	t.Cleanup(srv.Close)
	return srv, capture
}

func postUpdate(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

const pingUpdate = `{
	"update_id": 1,
	"message": {
		"message_id": 10,
		"text": "/ping",
		"chat": {"id": 55, "type": "private"},
		"from": {"username": "ziggy", "first_name": "Ziggy"}
	}
}`

func TestWebhookDeliversTurnResponse(t *testing.T) {
	srv, capture := newTestServer(t)

	resp := postUpdate(t, srv, pingUpdate)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, capture.payloads, 1)
	assert.Equal(t, "pong!", capture.payloads[0].Text)
	assert.Equal(t, int64(55), capture.payloads[0].ChatID)
}

func TestWebhookAcknowledgesMalformedBody(t *testing.T) {
	srv, capture := newTestServer(t)

	resp := postUpdate(t, srv, `{not json at all`)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "the provider must never see a failure")
	assert.Empty(t, capture.payloads)
}

func TestWebhookAcknowledgesMessagelessUpdate(t *testing.T) {
	srv, capture := newTestServer(t)

	resp := postUpdate(t, srv, `{"update_id": 2}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, capture.payloads)
}

func TestWebhookHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebhookUnknownPathIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
