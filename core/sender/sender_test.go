package sender

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nowkit/nowkit/core/bot/render"
)

// fakeAPI records every Bot API call in arrival order.
type fakeAPI struct {
	mu    sync.Mutex
	calls []apiCall
	// reject maps a method name to an error response.
	reject map[string]int
}

type apiCall struct {
	Path string
	Body map[string]any
}

func (f *fakeAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(data, &body)

		f.mu.Lock()
		f.calls = append(f.calls, apiCall{Path: r.URL.Path, Body: body})
		code, rejected := 0, false
		for method, c := range f.reject {
			if r.URL.Path == "/bottest-token/"+method {
				code, rejected = c, true
			}
		}
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if rejected {
			w.WriteHeader(code)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	})
}

func (f *fakeAPI) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Path
	}
	return out
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	c, err := New("test-token", Options{APIURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestSendPreservesOrder(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	payloads := []render.Payload{
		{Method: render.MethodSendMessage, ChatID: 1, Text: "first"},
		{Method: render.MethodSendPhoto, ChatID: 1, Photo: "http://x/y.png"},
		{Method: render.MethodSendMessage, ChatID: 1, Text: "last"},
	}

	results := c.Send(context.Background(), payloads)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.OK)
		assert.NoError(t, r.Err)
	}

	assert.Equal(t, []string{
		"/bottest-token/sendMessage",
		"/bottest-token/sendPhoto",
		"/bottest-token/sendMessage",
	}, api.paths())
}

func TestSendCarriesPayloadFields(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	c.Send(context.Background(), []render.Payload{{
		Method:    render.MethodSendMessage,
		ChatID:    42,
		Text:      "hello",
		ParseMode: "Markdown",
		ReplyTo:   7,
	}})

	require.Len(t, api.calls, 1)
	body := api.calls[0].Body
	assert.Equal(t, float64(42), body["chat_id"])
	assert.Equal(t, "hello", body["text"])
	assert.Equal(t, "Markdown", body["parse_mode"])
	assert.Equal(t, float64(7), body["reply_to_message_id"])
}

func TestSendRejectionDoesNotAbortRemaining(t *testing.T) {
	api := &fakeAPI{reject: map[string]int{"sendPhoto": http.StatusBadRequest}}
	c := newTestClient(t, api)

	payloads := []render.Payload{
		{Method: render.MethodSendPhoto, ChatID: 1, Photo: "bad"},
		{Method: render.MethodSendMessage, ChatID: 1, Text: "still sent"},
	}

	results := c.Send(context.Background(), payloads)
	require.Len(t, results, 2)
	assert.False(t, results[0].OK)
	assert.Error(t, results[0].Err)
	assert.True(t, results[1].OK)
}

func TestSendStopsOnCancelledContext(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := c.Send(ctx, []render.Payload{{Method: render.MethodSendMessage, ChatID: 1, Text: "x"}})
	require.Len(t, results, 1)
	assert.False(t, results[0].OK)
	assert.Empty(t, api.paths(), "no request once the context is gone")
}

func TestSetWebhook(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	require.NoError(t, c.SetWebhook(context.Background(), "https://bot.example.com/webhook"))
	require.Len(t, api.calls, 1)
	assert.Equal(t, "/bottest-token/setWebhook", api.calls[0].Path)
	assert.Equal(t, "https://bot.example.com/webhook", api.calls[0].Body["url"])
}

func TestDeleteWebhook(t *testing.T) {
	api := &fakeAPI{}
	c := newTestClient(t, api)

	require.NoError(t, c.DeleteWebhook(context.Background()))
	require.Len(t, api.calls, 1)
	assert.Equal(t, "/bottest-token/deleteWebhook", api.calls[0].Path)
}
