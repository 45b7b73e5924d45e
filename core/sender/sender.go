// Package sender delivers rendered payloads to the messaging provider over
// its HTTP Bot API.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/nowkit/nowkit/core/bot/render"
	"github.com/nowkit/nowkit/core/logger"
)

// Client wraps an offline provider session: no polling, outbound calls only.
type Client struct {
	bot *tele.Bot
	log *slog.Logger
}

// Options configure the client.
type Options struct {
	// APIURL overrides the provider endpoint, mainly for tests.
	APIURL string
}

// New builds a delivery client for the given bot token.
func New(token string, opts Options) (*Client, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:   token,
		URL:     opts.APIURL,
		Offline: true,
		Client:  BuildHTTPClient(),
	})
	if err != nil {
		return nil, fmt.Errorf("sender: session init: %w", err)
	}
	return &Client{bot: b, log: logger.Component("sender")}, nil
}

// Result is the outcome of one payload delivery.
type Result struct {
	Method string
	OK     bool
	Err    error
}

// Send delivers payloads strictly in order. Each delivery is issued before
// the next is attempted so conversation ordering is preserved. A transient
// network failure gets one immediate retry; a provider rejection is logged
// and does not abort the remaining fragments.
func (c *Client) Send(ctx context.Context, payloads []render.Payload) []Result {
	results := make([]Result, 0, len(payloads))
	for _, p := range payloads {
		err := c.deliver(ctx, p)
		if err != nil && shouldRetry(err) {
			logger.Warn(ctx, "sender", "send.retry",
				slog.String("method", p.Method),
				slog.String("err", err.Error()),
			)
			err = c.deliver(ctx, p)
		}
		if err != nil {
			logger.Error(ctx, "sender", "send.fail",
				slog.String("method", p.Method),
				slog.Int64("chat_id", p.ChatID),
				slog.String("err", describeAPIError(err)),
			)
		}
		results = append(results, Result{Method: p.Method, OK: err == nil, Err: err})
	}
	return results
}

func (c *Client) deliver(ctx context.Context, p render.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.bot.Raw(p.Method, p)
	return err
}

// SetWebhook registers the public webhook URL with the provider.
func (c *Client) SetWebhook(ctx context.Context, publicURL string) error {
	_, err := c.bot.Raw("setWebhook", map[string]string{"url": publicURL})
	if err != nil {
		return fmt.Errorf("sender: setWebhook: %w", err)
	}
	logger.Info(ctx, "sender", "webhook.set", slog.String("url", publicURL))
	return nil
}

// DeleteWebhook unregisters the webhook binding.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	_, err := c.bot.Raw("deleteWebhook", map[string]bool{"drop_pending_updates": false})
	if err != nil {
		return fmt.Errorf("sender: deleteWebhook: %w", err)
	}
	logger.Info(ctx, "sender", "webhook.delete")
	return nil
}

// describeAPIError surfaces the provider's error code and description when
// the failure was an API rejection rather than a network error.
func describeAPIError(err error) string {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%d: %s", apiErr.Code, apiErr.Description)
	}
	return err.Error()
}
