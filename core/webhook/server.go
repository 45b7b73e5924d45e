// Package webhook exposes the bot behind a single HTTP endpoint and drives
// one router turn per inbound update.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"log/slog"

	"github.com/nowkit/nowkit/core/bot"
	"github.com/nowkit/nowkit/core/bot/render"
	"github.com/nowkit/nowkit/core/bot/router"
	"github.com/nowkit/nowkit/core/logger"
	"github.com/nowkit/nowkit/core/sender"
)

// Deliverer sends rendered payloads to the messaging provider.
type Deliverer interface {
	Send(ctx context.Context, payloads []render.Payload) []sender.Result
}

// Server binds the router and the delivery transport to an HTTP endpoint.
type Server struct {
	router  *router.Router
	deliver Deliverer
	path    string
}

// New builds a webhook server. path is the POST endpoint the provider calls.
func New(rt *router.Router, d Deliverer, path string) *Server {
	if path == "" {
		path = "/webhook"
	}
	return &Server{router: rt, deliver: d, path: path}
}

// Handler returns the HTTP handler tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post(s.path, s.handleUpdate)

	return r
}

// handleUpdate processes one update end to end. The provider is always
// acknowledged with 200, no matter what happened inside the turn; a turn
// failure must never surface as a webhook error and trigger redelivery.
func (s *Server) handleUpdate(w http.ResponseWriter, req *http.Request) {
	ctx := logger.WithRID(req.Context(), uuid.NewString())

	defer func() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}()

	var u bot.Update
	if err := json.NewDecoder(req.Body).Decode(&u); err != nil {
		logger.Warn(ctx, "webhook", "update.decode", slog.String("err", err.Error()))
		return
	}

	m, err := bot.Normalize(&u)
	if err != nil {
		if errors.Is(err, bot.ErrUnroutable) {
			logger.Warn(ctx, "webhook", "update.unroutable",
				slog.Int("update_id", u.UpdateID),
			)
			return
		}
		logger.Error(ctx, "webhook", "update.normalize", slog.String("err", err.Error()))
		return
	}

	start := time.Now()
	payloads := s.router.Handle(ctx, m)
	s.deliver.Send(ctx, payloads)

	logger.Info(ctx, "webhook", "turn.done",
		slog.Int("update_id", u.UpdateID),
		slog.String("user", m.Username),
		slog.Int("payloads", len(payloads)),
		slog.Duration("duration", time.Since(start)),
	)
}

// Run serves the handler until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, listen string, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", listen, port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "webhook", "listen", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook shutdown: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}
