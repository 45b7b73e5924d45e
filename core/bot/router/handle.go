package router

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"log/slog"

	"github.com/nowkit/nowkit/core/bot"
	"github.com/nowkit/nowkit/core/bot/dialogue"
	"github.com/nowkit/nowkit/core/bot/parse"
	"github.com/nowkit/nowkit/core/bot/render"
	"github.com/nowkit/nowkit/core/logger"
)

// genericFail is the hardcoded last-resort notification when even the FAIL
// message table entry is missing.
const genericFail = "An unexpected error has occurred."

// Handle drives one complete turn: state load, route resolution, handler
// invocation, state persistence, and rendering. All failures are absorbed
// here; the returned payloads carry the user-facing notification, so the
// calling transport can always acknowledge the provider.
func (r *Router) Handle(ctx context.Context, m *bot.Message) []render.Payload {
	if m == nil {
		return nil
	}
	ctx = logger.WithTurnMeta(ctx, m.Username, m.ChatID)

	st := r.loadState(ctx, m.Username)

	templates, turnErr := r.turn(ctx, m, st)
	if turnErr != nil {
		templates = r.failureTemplates(ctx, turnErr)
	}

	r.saveState(ctx, m.Username, st)

	opts := render.Options{ChatID: m.ChatID}
	if m.ChatType == bot.ChatGroup {
		// When conversing in a group the bot always quotes the request.
		opts.ReplyTo = m.MessageID
	}
	return render.Render(templates, opts)
}

// turn resolves the route and invokes its handler.
func (r *Router) turn(ctx context.Context, m *bot.Message, st *dialogue.State) ([]render.Template, error) {
	route := m.Command
	if route == "" && st.Active() {
		route = st.Route
	}

	if strings.EqualFold(route, CancelKeyword) && st.Active() {
		st.Clear()
		logger.Info(ctx, "bot.router", "turn.cancel", slog.String("user", m.Username))
		return render.Text(r.messages["CANCELLED"]), nil
	}

	// A fresh command aborts whatever dialogue was pending.
	if m.Command != "" {
		st.Clear()
	}

	name := route
	if name == "" {
		name = RouteUndefined
	}
	rt, ok := r.routes[name]
	if !ok {
		rt = r.routes[RouteUndefined]
	}

	tc := &Context{
		Bot:      Identity{Username: r.botUser},
		Dialogue: st,
		Store:    r.store,
		Messages: r.messages,
	}

	logger.Debug(ctx, "bot.router", "turn.route",
		slog.String("route", name),
		slog.Bool("dialogue", st.Active()),
	)

	templates, err := rt.Handler(ctx, m, tc)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		if text := r.messages[strings.ToUpper(name)]; text != "" {
			templates = render.Text(text)
		}
	}
	return templates, nil
}

func (r *Router) loadState(ctx context.Context, user string) *dialogue.State {
	st := &dialogue.State{}
	raw, err := r.store.Get(ctx, r.botUser, user, stateKey)
	if err != nil {
		logger.Warn(ctx, "bot.router", "state.load",
			slog.String("user", user),
			slog.String("err", err.Error()),
		)
		return st
	}
	if raw == "" {
		return st
	}
	if err := json.Unmarshal([]byte(raw), st); err != nil {
		logger.Warn(ctx, "bot.router", "state.decode",
			slog.String("user", user),
			slog.String("err", err.Error()),
		)
		st.Clear()
	}
	return st
}

// saveState persists the (possibly cleared) dialogue state after every turn.
func (r *Router) saveState(ctx context.Context, user string, st *dialogue.State) {
	var value string
	if st.Active() {
		data, err := json.Marshal(st)
		if err != nil {
			logger.Error(ctx, "bot.router", "state.encode",
				slog.String("user", user),
				slog.String("err", err.Error()),
			)
			return
		}
		value = string(data)
	}
	if err := r.store.Save(ctx, r.botUser, user, stateKey, value); err != nil {
		logger.Error(ctx, "bot.router", "state.save",
			slog.String("user", user),
			slog.String("err", err.Error()),
		)
	}
}

// failureTemplates maps a turn failure to a best-effort user notification:
// the reason-keyed message first, then the app-wide FAIL entry, then a
// hardcoded generic.
func (r *Router) failureTemplates(ctx context.Context, err error) []render.Template {
	var perr *parse.Error
	if errors.As(err, &perr) {
		logger.Info(ctx, "bot.router", "turn.parse_fail",
			slog.String("field", perr.Field),
			slog.String("reason", perr.Reason),
		)
		if text := r.messages[strings.ToUpper(perr.Reason)]; text != "" {
			return render.Text(text)
		}
		return r.failText()
	}

	var cfg *dialogue.ConfigError
	if errors.As(err, &cfg) {
		logger.Error(ctx, "bot.router", "turn.config_error",
			slog.String("route", cfg.Route),
			slog.String("err", cfg.Error()),
		)
		return r.failText()
	}

	logger.Error(ctx, "bot.router", "turn.fail", slog.String("err", err.Error()))
	return r.failText()
}

func (r *Router) failText() []render.Template {
	if text := r.messages["FAIL"]; text != "" {
		return render.Text(text)
	}
	return render.Text(genericFail)
}
