// Package router maps inbound messages to command handlers or dialogue
// continuations and owns the turn lifecycle around the external state store.
package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/nowkit/nowkit/core/bot"
	"github.com/nowkit/nowkit/core/bot/dialogue"
	"github.com/nowkit/nowkit/core/bot/render"
	"github.com/nowkit/nowkit/core/buildinfo"
	"github.com/nowkit/nowkit/core/state"
)

// Reserved route names.
const (
	RouteStart     = "start"
	RouteUndefined = "undefined"
	RouteHelp      = "help"
	RouteVersion   = "version"

	// CancelKeyword aborts an active dialogue, case-insensitively.
	CancelKeyword = "cancel"
)

// stateKey is the store key under which dialogue state is persisted.
const stateKey = "dialogue"

// Default message table. Callers override entries via Options.Messages.
var defaultMessages = map[string]string{
	"START":     "Welcome.  Your wish is my command.",
	"UNDEFINED": "You have typed an unsupported command.  Please refer to /help and try again.",
	"FAIL":      "An unexpected error has occurred.  The bot owner has been notified.",
	"CANCELLED": "Your session has been cancelled.",
}

// Context exposes per-turn collaborators to handlers.
type Context struct {
	// Bot identifies the application; it keys persisted state.
	Bot Identity
	// Dialogue is the user's current dialogue state. Mutations are persisted
	// after the turn.
	Dialogue *dialogue.State
	// Store is the external state store, for handlers with their own keys.
	Store state.Store
	// Messages is the merged message table.
	Messages map[string]string
}

// Identity names the bot application.
type Identity struct {
	Username string
}

// Handler processes one inbound message and returns response templates. An
// empty result falls back to the route's default message.
type Handler func(ctx context.Context, m *bot.Message, tc *Context) ([]render.Template, error)

// Route is a typed record binding a handler to a command name.
type Route struct {
	Handler Handler
	// Description feeds the generated /help index.
	Description string
	// Hidden routes are omitted from /help.
	Hidden bool
}

// Options configure a Router.
type Options struct {
	BotUsername string
	// Store holds dialogue state between turns. Nil selects the in-memory
	// store.
	Store state.Store
	// Messages override and extend the default message table.
	Messages map[string]string
	// HelpTemplate optionally wraps the generated command index; it may
	// carry a %{help} placeholder.
	HelpTemplate string
}

// Router resolves inbound messages to routes and drives turns end to end.
type Router struct {
	routes       map[string]Route
	messages     map[string]string
	store        state.Store
	botUser      string
	helpTemplate string
}

// New builds a Router. The reserved start/undefined/help/version routes are
// provided with default behaviour and may be replaced via Register.
func New(opts Options) *Router {
	st := opts.Store
	if st == nil {
		st = state.NewMemoryStore()
	}

	messages := make(map[string]string, len(defaultMessages)+len(opts.Messages))
	for k, v := range defaultMessages {
		messages[k] = v
	}
	for k, v := range opts.Messages {
		messages[strings.ToUpper(k)] = v
	}

	r := &Router{
		routes:       make(map[string]Route),
		messages:     messages,
		store:        st,
		botUser:      opts.BotUsername,
		helpTemplate: opts.HelpTemplate,
	}

	r.routes[RouteStart] = Route{
		Handler:     func(context.Context, *bot.Message, *Context) ([]render.Template, error) { return nil, nil },
		Description: "begin a session with the bot",
	}
	r.routes[RouteUndefined] = Route{
		Handler: func(_ context.Context, _ *bot.Message, tc *Context) ([]render.Template, error) {
			return render.Text(tc.Messages["UNDEFINED"]), nil
		},
		Hidden: true,
	}
	r.routes[RouteHelp] = Route{
		Handler: func(ctx context.Context, m *bot.Message, tc *Context) ([]render.Template, error) {
			return render.Text(r.Help()), nil
		},
		Description: "list the commands I understand",
	}
	r.routes[RouteVersion] = Route{
		Handler: func(context.Context, *bot.Message, *Context) ([]render.Template, error) {
			return render.Text(buildinfo.Version), nil
		},
		Hidden: true,
	}

	return r
}

// Register binds a route record to a command name, replacing any default.
// Registration fails fast on malformed records so configuration defects
// surface at startup, not at request time.
func (r *Router) Register(name string, route Route) error {
	name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "/")))
	if name == "" {
		return fmt.Errorf("router: empty route name")
	}
	if route.Handler == nil {
		return fmt.Errorf("router: route %q has no handler", name)
	}
	if _, reserved := defaultRouteNames[name]; !reserved {
		if _, exists := r.routes[name]; exists {
			return fmt.Errorf("router: route %q already registered", name)
		}
	}
	r.routes[name] = route
	return nil
}

var defaultRouteNames = map[string]struct{}{
	RouteStart:     {},
	RouteUndefined: {},
	RouteHelp:      {},
	RouteVersion:   {},
}

// MustRegister is Register for wiring code that treats failures as fatal.
func (r *Router) MustRegister(name string, route Route) {
	if err := r.Register(name, route); err != nil {
		panic(err)
	}
}

// Message returns the message table entry for a key, or "".
func (r *Router) Message(key string) string {
	return r.messages[strings.ToUpper(key)]
}

// Messages exposes the merged message table (for dialogue handlers).
func (r *Router) Messages() map[string]string {
	return r.messages
}

// Dialogue adapts a step list into a route handler bound to this router's
// message table.
func (r *Router) Dialogue(steps []dialogue.Step) Handler {
	return func(ctx context.Context, m *bot.Message, tc *Context) ([]render.Template, error) {
		res, err := dialogue.Advance(ctx, m, steps, tc.Dialogue, dialogue.Options{
			Messages: r.messages,
		})
		if err != nil {
			return nil, err
		}
		return res.Templates, nil
	}
}
