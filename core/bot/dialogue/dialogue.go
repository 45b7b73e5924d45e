// Package dialogue implements the multi-turn conversation state machine: per
// step field parsing, post-processing, skip chains, and next-step dispatch.
package dialogue

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/nowkit/nowkit/core/bot"
	"github.com/nowkit/nowkit/core/bot/parse"
	"github.com/nowkit/nowkit/core/bot/render"
)

// ConfigError marks a route-table defect (missing template, bad step wiring).
// It is fatal for the turn and must be fixed by the developer, never retried.
type ConfigError struct {
	Route  string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("dialogue %q: %s", e.Route, e.Detail)
}

// Response is one completed step's outcome.
type Response struct {
	Step  string      `json:"step"`
	Value parse.Value `json:"value"`
}

// State is the persisted per-user dialogue position. An empty Route means no
// dialogue is in progress.
type State struct {
	Route     string     `json:"route"`
	Next      int        `json:"next"`
	Responses []Response `json:"responses,omitempty"`
}

// Active reports whether a dialogue is in progress.
func (s *State) Active() bool { return s != nil && s.Route != "" }

// Clear resets the state, signalling completion to the router.
func (s *State) Clear() { *s = State{} }

// PostFunc transforms a parsed value given the responses accumulated so far.
// Returning a non-zero Value replaces the parsed one.
type PostFunc func(ctx context.Context, v parse.Value, responses []Response) (parse.Value, error)

// SkipFunc decides whether the step's slot is already satisfied by the value.
type SkipFunc func(v parse.Value) bool

// Step is one stage of a dialogue.
type Step struct {
	Name string
	// Parse tokenizes and validates the user's answer. With no fields
	// declared the whole message text is taken as a scalar value.
	Parse parse.Descriptor
	Post  PostFunc
	Skip  SkipFunc
	Next  Next
	// Choices are offered with this step's prompt and rendered as a reply
	// keyboard.
	Choices []render.Choice
}

// Options configure one engine invocation.
type Options struct {
	// Route scopes template keys and parse-failure reasons. Defaults to the
	// command that started the dialogue.
	Route string
	// Messages maps ROUTE_STEPNAME keys to response templates. When nil the
	// engine returns the raw step response and rendering is the caller's
	// responsibility.
	Messages map[string]string
}

// Result is what one turn of the engine produces.
type Result struct {
	// Templates is the rendered response when a message table was supplied.
	Templates []render.Template
	// Raw is the bare {step, value} pair when no message table was supplied.
	Raw *Response
	// Done reports that no further steps remain and the state was cleared.
	Done bool
}

// Advance drives the state machine by one turn. On a parse failure the state
// is left exactly as it was, so the user may retry the same step.
func Advance(ctx context.Context, m *bot.Message, steps []Step, st *State, opts Options) (*Result, error) {
	if len(steps) == 0 {
		return nil, &ConfigError{Route: opts.Route, Detail: "no steps declared"}
	}

	route := opts.Route
	if route == "" {
		if m.Command != "" {
			route = m.Command
		} else {
			route = st.Route
		}
	}

	if m.Command != "" {
		return start(m.Command, route, steps, st, opts)
	}
	return advance(ctx, m, route, steps, st, opts)
}

// start resets the state and renders step 0's prompt. The command token
// itself does not feed step 0.
func start(command, route string, steps []Step, st *State, opts Options) (*Result, error) {
	st.Route = command
	st.Responses = nil

	first := steps[0]
	next := 1
	done := next >= len(steps)

	res, err := resultFor(first, parse.Value{}, nil, route, opts, done)
	if err != nil {
		return nil, err
	}
	if done {
		st.Clear()
	} else {
		st.Next = next
	}
	return res, nil
}

func advance(ctx context.Context, m *bot.Message, route string, steps []Step, st *State, opts Options) (*Result, error) {
	i := st.Next
	if i < 0 || i >= len(steps) {
		return nil, &ConfigError{Route: route, Detail: fmt.Sprintf("step index %d out of range", i)}
	}

	for {
		step := steps[i]

		v, err := parseStep(ctx, m, step, route)
		if err != nil {
			return nil, err
		}

		if step.Skip != nil && step.Skip(v) {
			// The slot is already satisfied: the same input falls through to
			// the following step's validation without an accumulated entry.
			i++
			if i >= len(steps) {
				st.Clear()
				return &Result{Done: true}, nil
			}
			continue
		}

		if step.Post != nil {
			nv, err := step.Post(ctx, v, st.Responses)
			if err != nil {
				return nil, fmt.Errorf("step %q post: %w", step.Name, err)
			}
			if !nv.IsZero() {
				v = nv
			}
		}

		responses := append(slices.Clone(st.Responses), Response{Step: step.Name, Value: v})

		next, err := resolveNext(step.Next, i, steps, v, st)
		if err != nil {
			return nil, err
		}
		done := next >= len(steps)

		res, err := resultFor(step, v, responses, route, opts, done)
		if err != nil {
			return nil, err
		}

		st.Responses = responses
		if done {
			st.Clear()
		} else {
			st.Next = next
		}
		return res, nil
	}
}

func parseStep(ctx context.Context, m *bot.Message, step Step, route string) (parse.Value, error) {
	if len(step.Parse.Fields) == 0 {
		return parse.Scalar(m.Args), nil
	}
	d := step.Parse
	if d.ErrorPrefix == "" {
		// Scope failure reasons per route so message keys stay unique.
		d.ErrorPrefix = strings.ToUpper(route) + "_"
	}
	return parse.Parse(ctx, m.Args, d)
}

func resultFor(step Step, v parse.Value, responses []Response, route string, opts Options, done bool) (*Result, error) {
	if opts.Messages == nil {
		raw := &Response{Step: step.Name, Value: v}
		if len(responses) > 0 {
			raw = &responses[len(responses)-1]
		}
		return &Result{Raw: raw, Done: done}, nil
	}

	key := strings.ToUpper(route) + "_" + strings.ToUpper(step.Name)
	text, ok := opts.Messages[key]
	if !ok {
		return nil, &ConfigError{Route: route, Detail: "missing message template " + key}
	}

	t := render.Template{
		Text:    text,
		Vars:    varsFor(step, v, responses),
		Options: step.Choices,
	}
	return &Result{Templates: []render.Template{t}, Done: done}, nil
}

// varsFor picks the substitution mapping: the value itself when it carries
// fields, a scalar under its declared field name, otherwise the most recent
// accumulated mapping.
func varsFor(step Step, v parse.Value, responses []Response) map[string]string {
	if v.IsMap() {
		return v.Map()
	}
	if len(step.Parse.Fields) == 1 && !v.IsZero() {
		return map[string]string{step.Parse.Fields[0].Name: v.Scalar()}
	}
	for i := len(responses) - 1; i >= 0; i-- {
		if responses[i].Value.IsMap() {
			return responses[i].Value.Map()
		}
	}
	return nil
}
