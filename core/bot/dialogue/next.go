package dialogue

import (
	"fmt"

	"github.com/nowkit/nowkit/core/bot/parse"
)

// ComputeFunc derives the absolute index of the next step from the step's
// value and the dialogue state.
type ComputeFunc func(v parse.Value, st *State) (int, error)

type nextKind int

const (
	nextSequential nextKind = iota
	nextOffset
	nextGoto
	nextCompute
)

// Next is the step-advance rule: sequential by default, a relative offset, an
// absolute jump by step name, or a computed index.
type Next struct {
	kind   nextKind
	offset int
	name   string
	fn     ComputeFunc
}

// Sequential advances to the following step. It is the zero value of Next.
func Sequential() Next { return Next{} }

// Offset advances by n steps relative to the current one; negative values
// jump back.
func Offset(n int) Next { return Next{kind: nextOffset, offset: n} }

// Goto jumps to the step with the given name.
func Goto(name string) Next { return Next{kind: nextGoto, name: name} }

// Compute derives the next index at runtime.
func Compute(fn ComputeFunc) Next { return Next{kind: nextCompute, fn: fn} }

// resolveNext dispatches on the rule variant. Results past the end of the
// step list signal completion; negative results are configuration defects.
func resolveNext(n Next, current int, steps []Step, v parse.Value, st *State) (int, error) {
	var next int
	switch n.kind {
	case nextSequential:
		next = current + 1
	case nextOffset:
		next = current + n.offset
	case nextGoto:
		idx := -1
		for i, s := range steps {
			if s.Name == n.name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return 0, &ConfigError{Route: st.Route, Detail: fmt.Sprintf("next step %q not found", n.name)}
		}
		next = idx
	case nextCompute:
		computed, err := n.fn(v, st)
		if err != nil {
			return 0, fmt.Errorf("compute next step: %w", err)
		}
		next = computed
	}

	if next < 0 {
		return 0, &ConfigError{Route: st.Route, Detail: fmt.Sprintf("next step index %d is negative", next)}
	}
	return next, nil
}
