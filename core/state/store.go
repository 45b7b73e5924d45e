// Package state persists per-user dialogue state in a pluggable key-value
// store keyed by (application, user, key).
package state

import "context"

// Store is the external collaborator holding dialogue state between turns.
// An empty value is identical to "no dialogue in progress".
type Store interface {
	Get(ctx context.Context, app, user, key string) (string, error)
	Save(ctx context.Context, app, user, key, value string) error
	Remove(ctx context.Context, app, user, key string) error
}
