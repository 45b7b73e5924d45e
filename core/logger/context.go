package logger

import "context"

// contextKey is a private type to avoid collisions in context.
type contextKey string

const (
	ctxRID    contextKey = "rid"
	ctxUserID contextKey = "user_id"
	ctxChatID contextKey = "chat_id"
)

// WithRID attaches a request correlation id to the context.
func WithRID(ctx context.Context, rid string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRID, rid)
}

// RIDFrom extracts the correlation id from context if present.
func RIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(ctxRID).(string); ok {
		return s
	}
	return ""
}

// WithTurnMeta attaches common turn identifiers to the context.
func WithTurnMeta(ctx context.Context, userID string, chatID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxChatID, chatID)
	return ctx
}

// UserIDFrom extracts the user id from context if present.
func UserIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(ctxUserID).(string); ok {
		return s
	}
	return ""
}

// ChatIDFrom extracts the chat id from context if present.
func ChatIDFrom(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if id, ok := ctx.Value(ctxChatID).(int64); ok {
		return id
	}
	return 0
}
