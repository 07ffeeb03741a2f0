package http

import "context"

type contextKey string

const (
	ownerIDContextKey contextKey = "owner_id"
	entryIDContextKey contextKey = "entry_id"
)

// ContextWithOwnerID returns a derived context carrying the requesting user's ID.
func ContextWithOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDContextKey, ownerID)
}

// OwnerIDFromContext extracts the requesting user's ID from the context.
func OwnerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ownerIDContextKey).(string)
	return id, ok
}

// ContextWithEntryID injects the recurring entry identifier resolved from the request path.
func ContextWithEntryID(ctx context.Context, entryID string) context.Context {
	return context.WithValue(ctx, entryIDContextKey, entryID)
}

// EntryIDFromContext extracts a recurring entry identifier previously associated with the context.
func EntryIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(entryIDContextKey).(string)
	return id, ok
}
