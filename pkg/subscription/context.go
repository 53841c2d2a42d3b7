package subscription

import "context"

// DefaultClientID identifies requests arriving over a transport that does
// not distinguish clients, such as a single stdio connection.
const DefaultClientID = "default"

type contextKey string

const clientIDKey contextKey = "client_id"

// ContextWithClientID returns a context carrying the originating client's ID
func ContextWithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey, clientID)
}

// ClientIDFromContext extracts the client ID from a context, falling back to
// DefaultClientID
func ClientIDFromContext(ctx context.Context) string {
	if clientID, ok := ctx.Value(clientIDKey).(string); ok && clientID != "" {
		return clientID
	}
	return DefaultClientID
}
