package auth

import "context"

type contextKey struct{}

// Principal identifies the authenticated brand or customer on a request.
type Principal struct {
	Kind      string
	ID        int64
	SessionID int64
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

// CustomerID returns the authenticated customer's id, or 0 when the
// request is not a customer session.
func CustomerID(ctx context.Context) int64 {
	p, ok := FromContext(ctx)
	if !ok || p.Kind != "customer" {
		return 0
	}
	return p.ID
}

// BrandID returns the authenticated brand's id, or 0 when the request is
// not a brand session.
func BrandID(ctx context.Context) int64 {
	p, ok := FromContext(ctx)
	if !ok || p.Kind != "brand" {
		return 0
	}
	return p.ID
}
