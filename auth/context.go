package auth

import "context"

type contextKey struct{}

// NewContext returns a copy of ctx which carries the credential of the current request.
func NewContext(ctx context.Context, cred *Credential) context.Context {
	return context.WithValue(ctx, contextKey{}, cred)
}

// FromContext returns the credential stored by NewContext, or nil.
func FromContext(ctx context.Context) *Credential {
	cred, _ := ctx.Value(contextKey{}).(*Credential)
	return cred
}
