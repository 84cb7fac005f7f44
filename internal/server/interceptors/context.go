package interceptors

import (
	"context"

	userdomain "auth-service/internal/user/domain"
)

type contextKey struct{ name string }

var emailKey = contextKey{"email"}

// WithEmail returns a context carrying the authenticated caller's email.
func WithEmail(ctx context.Context, email userdomain.Email) context.Context {
	return context.WithValue(ctx, emailKey, email)
}

// GetEmail returns the authenticated email from context and true if set.
func GetEmail(ctx context.Context) (userdomain.Email, bool) {
	v, ok := ctx.Value(emailKey).(userdomain.Email)
	return v, ok
}
