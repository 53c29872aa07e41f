package user

import "context"

type ctxKey string

const contextUserKey ctxKey = "user"

// FromContext returns the authenticated user injected by the auth middleware.
// Services receive the actor explicitly; nothing downstream re-derives
// identity or role from the raw token.
func FromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(contextUserKey).(*User)
	return u, ok
}

func NewContext(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, contextUserKey, u)
}
