package middleware

import "context"

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxModerator contextKey = "moderator"
	ctxAnonToken contextKey = "anon_token"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func ModeratorFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	if v, ok := ctx.Value(ctxModerator).(bool); ok {
		return v
	}
	return false
}

func AnonTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAnonToken).(string); ok {
		return v
	}
	return ""
}

// SubmitterKeyFromContext returns the identity intake keys submissions by:
// the authenticated user id when present, otherwise the anonymous token.
func SubmitterKeyFromContext(ctx context.Context) string {
	if id := UserIDFromContext(ctx); id != "" {
		return id
	}
	return AnonTokenFromContext(ctx)
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithModerator marks the context as carrying moderator capability.
func WithModerator(ctx context.Context, moderator bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxModerator, moderator)
}

// WithAnonToken injects the anonymous submitter token into the context.
func WithAnonToken(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAnonToken, token)
}
