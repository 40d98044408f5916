package model

import (
	"context"

	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const authContextKey contextKey = "authContext"

// AuthContext carries authentication claims across request and async
// boundaries
type AuthContext struct {
	UserID    types.UserID    `json:"user_id,omitempty"`
	Email     string          `json:"email,omitempty"`
	Role      types.Role      `json:"role,omitempty"`
	SessionID types.SessionID `json:"session_id,omitempty"`
}

// NewAuthContext creates a new AuthContext
func NewAuthContext() *AuthContext {
	return &AuthContext{}
}

// WithAuthContext adds AuthContext to the context
func WithAuthContext(ctx context.Context, authCtx *AuthContext) context.Context {
	if authCtx == nil {
		return ctx
	}
	return context.WithValue(ctx, authContextKey, authCtx)
}

// GetAuthContext retrieves AuthContext from the context
func GetAuthContext(ctx context.Context) (*AuthContext, bool) {
	authCtx, ok := ctx.Value(authContextKey).(*AuthContext)
	return authCtx, ok
}

// GetOrCreateAuthContext retrieves AuthContext from context or creates a
// fresh one if absent
func GetOrCreateAuthContext(ctx context.Context) *AuthContext {
	if authCtx, ok := GetAuthContext(ctx); ok && authCtx != nil {
		return authCtx
	}
	return NewAuthContext()
}

// Clone creates a deep copy of the AuthContext
func (a *AuthContext) Clone() *AuthContext {
	if a == nil {
		return nil
	}
	return &AuthContext{
		UserID:    a.UserID,
		Email:     a.Email,
		Role:      a.Role,
		SessionID: a.SessionID,
	}
}
