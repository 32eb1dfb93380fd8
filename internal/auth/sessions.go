package auth

import (
	"context"
	"fmt"

	"pet-tracker/server/internal/domain"
)

// SessionSource resolves a session token to a user ID, 0 when unknown.
type SessionSource interface {
	SessionUser(ctx context.Context, token string) (int64, error)
}

// UserResolver authenticates owner-facing requests from session tokens
// minted by the external login system.
type UserResolver struct {
	sessions SessionSource
}

func NewUserResolver(sessions SessionSource) *UserResolver {
	return &UserResolver{sessions: sessions}
}

func (r *UserResolver) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, fmt.Errorf("missing session token: %w", domain.ErrUnauthorized)
	}
	userID, err := r.sessions.SessionUser(ctx, token)
	if err != nil {
		return 0, err
	}
	if userID == 0 {
		return 0, fmt.Errorf("invalid session token: %w", domain.ErrUnauthorized)
	}
	return userID, nil
}
