package http

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
)

const userIDKey = "userID"

// UserResolver authenticates a session token to a user ID.
type UserResolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

// SessionMiddleware guards the owner-facing routes. Tokens come from the
// Authorization bearer header or the X-Session-Token header.
type SessionMiddleware struct {
	resolver UserResolver
}

func NewSessionMiddleware(resolver UserResolver) *SessionMiddleware {
	return &SessionMiddleware{resolver: resolver}
}

func (m *SessionMiddleware) Wrap(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.Request().Header.Get("X-Session-Token")
		if token == "" {
			authz := c.Request().Header.Get("Authorization")
			token = strings.TrimPrefix(authz, "Bearer ")
			if token == authz {
				token = ""
			}
		}

		userID, err := m.resolver.Resolve(c.Request().Context(), token)
		if err != nil {
			return err
		}

		c.Set(userIDKey, userID)
		return next(c)
	}
}

func currentUser(c echo.Context) int64 {
	id, _ := c.Get(userIDKey).(int64)
	return id
}
