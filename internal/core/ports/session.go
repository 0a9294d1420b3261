package ports

import (
	"context"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/domain"
)

type SessionStore interface {
	Save(ctx context.Context, session *domain.Session) error
	// Get returns domain.ErrSessionNotFound for unknown or expired tokens.
	Get(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, token string) error
}

// IdentityVerifier is the third-party single-sign-on check for staff.
type IdentityVerifier interface {
	AuthURL(state string) string
	// VerifyCode exchanges an authorization code and returns the verified email.
	VerifyCode(ctx context.Context, code string) (string, error)
}
