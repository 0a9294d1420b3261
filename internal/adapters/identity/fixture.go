package identity

import (
	"context"
	"errors"
	"net/url"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

// FixtureCode is the authorization code the fixture verifier accepts.
const FixtureCode = "mock"

// FixtureVerifier stands in for Google in development. Its consent URL
// points straight back at the callback with FixtureCode, which verifies
// as Email.
type FixtureVerifier struct {
	CallbackURL string
	Email       string
}

var _ ports.IdentityVerifier = FixtureVerifier{}

func NewFixtureVerifier(callbackURL string) FixtureVerifier {
	if callbackURL == "" {
		callbackURL = "/auth/google/callback"
	}
	return FixtureVerifier{CallbackURL: callbackURL, Email: "test@gmail.com"}
}

func (v FixtureVerifier) AuthURL(state string) string {
	return v.CallbackURL + "?" + url.Values{"code": {FixtureCode}, "state": {state}}.Encode()
}

func (v FixtureVerifier) VerifyCode(_ context.Context, code string) (string, error) {
	if code != FixtureCode {
		return "", errors.New("unknown authorization code")
	}
	return v.Email, nil
}
