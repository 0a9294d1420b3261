package identity

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AchilleasB/planbee/clinic-portal-service/internal/core/ports"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"
	googleCertsURL = "https://www.googleapis.com/oauth2/v3/certs"
)

var googleIssuers = map[string]bool{
	"https://accounts.google.com": true,
	"accounts.google.com":         true,
}

// Endpoints lets tests point the verifier at a fake provider.
type Endpoints struct {
	AuthURL  string
	TokenURL string
	CertsURL string
}

var GoogleEndpoints = Endpoints{AuthURL: googleAuthURL, TokenURL: googleTokenURL, CertsURL: googleCertsURL}

// GoogleVerifier runs the OAuth authorization-code flow against Google and
// checks the returned ID token against Google's published keys.
type GoogleVerifier struct {
	clientID     string
	clientSecret string
	redirectURL  string
	endpoints    Endpoints
	httpClient   *http.Client
}

var _ ports.IdentityVerifier = (*GoogleVerifier)(nil)

type googleTokenResponse struct {
	IDToken string `json:"id_token"`
	Error   string `json:"error"`
}

type googleClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

type googleJWKS struct {
	Keys []struct {
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func NewGoogleVerifier(clientID, clientSecret, redirectURL string, endpoints Endpoints) *GoogleVerifier {
	return &GoogleVerifier{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		endpoints:    endpoints,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *GoogleVerifier) AuthURL(state string) string {
	params := url.Values{
		"client_id":     {v.clientID},
		"redirect_uri":  {v.redirectURL},
		"response_type": {"code"},
		"scope":         {"openid email"},
		"state":         {state},
	}
	return v.endpoints.AuthURL + "?" + params.Encode()
}

// VerifyCode exchanges code for an ID token and returns its verified email.
func (v *GoogleVerifier) VerifyCode(ctx context.Context, code string) (string, error) {
	idToken, err := v.exchangeCode(ctx, code)
	if err != nil {
		return "", err
	}
	return v.verifyIDToken(ctx, idToken)
}

func (v *GoogleVerifier) exchangeCode(ctx context.Context, code string) (string, error) {
	data := url.Values{
		"client_id":     {v.clientID},
		"client_secret": {v.clientSecret},
		"code":          {code},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {v.redirectURL},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoints.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	var result googleTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange failed: %s %s", resp.Status, result.Error)
	}
	if result.IDToken == "" {
		return "", errors.New("no id_token in response")
	}
	return result.IDToken, nil
}

func (v *GoogleVerifier) verifyIDToken(ctx context.Context, idToken string) (string, error) {
	keys, err := v.fetchKeys(ctx)
	if err != nil {
		return "", err
	}

	token, err := jwt.ParseWithClaims(idToken, &googleClaims{}, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		key, ok := keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown signing key %q", kid)
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("invalid id token: %w", err)
	}

	claims := token.Claims.(*googleClaims)
	if !googleIssuers[claims.Issuer] {
		return "", fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return "", errors.New("email not verified")
	}
	return claims.Email, nil
}

func (v *GoogleVerifier) fetchKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoints.CertsURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch signing keys: %w", err)
	}
	defer resp.Body.Close()

	var jwks googleJWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("decode signing keys: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			continue
		}
		var e int
		for _, b := range eBytes {
			e = e<<8 + int(b)
		}
		keys[k.Kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}
	}
	return keys, nil
}
