package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
)

// FirebaseKeysURL publishes the keys that sign Firebase Auth ID tokens.
const FirebaseKeysURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

const firebaseIssuerPrefix = "https://securetoken.google.com/"

// FirebaseVerifier validates Firebase Auth ID tokens produced by phone OTP and
// federated (Google, Apple) sign-in on the client.
type FirebaseVerifier struct {
	projectID string
	keys      jwk.Set
	skew      time.Duration
}

// NewFirebaseVerifier creates a verifier for tokens minted for projectID.
func NewFirebaseVerifier(projectID string, keys jwk.Set) *FirebaseVerifier {
	return &FirebaseVerifier{projectID: projectID, keys: keys, skew: 30 * time.Second}
}

// NewFirebaseKeySet returns a key set backed by a cache that refreshes the
// Google JWKS in the background. Build it once per process.
func NewFirebaseKeySet(ctx context.Context) (jwk.Set, error) {
	c := jwk.NewCache(ctx)
	if err := c.Register(FirebaseKeysURL, jwk.WithMinRefreshInterval(time.Hour)); err != nil {
		return nil, fmt.Errorf("register firebase jwks: %w", err)
	}
	if _, err := c.Refresh(ctx, FirebaseKeysURL); err != nil {
		return nil, fmt.Errorf("fetch firebase jwks: %w", err)
	}
	return jwk.NewCachedSet(c, FirebaseKeysURL), nil
}

// Verify implements domain.IdentityVerifier.
func (v *FirebaseVerifier) Verify(ctx context.Context, assertion string) (*domain.IdentityClaims, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if assertion == "" {
		return nil, domain.ErrIdentityTokenInvalid
	}

	t, err := jwt.ParseString(assertion,
		jwt.WithKeySet(v.keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(firebaseIssuerPrefix+v.projectID),
		jwt.WithAudience(v.projectID),
		jwt.WithAcceptableSkew(v.skew),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIdentityTokenInvalid, err)
	}
	if t.Subject() == "" {
		return nil, fmt.Errorf("%w: empty subject", domain.ErrIdentityTokenInvalid)
	}

	claims := &domain.IdentityClaims{
		Subject:       t.Subject(),
		Phone:         stringClaim(t, "phone_number"),
		Email:         stringClaim(t, "email"),
		EmailVerified: boolClaim(t, "email_verified"),
		Name:          stringClaim(t, "name"),
	}
	if fb, ok := t.Get("firebase"); ok {
		if m, ok := fb.(map[string]interface{}); ok {
			claims.SignInProvider, _ = m["sign_in_provider"].(string)
		}
	}
	return claims, nil
}

func stringClaim(t jwt.Token, name string) string {
	v, ok := t.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func boolClaim(t jwt.Token, name string) bool {
	v, ok := t.Get(name)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	}
	return false
}

var _ domain.IdentityVerifier = (*FirebaseVerifier)(nil)
