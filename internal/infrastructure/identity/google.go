package identity

import (
	"context"
	"fmt"

	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
	"google.golang.org/api/idtoken"
)

// GoogleVerifier validates Google Sign-In ID tokens issued directly to clientID.
type GoogleVerifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
}

// Verify implements domain.IdentityVerifier.
func (g *GoogleVerifier) Verify(ctx context.Context, assertion string) (*domain.IdentityClaims, error) {
	if assertion == "" {
		return nil, domain.ErrIdentityTokenInvalid
	}
	payload, err := g.validate(ctx, assertion, g.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIdentityTokenInvalid, err)
	}
	if payload.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", domain.ErrIdentityTokenInvalid)
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)

	return &domain.IdentityClaims{
		Subject:        payload.Subject,
		Email:          email,
		EmailVerified:  verified,
		Name:           name,
		SignInProvider: domain.SignInProviderGoogle,
	}, nil
}

var _ domain.IdentityVerifier = (*GoogleVerifier)(nil)
