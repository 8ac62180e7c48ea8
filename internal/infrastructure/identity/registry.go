package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
)

// Registry holds the verifier for each sign-in channel. It performs no auth
// logic itself.
type Registry struct {
	verifiers map[domain.AuthProvider]domain.IdentityVerifier
}

// NewRegistry routes phone, google and apple through the Firebase verifier.
// When google is non-nil it is tried after Firebase for the google channel,
// so clients may also send raw Google ID tokens.
func NewRegistry(firebase domain.IdentityVerifier, google domain.IdentityVerifier) *Registry {
	r := &Registry{verifiers: map[domain.AuthProvider]domain.IdentityVerifier{
		domain.ProviderPhone:  firebase,
		domain.ProviderGoogle: firebase,
		domain.ProviderApple:  firebase,
	}}
	switch {
	case google != nil && firebase != nil:
		r.verifiers[domain.ProviderGoogle] = Chain{firebase, google}
	case google != nil:
		r.verifiers[domain.ProviderGoogle] = google
	}
	return r
}

// Verifier implements domain.IdentityVerifierRegistry.
func (r *Registry) Verifier(provider domain.AuthProvider) (domain.IdentityVerifier, error) {
	v, ok := r.verifiers[provider]
	if !ok || v == nil {
		return nil, fmt.Errorf("unknown identity provider: %s", provider)
	}
	return v, nil
}

// Chain tries each verifier in order and returns the first success.
type Chain []domain.IdentityVerifier

// Verify implements domain.IdentityVerifier.
func (c Chain) Verify(ctx context.Context, assertion string) (*domain.IdentityClaims, error) {
	var errs []error
	for _, v := range c {
		claims, err := v.Verify(ctx, assertion)
		if err == nil {
			return claims, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, domain.ErrIdentityTokenInvalid
	}
	return nil, errors.Join(errs...)
}

var (
	_ domain.IdentityVerifierRegistry = (*Registry)(nil)
	_ domain.IdentityVerifier         = Chain(nil)
)
