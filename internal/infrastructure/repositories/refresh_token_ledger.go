package repositories

import (
	"context"
	"time"

	"github.com/nithinycr7/discipline-ai-health-prod-sub001/domain"
	"github.com/redis/go-redis/v9"
)

// RefreshTokenLedgerImpl implements domain.RefreshTokenLedger using Redis
type RefreshTokenLedgerImpl struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRefreshTokenLedger creates a new refresh token ledger
func NewRefreshTokenLedger(client redis.UniversalClient) *RefreshTokenLedgerImpl {
	return &RefreshTokenLedgerImpl{
		client: client,
		prefix: "refresh:used:",
		now:    time.Now,
	}
}

// Consume implements domain.RefreshTokenLedger
func (r *RefreshTokenLedgerImpl) Consume(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		// An expired token is rejected by signature validation anyway.
		return false, nil
	}
	// Keys expire together with the token so the ledger never outgrows
	// the set of live refresh tokens.
	return r.client.SetNX(ctx, r.prefix+tokenID, r.now().Unix(), ttl).Result()
}

var _ domain.RefreshTokenLedger = (*RefreshTokenLedgerImpl)(nil)
