package command

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/msdcl/payment-ledger-system-sub000/internal/apperr"
	"github.com/msdcl/payment-ledger-system-sub000/internal/platform/mlog"
)

// DefaultIdempotencyTTL is the cache write-through TTL, chosen within
// the §6 bound [24h, 7d].
const DefaultIdempotencyTTL = 24 * time.Hour

// Resolve maps a dedup key to a prior payment id. It tries the cache
// fast path first; a miss or any cache error falls through to the
// authoritative store lookup, which on a hit is opportunistically
// written back to cache. Cache unavailability never reduces
// correctness: the store's unique constraint on idempotency_key is the
// ultimate guarantor, not this function.
func (uc *UseCase) Resolve(ctx context.Context, dedupKey string) (uuid.UUID, bool, error) {
	logger := mlog.FromContext(ctx)

	if uc.IdempotencyCache != nil {
		if cached, err := uc.IdempotencyCache.Get(ctx, dedupKey); err == nil {
			if id, parseErr := uuid.Parse(cached); parseErr == nil {
				return id, true, nil
			}
		} else if !errors.Is(err, goredis.Nil) {
			logger.Warnf("idempotency cache unavailable, falling back to store: %v", err)
		}
	}

	p, err := uc.PaymentRepo.FindByIdempotencyKey(ctx, dedupKey)
	if errors.Is(err, apperr.ErrNotFound) {
		return uuid.Nil, false, nil
	}

	if err != nil {
		return uuid.Nil, false, err
	}

	uc.remember(ctx, dedupKey, p.ID)

	return p.ID, true, nil
}

// remember opportunistically writes dedupKey -> paymentID to cache.
// Write errors are logged and swallowed: the durable mapping lives in
// the store's unique constraint, established when the payment row was
// inserted.
func (uc *UseCase) remember(ctx context.Context, dedupKey string, paymentID uuid.UUID) {
	if uc.IdempotencyCache == nil {
		return
	}

	if err := uc.IdempotencyCache.Set(ctx, dedupKey, paymentID.String(), DefaultIdempotencyTTL); err != nil {
		mlog.FromContext(ctx).Warnf("failed to write-through idempotency cache: %v", err)
	}
}
