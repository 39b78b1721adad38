package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/di"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/platform/idempotency"
)

const (
	idempotencySweepInterval = 15 * time.Minute
	idempotencySweepBatch    = 200
	idempotencySweepTimeout  = time.Minute
)

// newIdempotencyStore shares checkout replays across instances through Firestore when it
// is configured. The Postgres driver keeps them in process.
func newIdempotencyStore(resources *di.Resources) (idempotency.Store, error) {
	if resources == nil || resources.Firestore == nil {
		return idempotency.NewMemoryStore(), nil
	}
	store, err := idempotency.NewFirestoreStore(resources.Firestore)
	if err != nil {
		return nil, fmt.Errorf("idempotency store: %w", err)
	}
	return store, nil
}

// sweepIdempotency removes expired replay records every interval until ctx ends.
func sweepIdempotency(ctx context.Context, store idempotency.Store, logger *zap.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, idempotencySweepTimeout)
			removed, err := store.CleanupExpired(runCtx, now.UTC(), idempotencySweepBatch)
			cancel()
			switch {
			case err != nil:
				logger.Error("idempotency sweep failed", zap.Error(err))
			case removed > 0:
				logger.Info("idempotency sweep removed records", zap.Int("count", removed))
			}
		}
	}
}
