package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/atrium-hms/atrium/internal/shared"
)

const idempotencyKeyMaxAge = 48 * time.Hour

// CleanupIdempotencyKeys drops claim keys older than the retention window.
func CleanupIdempotencyKeys(ctx context.Context, store *shared.IdempotencyStore, logger *slog.Logger) error {
	if store == nil {
		return nil
	}
	if err := store.Cleanup(ctx, idempotencyKeyMaxAge); err != nil {
		if logger != nil {
			logger.Error("idempotency cleanup", slog.Any("error", err))
		}
		return err
	}
	if logger != nil {
		logger.Info("idempotency keys cleaned", slog.String("job", "idempotency_cleanup"))
	}
	return nil
}
