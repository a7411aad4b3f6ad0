package shared

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEntry represents a record stored in audit_logs. Field/OldValue/NewValue
// are set for field-level change entries and empty for plain action entries.
type AuditEntry struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Field    string
	OldValue string
	NewValue string
	At       time.Time
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool, logger *slog.Logger) *AuditLogger {
	return &AuditLogger{pool: pool, logger: logger}
}

// Record persists the entry.
func (l *AuditLogger) Record(ctx context.Context, entry AuditEntry) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return errors.New("audit entry requires action/entity/entity_id")
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := l.pool.Exec(ctx,
		`INSERT INTO audit_logs (actor_id, action, entity, entity_id, field, old_value, new_value, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ActorID, entry.Action, entry.Entity, entry.EntityID, entry.Field, entry.OldValue, entry.NewValue, at)
	return err
}

// RecordChange persists the entry best-effort. Audit writes are telemetry,
// never a reason to fail the primary operation: errors are logged and dropped.
func (l *AuditLogger) RecordChange(ctx context.Context, entry AuditEntry) {
	if l == nil {
		return
	}
	if err := l.Record(ctx, entry); err != nil && l.logger != nil {
		l.logger.Warn("audit record dropped",
			slog.String("entity", entry.Entity),
			slog.String("entity_id", entry.EntityID),
			slog.Any("error", err))
	}
}
