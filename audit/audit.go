// Package audit provides a WarningsMonitor that persists every
// configuration warning to a SQL table, so a deprecated or legacy
// property left in production shows up in a durable log rather than
// scrolling past in stdout.
package audit

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// WarningLog writes binding warnings to a warning_log table via sqlx,
// grounded on the same connection-helper idiom the rest of this
// module's sqlx usage follows (see package database).
type WarningLog struct {
	db  *sqlx.DB
	ctx context.Context
}

// NewWarningLog wraps db; ctx bounds every insert this monitor issues
// (a request-scoped or process-lifetime context, at the caller's
// choice).
func NewWarningLog(ctx context.Context, db *sqlx.DB) *WarningLog {
	return &WarningLog{db: db, ctx: ctx}
}

// EnsureSchema creates the warning_log table if it doesn't already
// exist. Safe to call repeatedly.
func (w *WarningLog) EnsureSchema() error {
	const ddl = `CREATE TABLE IF NOT EXISTS warning_log (
		id INT AUTO_INCREMENT PRIMARY KEY,
		property_name VARCHAR(255) NOT NULL,
		message TEXT NOT NULL,
		occurred_at DATETIME NOT NULL
	)`
	_, err := w.db.ExecContext(w.ctx, ddl)
	return err
}

// OnWarning implements configbind.WarningsMonitor.
func (w *WarningLog) OnWarning(propertyName, message string) {
	const insert = `INSERT INTO warning_log (property_name, message, occurred_at) VALUES (?, ?, ?)`
	_, _ = w.db.ExecContext(w.ctx, insert, propertyName, message, time.Now().UTC())
}

// Entry is one row read back from warning_log, for introspection
// surfaces that want to show recent warnings.
type Entry struct {
	ID           int64     `db:"id"`
	PropertyName string    `db:"property_name"`
	Message      string    `db:"message"`
	OccurredAt   time.Time `db:"occurred_at"`
}

// Recent returns the limit most recent entries, most recent first.
func (w *WarningLog) Recent(limit int) ([]Entry, error) {
	var out []Entry
	const q = `SELECT id, property_name, message, occurred_at FROM warning_log ORDER BY occurred_at DESC LIMIT ?`
	if err := w.db.SelectContext(w.ctx, &out, q, limit); err != nil {
		return nil, err
	}
	return out, nil
}
