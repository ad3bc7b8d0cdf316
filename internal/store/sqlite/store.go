// Package sqlite persists the delivery history: one row per terminal task
// outcome. Queue state itself is never persisted.
package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type History struct {
	db *sqlx.DB
}

type DeliveryRow struct {
	ID        int64     `db:"id" json:"id"`
	TaskID    string    `db:"task_id" json:"task_id"`
	Tenant    string    `db:"tenant" json:"brand"`
	Recipient string    `db:"recipient" json:"recipient"`
	Subject   string    `db:"subject" json:"subject"`
	Outcome   string    `db:"outcome" json:"outcome"`
	Detail    string    `db:"detail" json:"detail,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

func Open(path string) (*History, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, err
	}
	h := &History{db: db}
	if err := h.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return h, nil
}

func (h *History) ensureSchema() error {
	q := `
	CREATE TABLE IF NOT EXISTS deliveries (
	    id         INTEGER PRIMARY KEY AUTOINCREMENT,
	    task_id    TEXT NOT NULL,
	    tenant     TEXT NOT NULL,
	    recipient  TEXT NOT NULL,
	    subject    TEXT NOT NULL,
	    outcome    TEXT NOT NULL,
	    detail     TEXT NOT NULL DEFAULT '',
	    created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS deliveries_tenant_created
	    ON deliveries (tenant, created_at);
	`
	_, err := h.db.Exec(q)
	return err
}

func (h *History) InsertDelivery(ctx context.Context, row DeliveryRow) error {
	q := `
	INSERT INTO deliveries (task_id, tenant, recipient, subject, outcome, detail, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := h.db.ExecContext(ctx, q,
		row.TaskID, row.Tenant, row.Recipient, row.Subject, row.Outcome, row.Detail, row.CreatedAt)
	return err
}

// Recent returns the latest terminal outcomes, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]DeliveryRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows := []DeliveryRow{}
	q := `SELECT * FROM deliveries ORDER BY id DESC LIMIT ?`
	err := h.db.SelectContext(ctx, &rows, q, limit)
	return rows, err
}

func (h *History) Ping(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

func (h *History) Close() error {
	return h.db.Close()
}
