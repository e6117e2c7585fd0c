package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var (
	// ErrConflict means the tenant_id is already registered.
	ErrConflict = errors.New("subscription already exists")
	// ErrNotFound means no subscription row exists for the tenant_id.
	ErrNotFound = errors.New("subscription not found")
)

const schema = `
CREATE TABLE IF NOT EXISTS subscriptions (
    tenant_id  TEXT PRIMARY KEY,
    admin_id   BIGINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    active     BOOLEAN NOT NULL,
    paid       BOOLEAN NOT NULL,
    expires_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS pending_payments (
    payment_id TEXT PRIMARY KEY,
    tenant_id  TEXT NOT NULL,
    admin_id   BIGINT NOT NULL,
    months     INT NOT NULL,
    amount     INT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);`

type Store struct {
	db *sqlx.DB
}

func NewConnection(databaseURL string, maxConns, maxIdle int) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// NewStore wraps db and lazily creates the schema if it is absent.
func NewStore(db *sqlx.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Create registers a fresh tenant with active=true, paid=false. Returns
// ErrConflict when the tenant_id is taken; the caller retries allocation
// rather than overwriting an existing tenant.
func (s *Store) Create(ctx context.Context, tenantID string, adminID int64) error {
	query := `
        INSERT INTO subscriptions (tenant_id, admin_id, created_at, active, paid)
        VALUES ($1, $2, $3, true, false)
        ON CONFLICT (tenant_id) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query, tenantID, adminID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrConflict
	}
	return nil
}

func (s *Store) Get(ctx context.Context, tenantID string) (*Subscription, error) {
	var sub Subscription
	query := `SELECT * FROM subscriptions WHERE tenant_id = $1`
	err := s.db.GetContext(ctx, &sub, query, tenantID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Store) Exists(ctx context.Context, tenantID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM subscriptions WHERE tenant_id = $1`
	if err := s.db.GetContext(ctx, &count, query, tenantID); err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListCandidates returns a point-in-time snapshot of every row for one
// sweep pass. The sweep iterates the slice, not a live cursor, so slow
// container teardowns never hold a read open against the store.
func (s *Store) ListCandidates(ctx context.Context) ([]Subscription, error) {
	subs := []Subscription{}
	query := `SELECT * FROM subscriptions ORDER BY created_at`
	if err := s.db.SelectContext(ctx, &subs, query); err != nil {
		return nil, err
	}
	return subs, nil
}

// Deactivate sets active=false. Idempotent: deactivating an already
// inactive or unknown tenant is a no-op.
func (s *Store) Deactivate(ctx context.Context, tenantID string) error {
	query := `UPDATE subscriptions SET active = false WHERE tenant_id = $1`
	_, err := s.db.ExecContext(ctx, query, tenantID)
	return err
}

// MarkPaid records an external payment confirmation and pushes the
// expiry forward. Never called from the sweep.
func (s *Store) MarkPaid(ctx context.Context, tenantID string, expiresAt time.Time) error {
	query := `UPDATE subscriptions SET paid = true, expires_at = $2 WHERE tenant_id = $1`
	res, err := s.db.ExecContext(ctx, query, tenantID, expiresAt)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreatePending(ctx context.Context, p *PendingPayment) error {
	query := `
        INSERT INTO pending_payments (payment_id, tenant_id, admin_id, months, amount, created_at)
        VALUES (:payment_id, :tenant_id, :admin_id, :months, :amount, :created_at)`

	_, err := s.db.NamedExecContext(ctx, query, p)
	return err
}

// TakePending claims a pending payment exactly once: the row is deleted
// as it is read, so a replayed webhook finds nothing.
func (s *Store) TakePending(ctx context.Context, paymentID string) (*PendingPayment, error) {
	var p PendingPayment
	query := `DELETE FROM pending_payments WHERE payment_id = $1
              RETURNING payment_id, tenant_id, admin_id, months, amount, created_at`
	err := s.db.GetContext(ctx, &p, query, paymentID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
