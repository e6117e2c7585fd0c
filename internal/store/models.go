package store

import "time"

// Subscription is one row per provisioned tenant. Rows are never deleted;
// deactivated tenants stay behind as an audit trail.
type Subscription struct {
	TenantID  string     `db:"tenant_id" json:"tenant_id"`
	AdminID   int64      `db:"admin_id" json:"admin_id"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	Active    bool       `db:"active" json:"active"`
	Paid      bool       `db:"paid" json:"paid"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
}

// PendingPayment tracks a payment link handed out to a tenant admin until
// the gateway confirms or the row is superseded. Durable on purpose: the
// confirmation webhook may arrive after a restart.
type PendingPayment struct {
	PaymentID string    `db:"payment_id" json:"payment_id"`
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	AdminID   int64     `db:"admin_id" json:"admin_id"`
	Months    int       `db:"months" json:"months"`
	Amount    int       `db:"amount" json:"amount"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
