package token

import "time"

// TrackingSession is the credential handed out after a customer proves
// order number + last-4 phone digits. Bound to exactly one order.
type TrackingSession struct {
	Token     string    `db:"token" json:"token"`
	OrderID   int64     `db:"order_id" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}

func (s *TrackingSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// InvoiceToken is the short-lived, single-use credential for the
// document-download endpoint.
type InvoiceToken struct {
	Token     string    `db:"token" json:"token"`
	OrderID   int64     `db:"order_id" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}

func (t *InvoiceToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
