package notification

import "time"

type EmailType string

const (
	EmailOrderReceived    EmailType = "order_received"
	EmailPaymentConfirmed EmailType = "payment_confirmed"
	EmailOrderShipped     EmailType = "order_shipped"
	EmailOrderCompleted   EmailType = "order_completed"
)

var allEmailTypes = map[EmailType]bool{
	EmailOrderReceived:    true,
	EmailPaymentConfirmed: true,
	EmailOrderShipped:     true,
	EmailOrderCompleted:   true,
}

func (t EmailType) Valid() bool {
	return allEmailTypes[t]
}

type EmailStatus string

const (
	EmailStatusPending EmailStatus = "pending"
	EmailStatusSent    EmailStatus = "sent"
)

// EmailRecord tracks the most recent send per (order, type).
type EmailRecord struct {
	ID      int64       `db:"id" json:"-"`
	OrderID int64       `db:"order_id" json:"order_id"`
	Type    EmailType   `db:"email_type" json:"email_type"`
	Status  EmailStatus `db:"status" json:"status"`
	SentAt  *time.Time  `db:"sent_at" json:"sent_at,omitempty"`
}

// Task is a queued delivery job for the dispatcher.
type Task struct {
	ID      string
	OrderID int64
	Type    EmailType
}
