package notification

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/labelforge/orderdesk/internal/types/notification"
)

var (
	ErrInvalidEmailType = errors.New("unknown email type")
	ErrOrderNotFound    = errors.New("order not found")
)

// Enqueuer is the dispatcher side the service needs.
type Enqueuer interface {
	Enqueue(task notification.Task) bool
}

type Service struct {
	emails     EmailRepository
	orders     OrderFinder
	dispatcher Enqueuer
}

func NewService(emails EmailRepository, orders OrderFinder, dispatcher Enqueuer) *Service {
	return &Service{emails: emails, orders: orders, dispatcher: dispatcher}
}

// Send queues a notification for an order. Idempotent per (order, type):
// resending is always allowed and the record reflects the latest send.
// The caller gets the pending record back immediately; delivery happens in
// the background.
func (s *Service) Send(ctx context.Context, orderID int64, emailType notification.EmailType) (*notification.EmailRecord, error) {
	if !emailType.Valid() {
		return nil, ErrInvalidEmailType
	}
	if _, err := s.orders.FindOrderByID(ctx, orderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	rec, err := s.emails.UpsertEmailRecord(ctx, orderID, emailType)
	if err != nil {
		return nil, err
	}

	s.dispatcher.Enqueue(notification.Task{
		ID:      uuid.NewString(),
		OrderID: orderID,
		Type:    emailType,
	})
	return rec, nil
}

// Records lists the send state per email type, so callers can render
// "already sent" from the records instead of assuming.
func (s *Service) Records(ctx context.Context, orderID int64) ([]notification.EmailRecord, error) {
	return s.emails.ListEmailRecordsByOrder(ctx, orderID)
}
