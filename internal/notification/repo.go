package notification

import (
	"context"
	"time"

	"github.com/labelforge/orderdesk/internal/types/notification"
	"github.com/labelforge/orderdesk/internal/types/order"
)

type EmailRepository interface {
	// UpsertEmailRecord creates or resets the (order, type) record to pending.
	// At most one record per pair exists.
	UpsertEmailRecord(ctx context.Context, orderID int64, emailType notification.EmailType) (*notification.EmailRecord, error)
	MarkEmailSent(ctx context.Context, orderID int64, emailType notification.EmailType, sentAt time.Time) error
	ListEmailRecordsByOrder(ctx context.Context, orderID int64) ([]notification.EmailRecord, error)
}

type OrderFinder interface {
	FindOrderByID(ctx context.Context, id int64) (*order.Order, error)
}
