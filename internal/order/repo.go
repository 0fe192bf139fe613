package order

import (
	"context"
	"time"

	"github.com/labelforge/orderdesk/internal/types/notification"
	"github.com/labelforge/orderdesk/internal/types/order"
	"github.com/labelforge/orderdesk/internal/types/pricing"
)

type OrderRepository interface {
	// CreateOrder returns ErrNumberTaken when the generated order number
	// collides with an existing one.
	CreateOrder(ctx context.Context, o *order.Order) error
	FindOrderByID(ctx context.Context, id int64) (*order.Order, error)
	FindOrderByNumber(ctx context.Context, number string) (*order.Order, error)
	// UpdateOrderStatus writes the new status only if the current status
	// still equals from; reports whether a row was updated.
	UpdateOrderStatus(ctx context.Context, id int64, from, to order.OrderStatus, paymentConfirmedAt *time.Time) (bool, error)
	UpdatePaymentReference(ctx context.Context, id int64, reference string) error
}

// Pricer is the pricing resolver boundary; prices never come from callers.
type Pricer interface {
	ResolvePrice(ctx context.Context, quantity int) (*pricing.Quote, error)
	ApplyPromo(ctx context.Context, code, customerEmail string, subtotal float64) (*pricing.PromoResult, error)
}

// ShipmentChecker guards the order_shipped precondition.
type ShipmentChecker interface {
	HasShipment(ctx context.Context, orderID int64) (bool, error)
}

// Notifier queues a customer notification; failures are the notifier's
// problem, not the order's.
type Notifier interface {
	Send(ctx context.Context, orderID int64, emailType notification.EmailType) (*notification.EmailRecord, error)
}
