package storage

import (
	"context"
	"errors"
	"time"

	"github.com/labelforge/orderdesk/internal/types/notification"
	"github.com/labelforge/orderdesk/internal/types/order"
	"github.com/labelforge/orderdesk/internal/types/pricing"
	"github.com/labelforge/orderdesk/internal/types/shipment"
	"github.com/labelforge/orderdesk/internal/types/token"
)

// ErrOrderNumberTaken возвращается из CreateOrder при коллизии номера заказа.
var ErrOrderNumberTaken = errors.New("order number already taken")

// OrderRepository отвечает за операции над заказами.
type OrderRepository interface {
	CreateOrder(ctx context.Context, o *order.Order) error
	FindOrderByID(ctx context.Context, id int64) (*order.Order, error)
	FindOrderByNumber(ctx context.Context, number string) (*order.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, from, to order.OrderStatus, paymentConfirmedAt *time.Time) (bool, error)
	UpdatePaymentReference(ctx context.Context, id int64, reference string) error
}

// PricingRepository отвечает за тарифы и промокоды.
type PricingRepository interface {
	ListActiveTiers(ctx context.Context) ([]pricing.PricingTier, error)
	FindPromoByCode(ctx context.Context, code string) (*pricing.PromoCode, error)
}

// TokenRepository отвечает за токены и сессии.
type TokenRepository interface {
	ConsumeConfirmationToken(ctx context.Context, tok string) (*order.Order, error)
	CreateTrackingSession(ctx context.Context, s *token.TrackingSession) error
	FindTrackingSession(ctx context.Context, tok string) (*token.TrackingSession, error)
	CreateInvoiceToken(ctx context.Context, t *token.InvoiceToken) error
	ConsumeInvoiceToken(ctx context.Context, tok string) (*token.InvoiceToken, error)
}

// ShipmentRepository отвечает за отправления и курьеров.
type ShipmentRepository interface {
	CreateShipment(ctx context.Context, s *shipment.Shipment) error
	ListShipmentsByOrder(ctx context.Context, orderID int64) ([]shipment.Shipment, error)
	HasShipment(ctx context.Context, orderID int64) (bool, error)
	FindCourier(ctx context.Context, name string) (*shipment.Courier, error)
	SaveCourier(ctx context.Context, c *shipment.Courier) error
}

// EmailRepository отвечает за записи об отправленных письмах.
type EmailRepository interface {
	UpsertEmailRecord(ctx context.Context, orderID int64, emailType notification.EmailType) (*notification.EmailRecord, error)
	MarkEmailSent(ctx context.Context, orderID int64, emailType notification.EmailType, sentAt time.Time) error
	ListEmailRecordsByOrder(ctx context.Context, orderID int64) ([]notification.EmailRecord, error)
}

// Storage объединяет все репозитории.
type Storage interface {
	OrderRepository
	PricingRepository
	TokenRepository
	ShipmentRepository
	EmailRepository

	// Для управления соединением
	Ping(ctx context.Context) error
	Close() error
}
