package order

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labelforge/orderdesk/internal/logger"
	"github.com/labelforge/orderdesk/internal/pricing"
	"github.com/labelforge/orderdesk/internal/storage"
	"github.com/labelforge/orderdesk/internal/token"
	"github.com/labelforge/orderdesk/internal/types/notification"
	"github.com/labelforge/orderdesk/internal/types/order"
	"go.uber.org/zap"
)

var (
	ErrInvalidQuantity  = errors.New("quantity must be between 50 and 599")
	ErrInvalidCustomer  = errors.New("customer name, email and phone are required")
	ErrNoTier           = errors.New("no pricing tier for quantity")
	ErrNumberTaken      = storage.ErrOrderNumberTaken
	ErrOrderNotFound    = errors.New("order not found")
	ErrInvalidStatus    = errors.New("unknown order status")
	ErrTerminalStatus   = errors.New("order is cancelled")
	ErrStatusConflict   = errors.New("order status changed concurrently")
	ErrShipmentRequired = errors.New("shipment required before order_shipped")
)

const numberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type Service struct {
	repo      OrderRepository
	pricer    Pricer
	shipments ShipmentChecker
	notifier  Notifier
}

func NewService(repo OrderRepository, pricer Pricer, shipments ShipmentChecker, notifier Notifier) *Service {
	return &Service{repo: repo, pricer: pricer, shipments: shipments, notifier: notifier}
}

type CreateRequest struct {
	CustomerName  string        `json:"customer_name"`
	CustomerEmail string        `json:"customer_email"`
	Billing       order.Address `json:"billing_address"`
	Shipping      order.Address `json:"shipping_address"`
	Quantity      int           `json:"quantity"`
	PromoCode     string        `json:"promo_code"`
}

type CreateResult struct {
	Order             *order.Order `json:"order"`
	ConfirmationToken string       `json:"confirmation_token"`
}

// Create builds an order from sanitized input. Unit and total price are
// always recomputed here from quantity and promo code; price fields a
// client might send are never read.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*CreateResult, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	if req.CustomerName == "" || !strings.Contains(req.CustomerEmail, "@") ||
		strings.TrimSpace(req.Billing.Phone) == "" || strings.TrimSpace(req.Shipping.Phone) == "" {
		return nil, ErrInvalidCustomer
	}
	if req.Quantity < pricing.MinOrderQuantity || req.Quantity >= pricing.EnterpriseThreshold {
		return nil, ErrInvalidQuantity
	}

	quote, err := s.pricer.ResolvePrice(ctx, req.Quantity)
	if err != nil {
		if errors.Is(err, pricing.ErrNoTier) {
			return nil, ErrNoTier
		}
		return nil, err
	}
	promo, err := s.pricer.ApplyPromo(ctx, req.PromoCode, req.CustomerEmail, quote.Subtotal)
	if err != nil {
		return nil, err
	}

	confirmation, err := token.NewToken()
	if err != nil {
		return nil, err
	}

	o := &order.Order{
		CustomerName:      req.CustomerName,
		CustomerEmail:     req.CustomerEmail,
		Billing:           req.Billing,
		Shipping:          req.Shipping,
		Quantity:          req.Quantity,
		UnitPrice:         quote.UnitPrice,
		DiscountAmount:    quote.Subtotal - promo.FinalTotal,
		TotalPrice:        promo.FinalTotal,
		PromoCode:         promo.AppliedCode,
		Status:            order.StatusPending,
		ConfirmationToken: &confirmation,
		CreatedAt:         time.Now().UTC(),
	}

	// Номер заказа статистически уникален, но коллизия не фатальна:
	// ограниченный повтор на конфликте уникальности.
	for attempt := 0; attempt < 3; attempt++ {
		o.Number, err = newOrderNumber(o.CreatedAt)
		if err != nil {
			return nil, err
		}
		err = s.repo.CreateOrder(ctx, o)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrNumberTaken) {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}

	if _, nerr := s.notifier.Send(ctx, o.ID, notification.EmailOrderReceived); nerr != nil {
		logger.Log.Error("queue order_received notification",
			zap.String("order", o.Number), zap.Error(nerr))
	}

	return &CreateResult{Order: o, ConfirmationToken: confirmation}, nil
}

func newOrderNumber(createdAt time.Time) (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}
	for i := range buf {
		buf[i] = numberAlphabet[int(buf[i])%len(numberAlphabet)]
	}
	return createdAt.Format("20060102") + "-" + string(buf), nil
}

type StatusResult struct {
	Order             *order.Order            `json:"order"`
	NotificationOffer *notification.EmailType `json:"notification_offer,omitempty"`
}

// UpdateStatus routes an operator status change through the state machine.
// Any status may be set except out of cancelled; order_shipped additionally
// requires an existing shipment. The write is optimistic: it only lands if
// the status is still what the operator saw.
func (s *Service) UpdateStatus(ctx context.Context, id int64, newStatus order.OrderStatus, paymentReference *string) (*StatusResult, error) {
	if !newStatus.Valid() {
		return nil, ErrInvalidStatus
	}

	o, err := s.repo.FindOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, ErrTerminalStatus
	}

	if paymentReference != nil {
		ref := strings.TrimSpace(*paymentReference)
		if ref != "" {
			if err := s.repo.UpdatePaymentReference(ctx, id, ref); err != nil {
				return nil, err
			}
			o.PaymentReference = &ref
		}
	}

	if newStatus == o.Status {
		return &StatusResult{Order: o}, nil
	}

	if newStatus == order.StatusOrderShipped {
		has, err := s.shipments.HasShipment(ctx, id)
		if err != nil {
			return nil, err
		}
		if !has {
			// Переход откладывается до создания отправления.
			return nil, ErrShipmentRequired
		}
	}

	var paymentConfirmedAt *time.Time
	if newStatus == order.StatusPaid && o.PaymentConfirmedAt == nil {
		now := time.Now().UTC()
		paymentConfirmedAt = &now
	}

	updated, err := s.repo.UpdateOrderStatus(ctx, id, o.Status, newStatus, paymentConfirmedAt)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, ErrStatusConflict
	}

	prior := o.Status
	o.Status = newStatus
	if paymentConfirmedAt != nil {
		o.PaymentConfirmedAt = paymentConfirmedAt
	}

	return &StatusResult{Order: o, NotificationOffer: offerFor(prior, newStatus)}, nil
}

// offerFor maps a transition to the notification the operator may choose to
// send. Sending stays explicit — nothing is dispatched automatically.
func offerFor(from, to order.OrderStatus) *notification.EmailType {
	if from == to {
		return nil
	}
	var t notification.EmailType
	switch to {
	case order.StatusPaid:
		t = notification.EmailPaymentConfirmed
	case order.StatusOrderShipped:
		t = notification.EmailOrderShipped
	case order.StatusCompleted:
		t = notification.EmailOrderCompleted
	default:
		return nil
	}
	return &t
}

func (s *Service) Get(ctx context.Context, id int64) (*order.Order, error) {
	o, err := s.repo.FindOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}
