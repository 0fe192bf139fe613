package order

import "time"

type OrderStatus string

const (
	StatusPending                    OrderStatus = "pending"
	StatusPaymentPending             OrderStatus = "payment_pending"
	StatusPaymentPendingVerification OrderStatus = "payment_pending_verification"
	StatusPaid                       OrderStatus = "paid"
	StatusDesignFilePending          OrderStatus = "design_file_pending"
	StatusDesignFileReceived         OrderStatus = "design_file_received"
	StatusInProduction               OrderStatus = "in_production"
	StatusOrderShipped               OrderStatus = "order_shipped"
	StatusCompleted                  OrderStatus = "completed"
	StatusCancelled                  OrderStatus = "cancelled"
)

var allStatuses = map[OrderStatus]bool{
	StatusPending:                    true,
	StatusPaymentPending:             true,
	StatusPaymentPendingVerification: true,
	StatusPaid:                       true,
	StatusDesignFilePending:          true,
	StatusDesignFileReceived:         true,
	StatusInProduction:               true,
	StatusOrderShipped:               true,
	StatusCompleted:                  true,
	StatusCancelled:                  true,
}

func (s OrderStatus) Valid() bool {
	return allStatuses[s]
}

// Terminal states accept no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == StatusCancelled
}

type Address struct {
	Name       string `db:"name" json:"name"`
	Phone      string `db:"phone" json:"phone"`
	Line1      string `db:"line1" json:"line1"`
	Line2      string `db:"line2" json:"line2,omitempty"`
	City       string `db:"city" json:"city"`
	PostalCode string `db:"postal_code" json:"postal_code"`
}

type Order struct {
	ID                 int64       `db:"id" json:"id"`
	Number             string      `db:"number" json:"number"`
	CustomerName       string      `db:"customer_name" json:"customer_name"`
	CustomerEmail      string      `db:"customer_email" json:"customer_email"`
	Billing            Address     `db:"-" json:"billing_address"`
	Shipping           Address     `db:"-" json:"shipping_address"`
	Quantity           int         `db:"quantity" json:"quantity"`
	UnitPrice          float64     `db:"unit_price" json:"unit_price"`
	DiscountAmount     float64     `db:"discount_amount" json:"discount_amount"`
	TotalPrice         float64     `db:"total_price" json:"total_price"`
	PromoCode          *string     `db:"promo_code" json:"promo_code,omitempty"`
	Status             OrderStatus `db:"status" json:"status"`
	PaymentReference   *string     `db:"payment_reference" json:"payment_reference,omitempty"`
	ConfirmationToken  *string     `db:"confirmation_token" json:"-"`
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
	PaymentConfirmedAt *time.Time  `db:"payment_confirmed_at" json:"payment_confirmed_at,omitempty"`
}
