package shipment

import "time"

type Shipment struct {
	ID             int64     `db:"id" json:"id"`
	OrderID        int64     `db:"order_id" json:"order_id"`
	Courier        string    `db:"courier" json:"courier"`
	TrackingNumber string    `db:"tracking_number" json:"tracking_number"`
	TrackingURL    string    `db:"tracking_url" json:"tracking_url"`
	ShippedAt      time.Time `db:"shipped_at" json:"shipped_at"`
}

// Courier holds a tracking URL template with a {tracking_number} placeholder.
type Courier struct {
	Name        string `db:"name" json:"name"`
	URLTemplate string `db:"url_template" json:"url_template"`
}
