package pricing

type PricingTier struct {
	ID          int64   `db:"id" json:"id"`
	MinQuantity int     `db:"min_quantity" json:"min_quantity"`
	MaxQuantity *int    `db:"max_quantity" json:"max_quantity,omitempty"`
	UnitPrice   float64 `db:"unit_price" json:"unit_price"`
	Active      bool    `db:"active" json:"active"`
}

type PromoCode struct {
	ID             int64   `db:"id" json:"id"`
	Code           string  `db:"code" json:"code"`
	DiscountAmount float64 `db:"discount_amount" json:"discount_amount"`
	Active         bool    `db:"active" json:"active"`
	AllowedEmail   *string `db:"allowed_email" json:"allowed_email,omitempty"`
}

type Quote struct {
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

type PromoResult struct {
	Discount    float64 `json:"discount"`
	FinalTotal  float64 `json:"final_total"`
	AppliedCode *string `json:"applied_code"`
}
