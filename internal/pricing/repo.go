package pricing

import (
	"context"

	"github.com/labelforge/orderdesk/internal/types/pricing"
)

type TierRepository interface {
	ListActiveTiers(ctx context.Context) ([]pricing.PricingTier, error)
}

type PromoRepository interface {
	FindPromoByCode(ctx context.Context, code string) (*pricing.PromoCode, error)
}
