package pricing

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/labelforge/orderdesk/internal/types/pricing"
)

const (
	// MinOrderQuantity — заказы меньше MOQ не тарифицируются.
	MinOrderQuantity = 50
	// EnterpriseThreshold — с этого количества заказ уходит в ручную обработку.
	EnterpriseThreshold = 600
)

var (
	ErrNoTier = errors.New("no pricing tier for quantity")
)

type Service struct {
	tiers  TierRepository
	promos PromoRepository
}

func NewService(tiers TierRepository, promos PromoRepository) *Service {
	return &Service{tiers: tiers, promos: promos}
}

// ResolvePrice picks the applicable tier for a quantity. Among active tiers
// whose range contains the quantity, the one with the largest lower bound wins.
// Prices always come from here, never from the request.
func (s *Service) ResolvePrice(ctx context.Context, quantity int) (*pricing.Quote, error) {
	tiers, err := s.tiers.ListActiveTiers(ctx)
	if err != nil {
		return nil, err
	}

	var best *pricing.PricingTier
	for i := range tiers {
		t := tiers[i]
		if !t.Active || t.MinQuantity > quantity {
			continue
		}
		if t.MaxQuantity != nil && *t.MaxQuantity < quantity {
			continue
		}
		if best == nil || t.MinQuantity > best.MinQuantity {
			best = &tiers[i]
		}
	}
	if best == nil {
		return nil, ErrNoTier
	}

	return &pricing.Quote{
		UnitPrice: best.UnitPrice,
		Subtotal:  best.UnitPrice * float64(quantity),
	}, nil
}

// ApplyPromo computes the discount for a code. An unknown, inactive or
// email-restricted mismatching code yields zero discount, never an error —
// order creation must not fail because of a bad code.
func (s *Service) ApplyPromo(ctx context.Context, code, customerEmail string, subtotal float64) (*pricing.PromoResult, error) {
	none := &pricing.PromoResult{Discount: 0, FinalTotal: subtotal}

	code = strings.TrimSpace(code)
	if code == "" {
		return none, nil
	}

	promo, err := s.promos.FindPromoByCode(ctx, strings.ToLower(code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return none, nil
		}
		return nil, err
	}
	if !promo.Active {
		return none, nil
	}
	if promo.AllowedEmail != nil {
		allowed := strings.ToLower(strings.TrimSpace(*promo.AllowedEmail))
		got := strings.ToLower(strings.TrimSpace(customerEmail))
		if allowed != got {
			return none, nil
		}
	}

	final := subtotal - promo.DiscountAmount
	if final < 0 {
		final = 0
	}
	applied := promo.Code
	return &pricing.PromoResult{
		Discount:    promo.DiscountAmount,
		FinalTotal:  final,
		AppliedCode: &applied,
	}, nil
}
