package pricing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labelforge/orderdesk/internal/types/pricing"
	"github.com/stretchr/testify/assert"
)

type stubTierRepo struct {
	tiers   []pricing.PricingTier
	errList error
}

func (r *stubTierRepo) ListActiveTiers(ctx context.Context) ([]pricing.PricingTier, error) {
	if r.errList != nil {
		return nil, r.errList
	}
	return r.tiers, nil
}

type stubPromoRepo struct {
	promos  map[string]*pricing.PromoCode
	errFind error
}

func (r *stubPromoRepo) FindPromoByCode(ctx context.Context, code string) (*pricing.PromoCode, error) {
	if r.errFind != nil {
		return nil, r.errFind
	}
	p, ok := r.promos[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func defaultTiers() []pricing.PricingTier {
	return []pricing.PricingTier{
		{ID: 1, MinQuantity: 50, MaxQuantity: intPtr(99), UnitPrice: 3.00, Active: true},
		{ID: 2, MinQuantity: 100, MaxQuantity: intPtr(299), UnitPrice: 2.50, Active: true},
		{ID: 3, MinQuantity: 300, MaxQuantity: nil, UnitPrice: 2.00, Active: true},
		{ID: 4, MinQuantity: 500, MaxQuantity: nil, UnitPrice: 1.80, Active: true},
	}
}

func TestResolvePricePicksClosestTierFromBelow(t *testing.T) {
	svc := NewService(&stubTierRepo{tiers: defaultTiers()}, &stubPromoRepo{})

	tests := []struct {
		quantity  int
		wantUnit  float64
	}{
		{50, 3.00},
		{99, 3.00},
		{100, 2.50},
		{299, 2.50},
		{300, 2.00},
		{499, 2.00},
		{500, 1.80},
		{599, 1.80},
	}
	for _, tt := range tests {
		q, err := svc.ResolvePrice(context.Background(), tt.quantity)
		assert.NoError(t, err, "quantity %d", tt.quantity)
		assert.Equal(t, tt.wantUnit, q.UnitPrice, "quantity %d", tt.quantity)
		assert.Equal(t, tt.wantUnit*float64(tt.quantity), q.Subtotal, "quantity %d", tt.quantity)
	}
}

func TestResolvePriceLargestLowerBoundWins(t *testing.T) {
	// Tiers 3 and 4 both contain 550; tier 4 has the larger lower bound.
	svc := NewService(&stubTierRepo{tiers: defaultTiers()}, &stubPromoRepo{})

	q, err := svc.ResolvePrice(context.Background(), 550)
	assert.NoError(t, err)
	assert.Equal(t, 1.80, q.UnitPrice)
}

func TestResolvePriceSweep(t *testing.T) {
	svc := NewService(&stubTierRepo{tiers: defaultTiers()}, &stubPromoRepo{})
	for q := MinOrderQuantity; q < EnterpriseThreshold; q++ {
		quote, err := svc.ResolvePrice(context.Background(), q)
		if err != nil {
			t.Fatalf("quantity %d: %v", q, err)
		}
		if quote.UnitPrice <= 0 {
			t.Fatalf("quantity %d: non-positive unit price", q)
		}
	}
}

func TestResolvePriceIgnoresInactiveTiers(t *testing.T) {
	tiers := []pricing.PricingTier{
		{ID: 1, MinQuantity: 50, UnitPrice: 3.00, Active: true},
		{ID: 2, MinQuantity: 100, UnitPrice: 0.01, Active: false},
	}
	svc := NewService(&stubTierRepo{tiers: tiers}, &stubPromoRepo{})

	q, err := svc.ResolvePrice(context.Background(), 150)
	assert.NoError(t, err)
	assert.Equal(t, 3.00, q.UnitPrice)
}

func TestResolvePriceNoTier(t *testing.T) {
	svc := NewService(&stubTierRepo{tiers: nil}, &stubPromoRepo{})
	_, err := svc.ResolvePrice(context.Background(), 100)
	assert.Equal(t, ErrNoTier, err)
}

func TestResolvePriceRepoError(t *testing.T) {
	svc := NewService(&stubTierRepo{errList: errors.New("db error")}, &stubPromoRepo{})
	_, err := svc.ResolvePrice(context.Background(), 100)
	assert.EqualError(t, err, "db error")
}

func TestApplyPromoUnknownCodeYieldsZeroDiscount(t *testing.T) {
	svc := NewService(&stubTierRepo{}, &stubPromoRepo{promos: map[string]*pricing.PromoCode{}})

	res, err := svc.ApplyPromo(context.Background(), "NOPE", "a@b.com", 250)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, res.Discount)
	assert.Equal(t, 250.0, res.FinalTotal)
	assert.Nil(t, res.AppliedCode)
}

func TestApplyPromoInactiveCodeYieldsZeroDiscount(t *testing.T) {
	promos := map[string]*pricing.PromoCode{
		"save20": {Code: "SAVE20", DiscountAmount: 20, Active: false},
	}
	svc := NewService(&stubTierRepo{}, &stubPromoRepo{promos: promos})

	res, err := svc.ApplyPromo(context.Background(), "SAVE20", "a@b.com", 250)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, res.Discount)
	assert.Nil(t, res.AppliedCode)
}

func TestApplyPromoCaseInsensitiveLookup(t *testing.T) {
	promos := map[string]*pricing.PromoCode{
		"save20": {Code: "SAVE20", DiscountAmount: 20, Active: true},
	}
	svc := NewService(&stubTierRepo{}, &stubPromoRepo{promos: promos})

	res, err := svc.ApplyPromo(context.Background(), "sAvE20", "a@b.com", 250)
	assert.NoError(t, err)
	assert.Equal(t, 20.0, res.Discount)
	assert.Equal(t, 230.0, res.FinalTotal)
	assert.Equal(t, "SAVE20", *res.AppliedCode)
}

func TestApplyPromoEmailRestriction(t *testing.T) {
	promos := map[string]*pricing.PromoCode{
		"vip10": {Code: "VIP10", DiscountAmount: 10, Active: true, AllowedEmail: strPtr("VIP@example.com")},
	}
	svc := NewService(&stubTierRepo{}, &stubPromoRepo{promos: promos})

	res, err := svc.ApplyPromo(context.Background(), "VIP10", "someone@else.com", 100)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, res.Discount)
	assert.Nil(t, res.AppliedCode)

	// Same call with the matching email (trimmed, case-insensitive).
	res, err = svc.ApplyPromo(context.Background(), "VIP10", "  vip@EXAMPLE.com ", 100)
	assert.NoError(t, err)
	assert.Equal(t, 10.0, res.Discount)
	assert.Equal(t, 90.0, res.FinalTotal)
}

func TestApplyPromoNeverNegativeTotal(t *testing.T) {
	promos := map[string]*pricing.PromoCode{
		"mega": {Code: "MEGA", DiscountAmount: 500, Active: true},
	}
	svc := NewService(&stubTierRepo{}, &stubPromoRepo{promos: promos})

	res, err := svc.ApplyPromo(context.Background(), "MEGA", "a@b.com", 100)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, res.FinalTotal)
}

func TestApplyPromoEmptyCode(t *testing.T) {
	svc := NewService(&stubTierRepo{}, &stubPromoRepo{errFind: errors.New("must not be called")})
	res, err := svc.ApplyPromo(context.Background(), "  ", "a@b.com", 100)
	assert.NoError(t, err)
	assert.Equal(t, 100.0, res.FinalTotal)
}

func TestValidatePromoHandler(t *testing.T) {
	promos := map[string]*pricing.PromoCode{
		"save20": {Code: "SAVE20", DiscountAmount: 20, Active: true},
	}
	svc := NewService(&stubTierRepo{}, &stubPromoRepo{promos: promos})
	handler := NewHandler(svc)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantValid  bool
	}{
		{"valid code", `{"code":"SAVE20","subtotal":250}`, http.StatusOK, true},
		{"unknown code", `{"code":"NOPE","subtotal":250}`, http.StatusOK, false},
		{"missing code", `{"subtotal":250}`, http.StatusBadRequest, false},
		{"bad json", `{"code":`, http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/promo/validate", strings.NewReader(tt.body))
		rec := httptest.NewRecorder()

		handler.ValidatePromo(rec, req)
		res := rec.Result()
		defer res.Body.Close()

		if res.StatusCode != tt.wantStatus {
			t.Errorf("%s: got status %d, want %d", tt.name, res.StatusCode, tt.wantStatus)
			continue
		}
		if tt.wantStatus == http.StatusOK {
			var got validatePromoResp
			if err := jsonDecode(res, &got); err != nil {
				t.Fatalf("%s: decode: %v", tt.name, err)
			}
			if got.Valid != tt.wantValid {
				t.Errorf("%s: got valid=%v, want %v", tt.name, got.Valid, tt.wantValid)
			}
		}
	}
}

func jsonDecode(res *http.Response, v any) error {
	defer res.Body.Close()
	dec := json.NewDecoder(res.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
