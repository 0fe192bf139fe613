package token

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/labelforge/orderdesk/internal/types/order"
	"github.com/labelforge/orderdesk/internal/types/token"
	"github.com/labelforge/orderdesk/internal/util/phone"
)

var (
	ErrTokenExpired       = errors.New("token expired or already used")
	ErrVerificationFailed = errors.New("verification failed")
	ErrSessionInvalid     = errors.New("session invalid or expired")
)

type Service struct {
	tokens     TokenRepository
	orders     OrderRepository
	sessionTTL time.Duration
	invoiceTTL time.Duration
}

func NewService(tokens TokenRepository, orders OrderRepository, sessionTTL, invoiceTTL time.Duration) *Service {
	return &Service{
		tokens:     tokens,
		orders:     orders,
		sessionTTL: sessionTTL,
		invoiceTTL: invoiceTTL,
	}
}

// NewToken returns 128 bits of crypto randomness as hex.
func NewToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ResolveConfirmation is single-use: the first successful call consumes the
// token, every later call sees ErrTokenExpired. "Never existed" and "already
// used" are indistinguishable to the caller.
func (s *Service) ResolveConfirmation(ctx context.Context, tok string) (*order.Order, error) {
	if tok == "" {
		return nil, ErrTokenExpired
	}
	o, err := s.tokens.ConsumeConfirmationToken(ctx, tok)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenExpired
		}
		return nil, err
	}
	return o, nil
}

// VerifyTracking matches the last four phone digits against either the
// billing or the shipping number. The error never says which part was wrong.
func (s *Service) VerifyTracking(ctx context.Context, orderNumber, last4 string) (*token.TrackingSession, error) {
	if len(last4) != 4 || phone.Digits(last4) != last4 {
		return nil, ErrVerificationFailed
	}

	o, err := s.orders.FindOrderByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVerificationFailed
		}
		return nil, err
	}

	billing := phone.Last4(o.Billing.Phone)
	shipping := phone.Last4(o.Shipping.Phone)
	matchB := billing != "" && subtle.ConstantTimeCompare([]byte(billing), []byte(last4)) == 1
	matchS := shipping != "" && subtle.ConstantTimeCompare([]byte(shipping), []byte(last4)) == 1
	if !matchB && !matchS {
		return nil, ErrVerificationFailed
	}

	tok, err := NewToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &token.TrackingSession{
		Token:     tok,
		OrderID:   o.ID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.tokens.CreateTrackingSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// sessionOrder validates the session and re-checks the order binding on
// every call: a captured session value is useless for other orders.
func (s *Service) sessionOrder(ctx context.Context, sessionToken string) (*order.Order, error) {
	if sessionToken == "" {
		return nil, ErrSessionInvalid
	}
	sess, err := s.tokens.FindTrackingSession(ctx, sessionToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	if sess.Expired(time.Now().UTC()) {
		return nil, ErrSessionInvalid
	}
	o, err := s.orders.FindOrderByID(ctx, sess.OrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionInvalid
		}
		return nil, err
	}
	return o, nil
}

// OrderForSession returns the session's order, refusing a session presented
// for a different order number.
func (s *Service) OrderForSession(ctx context.Context, sessionToken, orderNumber string) (*order.Order, error) {
	o, err := s.sessionOrder(ctx, sessionToken)
	if err != nil {
		return nil, err
	}
	if o.Number != orderNumber {
		return nil, ErrSessionInvalid
	}
	return o, nil
}

// IssueInvoiceToken mints a short-lived single-purpose download credential
// for the session's order.
func (s *Service) IssueInvoiceToken(ctx context.Context, sessionToken string) (*token.InvoiceToken, error) {
	o, err := s.sessionOrder(ctx, sessionToken)
	if err != nil {
		return nil, err
	}

	tok, err := NewToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	it := &token.InvoiceToken{
		Token:     tok,
		OrderID:   o.ID,
		ExpiresAt: now.Add(s.invoiceTTL),
		CreatedAt: now,
	}
	if err := s.tokens.CreateInvoiceToken(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

// ResolveInvoice consumes the download token and returns its order.
func (s *Service) ResolveInvoice(ctx context.Context, tok string) (*order.Order, error) {
	if tok == "" {
		return nil, ErrTokenExpired
	}
	it, err := s.tokens.ConsumeInvoiceToken(ctx, tok)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenExpired
		}
		return nil, err
	}
	if it.Expired(time.Now().UTC()) {
		return nil, ErrTokenExpired
	}
	o, err := s.orders.FindOrderByID(ctx, it.OrderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenExpired
		}
		return nil, err
	}
	return o, nil
}
