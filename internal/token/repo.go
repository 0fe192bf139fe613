package token

import (
	"context"

	"github.com/labelforge/orderdesk/internal/types/order"
	"github.com/labelforge/orderdesk/internal/types/token"
)

type TokenRepository interface {
	// ConsumeConfirmationToken invalidates the token and returns its order in
	// one conditional update. A second call with the same token must fail.
	ConsumeConfirmationToken(ctx context.Context, tok string) (*order.Order, error)

	CreateTrackingSession(ctx context.Context, s *token.TrackingSession) error
	FindTrackingSession(ctx context.Context, tok string) (*token.TrackingSession, error)

	CreateInvoiceToken(ctx context.Context, t *token.InvoiceToken) error
	// ConsumeInvoiceToken deletes and returns the token in one conditional
	// operation; exactly one concurrent caller wins.
	ConsumeInvoiceToken(ctx context.Context, tok string) (*token.InvoiceToken, error)
}

type OrderRepository interface {
	FindOrderByNumber(ctx context.Context, number string) (*order.Order, error)
	FindOrderByID(ctx context.Context, id int64) (*order.Order, error)
}
