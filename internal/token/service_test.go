package token

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/labelforge/orderdesk/internal/types/order"
	"github.com/labelforge/orderdesk/internal/types/token"
	"github.com/stretchr/testify/assert"
)

type stubTokenRepo struct {
	mu       sync.Mutex
	orders   map[string]*order.Order // confirmation token -> order
	sessions map[string]*token.TrackingSession
	invoices map[string]*token.InvoiceToken
}

func newStubTokenRepo() *stubTokenRepo {
	return &stubTokenRepo{
		orders:   make(map[string]*order.Order),
		sessions: make(map[string]*token.TrackingSession),
		invoices: make(map[string]*token.InvoiceToken),
	}
}

func (r *stubTokenRepo) ConsumeConfirmationToken(ctx context.Context, tok string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[tok]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(r.orders, tok)
	return o, nil
}

func (r *stubTokenRepo) CreateTrackingSession(ctx context.Context, s *token.TrackingSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Token] = s
	return nil
}

func (r *stubTokenRepo) FindTrackingSession(ctx context.Context, tok string) (*token.TrackingSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[tok]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

func (r *stubTokenRepo) CreateInvoiceToken(ctx context.Context, t *token.InvoiceToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[t.Token] = t
	return nil
}

func (r *stubTokenRepo) ConsumeInvoiceToken(ctx context.Context, tok string) (*token.InvoiceToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.invoices[tok]
	if !ok {
		return nil, sql.ErrNoRows
	}
	delete(r.invoices, tok)
	return t, nil
}

type stubOrderRepo struct {
	byNumber map[string]*order.Order
	byID     map[int64]*order.Order
}

func newStubOrderRepo(orders ...*order.Order) *stubOrderRepo {
	r := &stubOrderRepo{
		byNumber: make(map[string]*order.Order),
		byID:     make(map[int64]*order.Order),
	}
	for _, o := range orders {
		r.byNumber[o.Number] = o
		r.byID[o.ID] = o
	}
	return r
}

func (r *stubOrderRepo) FindOrderByNumber(ctx context.Context, number string) (*order.Order, error) {
	o, ok := r.byNumber[number]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return o, nil
}

func (r *stubOrderRepo) FindOrderByID(ctx context.Context, id int64) (*order.Order, error) {
	o, ok := r.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return o, nil
}

func testOrder() *order.Order {
	return &order.Order{
		ID:     7,
		Number: "20260831-ABC123",
		Billing: order.Address{
			Phone: "+62 812-3456-7890",
		},
		Shipping: order.Address{
			Phone: "021-555-1234",
		},
		Status: order.StatusPending,
	}
}

func TestNewTokenIsUnique(t *testing.T) {
	a, err := NewToken()
	assert.NoError(t, err)
	b, err := NewToken()
	assert.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestResolveConfirmationSingleUse(t *testing.T) {
	repo := newStubTokenRepo()
	repo.orders["tok1"] = testOrder()
	svc := NewService(repo, newStubOrderRepo(), 30*time.Minute, 10*time.Minute)

	o, err := svc.ResolveConfirmation(context.Background(), "tok1")
	assert.NoError(t, err)
	assert.Equal(t, "20260831-ABC123", o.Number)

	// Повторный вызов с тем же токеном — Expired.
	_, err = svc.ResolveConfirmation(context.Background(), "tok1")
	assert.Equal(t, ErrTokenExpired, err)
}

func TestResolveConfirmationConcurrentOneWinner(t *testing.T) {
	repo := newStubTokenRepo()
	repo.orders["tok1"] = testOrder()
	svc := NewService(repo, newStubOrderRepo(), 30*time.Minute, 10*time.Minute)

	const callers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ResolveConfirmation(context.Background(), "tok1"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestResolveConfirmationUnknownToken(t *testing.T) {
	svc := NewService(newStubTokenRepo(), newStubOrderRepo(), 30*time.Minute, 10*time.Minute)
	_, err := svc.ResolveConfirmation(context.Background(), "nope")
	assert.Equal(t, ErrTokenExpired, err)
}

func TestVerifyTrackingBillingPhone(t *testing.T) {
	o := testOrder()
	svc := NewService(newStubTokenRepo(), newStubOrderRepo(o), 30*time.Minute, 10*time.Minute)

	sess, err := svc.VerifyTracking(context.Background(), o.Number, "7890")
	assert.NoError(t, err)
	assert.Equal(t, o.ID, sess.OrderID)
	assert.NotEmpty(t, sess.Token)
	assert.True(t, sess.ExpiresAt.After(time.Now()))
}

func TestVerifyTrackingShippingPhone(t *testing.T) {
	o := testOrder()
	svc := NewService(newStubTokenRepo(), newStubOrderRepo(o), 30*time.Minute, 10*time.Minute)

	sess, err := svc.VerifyTracking(context.Background(), o.Number, "1234")
	assert.NoError(t, err)
	assert.Equal(t, o.ID, sess.OrderID)
}

func TestVerifyTrackingWrongDigits(t *testing.T) {
	o := testOrder()
	svc := NewService(newStubTokenRepo(), newStubOrderRepo(o), 30*time.Minute, 10*time.Minute)

	_, err := svc.VerifyTracking(context.Background(), o.Number, "0000")
	assert.Equal(t, ErrVerificationFailed, err)
}

func TestVerifyTrackingUnknownOrderSameError(t *testing.T) {
	o := testOrder()
	svc := NewService(newStubTokenRepo(), newStubOrderRepo(o), 30*time.Minute, 10*time.Minute)

	// Неизвестный номер заказа и неверные цифры дают одинаковую ошибку.
	_, errUnknown := svc.VerifyTracking(context.Background(), "no-such-order", "7890")
	_, errWrong := svc.VerifyTracking(context.Background(), o.Number, "0000")
	assert.Equal(t, errWrong, errUnknown)
}

func TestVerifyTrackingRejectsMalformedLast4(t *testing.T) {
	o := testOrder()
	svc := NewService(newStubTokenRepo(), newStubOrderRepo(o), 30*time.Minute, 10*time.Minute)

	for _, last4 := range []string{"789", "78901", "78a0", ""} {
		_, err := svc.VerifyTracking(context.Background(), o.Number, last4)
		assert.Equal(t, ErrVerificationFailed, err, "last4 %q", last4)
	}
}

func TestOrderForSessionBoundToOrder(t *testing.T) {
	o := testOrder()
	other := &order.Order{ID: 8, Number: "20260831-XYZ789"}
	repo := newStubTokenRepo()
	svc := NewService(repo, newStubOrderRepo(o, other), 30*time.Minute, 10*time.Minute)

	sess, err := svc.VerifyTracking(context.Background(), o.Number, "7890")
	assert.NoError(t, err)

	got, err := svc.OrderForSession(context.Background(), sess.Token, o.Number)
	assert.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	// Та же сессия с чужим номером заказа не работает.
	_, err = svc.OrderForSession(context.Background(), sess.Token, other.Number)
	assert.Equal(t, ErrSessionInvalid, err)
}

func TestOrderForSessionExpired(t *testing.T) {
	o := testOrder()
	repo := newStubTokenRepo()
	repo.sessions["sess1"] = &token.TrackingSession{
		Token:     "sess1",
		OrderID:   o.ID,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	svc := NewService(repo, newStubOrderRepo(o), 30*time.Minute, 10*time.Minute)

	_, err := svc.OrderForSession(context.Background(), "sess1", o.Number)
	assert.Equal(t, ErrSessionInvalid, err)
}

func TestIssueInvoiceTokenRequiresSession(t *testing.T) {
	o := testOrder()
	svc := NewService(newStubTokenRepo(), newStubOrderRepo(o), 30*time.Minute, 10*time.Minute)

	_, err := svc.IssueInvoiceToken(context.Background(), "missing")
	assert.Equal(t, ErrSessionInvalid, err)

	sess, err := svc.VerifyTracking(context.Background(), o.Number, "7890")
	assert.NoError(t, err)

	it, err := svc.IssueInvoiceToken(context.Background(), sess.Token)
	assert.NoError(t, err)
	assert.Equal(t, o.ID, it.OrderID)
}

func TestResolveInvoiceSingleUse(t *testing.T) {
	o := testOrder()
	repo := newStubTokenRepo()
	svc := NewService(repo, newStubOrderRepo(o), 30*time.Minute, 10*time.Minute)

	sess, _ := svc.VerifyTracking(context.Background(), o.Number, "7890")
	it, err := svc.IssueInvoiceToken(context.Background(), sess.Token)
	assert.NoError(t, err)

	got, err := svc.ResolveInvoice(context.Background(), it.Token)
	assert.NoError(t, err)
	assert.Equal(t, o.Number, got.Number)

	_, err = svc.ResolveInvoice(context.Background(), it.Token)
	assert.Equal(t, ErrTokenExpired, err)
}

func TestResolveInvoiceExpiredToken(t *testing.T) {
	o := testOrder()
	repo := newStubTokenRepo()
	repo.invoices["inv1"] = &token.InvoiceToken{
		Token:     "inv1",
		OrderID:   o.ID,
		ExpiresAt: time.Now().UTC().Add(-time.Second),
	}
	svc := NewService(repo, newStubOrderRepo(o), 30*time.Minute, 10*time.Minute)

	_, err := svc.ResolveInvoice(context.Background(), "inv1")
	assert.Equal(t, ErrTokenExpired, err)
}

type stubDocFetcher struct {
	content string
	err     error
}

func (f *stubDocFetcher) FetchInvoice(ctx context.Context, number string) (io.ReadCloser, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return io.NopCloser(strings.NewReader(f.content)), "application/pdf", nil
}

func TestConfirmationHandlerSingleUse(t *testing.T) {
	repo := newStubTokenRepo()
	repo.orders["tok1"] = testOrder()
	svc := NewService(repo, newStubOrderRepo(), 30*time.Minute, 10*time.Minute)
	h := NewHandler(svc, &stubDocFetcher{})

	r := chi.NewRouter()
	r.Get("/confirmation/{token}", h.ResolveConfirmation)

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/confirmation/tok1", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/confirmation/tok1", nil))
	assert.Equal(t, http.StatusUnauthorized, second.Code)
}

func TestVerifyTrackingHandler(t *testing.T) {
	o := testOrder()
	svc := NewService(newStubTokenRepo(), newStubOrderRepo(o), 30*time.Minute, 10*time.Minute)
	h := NewHandler(svc, &stubDocFetcher{})

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid billing last4", `{"order_number":"20260831-ABC123","phone_last4":"7890"}`, http.StatusOK},
		{"wrong last4", `{"order_number":"20260831-ABC123","phone_last4":"0000"}`, http.StatusUnauthorized},
		{"unknown order", `{"order_number":"nope","phone_last4":"7890"}`, http.StatusUnauthorized},
		{"missing fields", `{"order_number":"20260831-ABC123"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/tracking/verify", strings.NewReader(tt.body))
		rec := httptest.NewRecorder()

		h.VerifyTracking(rec, req)
		res := rec.Result()
		defer res.Body.Close()

		if res.StatusCode != tt.wantStatus {
			t.Errorf("%s: got status %d, want %d", tt.name, res.StatusCode, tt.wantStatus)
		}
	}
}

func TestDownloadInvoiceHandler(t *testing.T) {
	o := testOrder()
	repo := newStubTokenRepo()
	repo.invoices["inv1"] = &token.InvoiceToken{
		Token:     "inv1",
		OrderID:   o.ID,
		ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
	}
	svc := NewService(repo, newStubOrderRepo(o), 30*time.Minute, 10*time.Minute)
	h := NewHandler(svc, &stubDocFetcher{content: "%PDF-1.4"})

	r := chi.NewRouter()
	r.Get("/invoice/{token}", h.DownloadInvoice)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoice/inv1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4", rec.Body.String())

	// Токен одноразовый.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoice/inv1", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
