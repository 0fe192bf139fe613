package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/labelforge/orderdesk/internal/logger"
	"go.uber.org/zap"
)

type Handler struct {
	svc  *Service
	docs DocumentFetcher
}

func NewHandler(svc *Service, docs DocumentFetcher) *Handler {
	return &Handler{svc: svc, docs: docs}
}

// ResolveConfirmation handles GET /confirmation/{token}. Single-use: the
// order comes back once, then the token is dead.
func (h *Handler) ResolveConfirmation(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")
	o, err := h.svc.ResolveConfirmation(r.Context(), tok)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(o)
}

type verifyReq struct {
	OrderNumber string `json:"order_number"`
	PhoneLast4  string `json:"phone_last4"`
}

type verifyResp struct {
	Session   string `json:"session"`
	ExpiresAt string `json:"expires_at"`
}

// VerifyTracking handles POST /tracking/verify. Rides the strict login
// rate class: the secret space is only 10000 values.
func (h *Handler) VerifyTracking(w http.ResponseWriter, r *http.Request) {
	var req verifyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.OrderNumber == "" || req.PhoneLast4 == "" {
		http.Error(w, "order_number and phone_last4 are required", http.StatusBadRequest)
		return
	}

	sess, err := h.svc.VerifyTracking(r.Context(), req.OrderNumber, req.PhoneLast4)
	if err != nil {
		if errors.Is(err, ErrVerificationFailed) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(verifyResp{
		Session:   sess.Token,
		ExpiresAt: sess.ExpiresAt.Format(time.RFC3339),
	})
}

// OrderByNumber handles GET /orders/by-number?order_number=...&session=...
func (h *Handler) OrderByNumber(w http.ResponseWriter, r *http.Request) {
	number := r.URL.Query().Get("order_number")
	session := r.URL.Query().Get("session")
	if number == "" || session == "" {
		http.Error(w, "order_number and session are required", http.StatusBadRequest)
		return
	}

	o, err := h.svc.OrderForSession(r.Context(), session, number)
	if err != nil {
		if errors.Is(err, ErrSessionInvalid) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(o)
}

type invoiceTokenReq struct {
	Session string `json:"session"`
}

type invoiceTokenResp struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// IssueInvoiceToken handles POST /invoice-token.
func (h *Handler) IssueInvoiceToken(w http.ResponseWriter, r *http.Request) {
	var req invoiceTokenReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Session == "" {
		http.Error(w, "session is required", http.StatusBadRequest)
		return
	}

	it, err := h.svc.IssueInvoiceToken(r.Context(), req.Session)
	if err != nil {
		if errors.Is(err, ErrSessionInvalid) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(invoiceTokenResp{
		Token:     it.Token,
		ExpiresAt: it.ExpiresAt.Format(time.RFC3339),
	})
}

// DownloadInvoice handles GET /invoice/{token}. The token is the sole
// credential and is consumed by this call.
func (h *Handler) DownloadInvoice(w http.ResponseWriter, r *http.Request) {
	tok := chi.URLParam(r, "token")
	o, err := h.svc.ResolveInvoice(r.Context(), tok)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	body, contentType, err := h.docs.FetchInvoice(r.Context(), o.Number)
	if err != nil {
		logger.Log.Error("fetch invoice document", zap.String("order", o.Number), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="invoice-%s.pdf"`, o.Number))
	if _, err := io.Copy(w, body); err != nil {
		logger.Log.Error("stream invoice document", zap.String("order", o.Number), zap.Error(err))
	}
}
