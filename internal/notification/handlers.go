package notification

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/labelforge/orderdesk/internal/types/notification"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type sendReq struct {
	OrderID   int64  `json:"order_id"`
	EmailType string `json:"email_type"`
}

// Send handles POST /notifications/send: operator-confirmed (re)send of one
// notification type. Returns 202 — delivery is asynchronous.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.OrderID <= 0 || req.EmailType == "" {
		http.Error(w, "order_id and email_type are required", http.StatusBadRequest)
		return
	}

	rec, err := h.svc.Send(r.Context(), req.OrderID, notification.EmailType(req.EmailType))
	switch {
	case errors.Is(err, ErrInvalidEmailType):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrOrderNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case err != nil:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(rec)
	}
}

// ListByOrder handles GET /orders/{id}/emails: send state per email type.
func (h *Handler) ListByOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	recs, err := h.svc.Records(r.Context(), id)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if recs == nil {
		recs = []notification.EmailRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recs)
}
