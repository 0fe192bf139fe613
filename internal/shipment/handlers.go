package shipment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/labelforge/orderdesk/internal/types/notification"
	"github.com/labelforge/orderdesk/internal/types/shipment"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createShipmentReq struct {
	OrderID        int64  `json:"order_id"`
	Courier        string `json:"courier"`
	TrackingNumber string `json:"tracking_number"`
	TrackingURL    string `json:"tracking_url"`
}

type createShipmentResp struct {
	Shipment          *shipment.Shipment     `json:"shipment"`
	NotificationOffer notification.EmailType `json:"notification_offer"`
}

// CreateShipment handles POST /shipments. A shipment is the precondition for
// the order_shipped transition; its creation unlocks the shipped offer.
func (h *Handler) CreateShipment(w http.ResponseWriter, r *http.Request) {
	var req createShipmentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.OrderID <= 0 {
		http.Error(w, "order_id is required", http.StatusBadRequest)
		return
	}

	sh, err := h.svc.CreateShipment(r.Context(), req.OrderID, req.Courier, req.TrackingNumber, req.TrackingURL)
	switch {
	case errors.Is(err, ErrMissingTracking), errors.Is(err, ErrNoTrackingURL):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrOrderNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case err != nil:
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(createShipmentResp{
			Shipment:          sh,
			NotificationOffer: notification.EmailOrderShipped,
		})
	}
}

// ListByOrder handles GET /orders/{id}/shipments for the operator.
func (h *Handler) ListByOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	list, err := h.svc.ListShipments(r.Context(), id)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []shipment.Shipment{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}
