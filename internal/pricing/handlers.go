package pricing

import (
	"encoding/json"
	"net/http"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type validatePromoReq struct {
	Code     string  `json:"code"`
	Subtotal float64 `json:"subtotal"`
	Email    string  `json:"email"`
}

type validatePromoResp struct {
	Valid      bool    `json:"valid"`
	Discount   float64 `json:"discount"`
	FinalTotal float64 `json:"final_total"`
	Reason     string  `json:"reason,omitempty"`
}

// ValidatePromo checks a code against a subtotal. The reason stays generic:
// it never says whether the code exists, is inactive or is restricted.
func (h *Handler) ValidatePromo(w http.ResponseWriter, r *http.Request) {
	var req validatePromoReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Code == "" || req.Subtotal < 0 {
		http.Error(w, "code and a non-negative subtotal are required", http.StatusBadRequest)
		return
	}

	res, err := h.svc.ApplyPromo(r.Context(), req.Code, req.Email, req.Subtotal)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := validatePromoResp{
		Discount:   res.Discount,
		FinalTotal: res.FinalTotal,
	}
	if res.AppliedCode != nil {
		resp.Valid = true
	} else {
		resp.Reason = "code is not valid for this order"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
