package basket

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/boxcart/internal/bundle"
	"github.com/noah-isme/boxcart/internal/common"
	"github.com/noah-isme/boxcart/internal/pricing"
)

// Handler wires basket services to HTTP.
type Handler struct {
	Svc      *Service
	Engine   pricing.Engine
	Validate *validator.Validate
}

type lineItemPayload struct {
	SKU string `json:"sku" validate:"required"`
	Qty int    `json:"qty" validate:"gte=1"`
}

type quotePayload struct {
	Size      string            `json:"size" validate:"required"`
	Items     []lineItemPayload `json:"items" validate:"dive"`
	Subscribe bool              `json:"subscribe"`
}

type commitPayload struct {
	Size      string            `json:"size" validate:"required"`
	Items     []lineItemPayload `json:"items" validate:"required,min=1,dive"`
	AllowSubs bool              `json:"allowSubs"`
	Subscribe bool              `json:"subscribe"`
}

type itemPayload struct {
	SKU string `json:"sku" validate:"required"`
	Qty int    `json:"qty" validate:"omitempty,gte=1"`
}

func toLineItems(in []lineItemPayload) []bundle.LineItem {
	out := make([]bundle.LineItem, 0, len(in))
	for _, it := range in {
		out = append(out, bundle.LineItem{SKU: strings.TrimSpace(it.SKU), Quantity: it.Qty})
	}
	return out
}

func basketData(s Summary) map[string]any {
	return map[string]any{"basket": s, "badge": s.Badge()}
}

// Get handles GET /api/v1/basket.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": basketData(h.Svc.View(r.Context()))})
}

// Quote handles POST /api/v1/bundles/quote: a price preview for a box being configured.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var payload quotePayload
	if !h.decode(w, r, &payload) {
		return
	}
	items := toLineItems(payload.Items)
	var sub *bundle.Subscription
	if payload.Subscribe {
		sub = &bundle.Subscription{Interval: bundle.IntervalWeekly}
		if h.Svc.Committer != nil {
			sub.Discount = h.Svc.Committer.SubscriptionDiscount
		}
	}
	resp := map[string]any{
		"size":      payload.Size,
		"itemCount": bundle.TotalCount(items),
		"pricing":   h.Engine.Quote(payload.Size, items, sub),
		"valid":     true,
	}
	if h.Svc.Committer != nil {
		if err := h.Svc.Committer.Validator.Validate(payload.Size, items); err != nil {
			appErr := toAppError(err)
			resp["valid"] = false
			resp["error"] = common.ErrorBody{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": resp})
}

// AddItem handles POST /api/v1/basket/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var payload itemPayload
	if !h.decode(w, r, &payload) {
		return
	}
	qty := payload.Qty
	if qty == 0 {
		qty = 1
	}
	summary, err := h.Svc.AddItem(r.Context(), payload.SKU, qty)
	if err != nil {
		common.WriteAppError(w, toAppError(err))
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": basketData(summary)})
}

// CommitBundle handles POST /api/v1/basket/bundles.
func (h *Handler) CommitBundle(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var payload commitPayload
	if !h.decode(w, r, &payload) {
		return
	}
	b, summary, err := h.Svc.CommitBundle(r.Context(), bundle.CommitRequest{
		Size:      payload.Size,
		Items:     toLineItems(payload.Items),
		AllowSubs: payload.AllowSubs,
		Subscribe: payload.Subscribe,
	})
	if err != nil {
		common.WriteAppError(w, toAppError(err))
		return
	}
	data := basketData(summary)
	data["bundle"] = b
	common.JSON(w, http.StatusCreated, map[string]any{"data": data})
}

// RemoveEntry handles DELETE /api/v1/basket/entries/{index}. A stale index is a no-op.
func (h *Handler) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid entry index", nil)
		return
	}
	summary, removed, err := h.Svc.RemoveAt(r.Context(), index)
	if err != nil {
		common.WriteAppError(w, toAppError(err))
		return
	}
	data := basketData(summary)
	data["removed"] = removed
	common.JSON(w, http.StatusOK, map[string]any{"data": data})
}

// Clear handles DELETE /api/v1/basket.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	summary, err := h.Svc.Clear(r.Context())
	if err != nil {
		common.WriteAppError(w, toAppError(err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": basketData(summary)})
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.Svc == nil || h.Svc.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "basket service not configured", nil)
		return false
	}
	return true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json payload", nil)
		return false
	}
	if h.Validate == nil {
		return true
	}
	if err := h.Validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := make([]map[string]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				details = append(details, map[string]string{"field": fe.Namespace(), "rule": fe.Tag()})
			}
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", details)
			return false
		}
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	return true
}

func toAppError(err error) *common.AppError {
	var rangeErr *bundle.CountOutOfRangeError
	switch {
	case errors.As(err, &rangeErr):
		return common.NewAppError("COUNT_OUT_OF_RANGE", rangeErr.Error(), http.StatusUnprocessableEntity, err).
			WithDetails(map[string]int{"min": rangeErr.Min, "max": rangeErr.Max, "actual": rangeErr.Actual})
	case errors.Is(err, bundle.ErrUnknownTier):
		return common.NewAppError("UNKNOWN_TIER", "invalid box size", http.StatusBadRequest, err)
	case errors.Is(err, bundle.ErrInvalidLineItem), errors.Is(err, ErrInvalidInput):
		return common.NewAppError("BAD_REQUEST", err.Error(), http.StatusBadRequest, err)
	default:
		return common.NewAppError("INTERNAL", "unable to update basket", http.StatusInternalServerError, err)
	}
}
