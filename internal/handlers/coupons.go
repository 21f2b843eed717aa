package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oakmart/api/internal/platform/auth"
	"github.com/oakmart/api/internal/platform/httpx"
	"github.com/oakmart/api/internal/services"
)

const maxCouponBodySize = 8 * 1024

// CouponHandlers exposes coupon lookup and validation for users and the
// ledger admin surface.
type CouponHandlers struct {
	authn   *auth.Authenticator
	coupons services.CouponService
}

// NewCouponHandlers constructs the coupon handler group.
func NewCouponHandlers(authn *auth.Authenticator, coupons services.CouponService) *CouponHandlers {
	return &CouponHandlers{
		authn:   authn,
		coupons: coupons,
	}
}

// Routes wires the /coupons endpoints onto the provided router.
func (h *CouponHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}

	r.Group(func(user chi.Router) {
		if h.authn != nil {
			user.Use(h.authn.RequireUser())
		}
		user.Get("/", h.getCoupon)
		user.Post("/validate", h.validateCoupon)
	})

	if h.authn != nil {
		r.Group(func(admin chi.Router) {
			admin.Use(h.authn.RequireAdmin())
			admin.Get("/all", h.listCoupons)
			admin.Post("/", h.createCoupon)
			admin.Delete("/{couponID}", h.deleteCoupon)
		})
	}
}

func (h *CouponHandlers) getCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	coupon, err := h.coupons.GetForUser(ctx, identity.UID)
	if err != nil {
		h.writeCouponError(ctx, w, err)
		return
	}
	if coupon == nil {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"coupon": nil})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"coupon": buildCouponPayload(*coupon)})
}

type validateCouponRequest struct {
	Code string `json:"code"`
}

func (h *CouponHandlers) validateCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCouponBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req validateCouponRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed JSON payload", http.StatusBadRequest))
		return
	}

	validation, err := h.coupons.Validate(ctx, req.Code, identity.UID)
	if err != nil {
		h.writeCouponError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"valid":              true,
		"code":               validation.Code,
		"discountPercentage": validation.DiscountPercentage,
	})
}

func (h *CouponHandlers) listCoupons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
		return
	}

	coupons, err := h.coupons.List(ctx)
	if err != nil {
		h.writeCouponError(ctx, w, err)
		return
	}

	payloads := make([]couponPayload, 0, len(coupons))
	for _, c := range coupons {
		payloads = append(payloads, buildCouponPayload(c))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"coupons": payloads})
}

type createCouponRequest struct {
	Code               string `json:"code"`
	DiscountPercentage int    `json:"discountPercentage"`
	ExpirationDate     string `json:"expirationDate"`
	UserID             string `json:"userId"`
}

func (h *CouponHandlers) createCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxCouponBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req createCouponRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed JSON payload", http.StatusBadRequest))
		return
	}

	expiration, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ExpirationDate))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "expirationDate must be an RFC 3339 timestamp", http.StatusBadRequest))
		return
	}

	coupon, err := h.coupons.Create(ctx, services.CreateCouponCommand{
		Code:               req.Code,
		DiscountPercentage: req.DiscountPercentage,
		ExpirationDate:     expiration,
		UserID:             strings.TrimSpace(req.UserID),
	})
	if err != nil {
		h.writeCouponError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"coupon": buildCouponPayload(coupon)})
}

func (h *CouponHandlers) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
		return
	}

	couponID := strings.TrimSpace(chi.URLParam(r, "couponID"))
	if err := h.coupons.Delete(ctx, couponID); err != nil {
		h.writeCouponError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *CouponHandlers) writeCouponError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCouponInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCouponNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_not_found", "coupon not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCouponExpired):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_expired", "coupon has expired", http.StatusGone))
	case errors.Is(err, services.ErrCouponCodeExists):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_code_exists", "a coupon with this code already exists", http.StatusConflict))
	case errors.Is(err, services.ErrCouponUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("coupon_error", "coupon operation failed", http.StatusInternalServerError))
	}
}
