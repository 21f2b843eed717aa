package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/oakmart/api/internal/platform/auth"
	"github.com/oakmart/api/internal/platform/httpx"
	"github.com/oakmart/api/internal/services"
)

const maxPaymentBodySize = 64 * 1024

// PaymentHandlers exposes the card, wallet and cash-on-delivery checkout
// endpoints for the authenticated user.
type PaymentHandlers struct {
	authn    *auth.Authenticator
	checkout services.CheckoutService
}

// NewPaymentHandlers constructs the checkout handler group.
func NewPaymentHandlers(authn *auth.Authenticator, checkout services.CheckoutService) *PaymentHandlers {
	return &PaymentHandlers{
		authn:    authn,
		checkout: checkout,
	}
}

// Routes wires the /payments endpoints onto the provided router.
func (h *PaymentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireUser())
	}
	r.Post("/card/session", h.createCardSession)
	r.Post("/card/confirm", h.confirmCardPayment)
	r.Post("/wallet/initiate", h.initiateWalletPayment)
	r.Post("/wallet/verify", h.verifyWalletPayment)
	r.Post("/cod", h.placeCashOnDelivery)
}

type checkoutLineRequest struct {
	ProductID  string `json:"productId"`
	Name       string `json:"name"`
	Image      string `json:"image"`
	VariantKey string `json:"variantKey"`
	Quantity   int    `json:"quantity"`
	Price      int64  `json:"price"`
}

func buildCheckoutLines(lines []checkoutLineRequest) []services.CheckoutLine {
	out := make([]services.CheckoutLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, services.CheckoutLine{
			ProductID:  strings.TrimSpace(line.ProductID),
			Name:       strings.TrimSpace(line.Name),
			Image:      strings.TrimSpace(line.Image),
			VariantKey: strings.TrimSpace(line.VariantKey),
			Quantity:   line.Quantity,
			UnitPrice:  line.Price,
		})
	}
	return out
}

type cardSessionRequest struct {
	Products   []checkoutLineRequest `json:"products"`
	CouponCode string                `json:"couponCode"`
}

func (h *PaymentHandlers) createCardSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxPaymentBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req cardSessionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed JSON payload", http.StatusBadRequest))
		return
	}

	result, err := h.checkout.CreateCardSession(ctx, services.CardSessionCommand{
		UserID:     identity.UID,
		Lines:      buildCheckoutLines(req.Products),
		CouponCode: strings.TrimSpace(req.CouponCode),
	})
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"sessionId":   result.SessionID,
		"url":         result.URL,
		"totalAmount": result.TotalAmount,
	})
}

type confirmCardRequest struct {
	SessionID string `json:"sessionId"`
}

func (h *PaymentHandlers) confirmCardPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxPaymentBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req confirmCardRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed JSON payload", http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "sessionId is required", http.StatusBadRequest))
		return
	}

	order, err := h.checkout.ConfirmCardPayment(ctx, services.ConfirmCardCommand{
		UserID:    identity.UID,
		SessionID: strings.TrimSpace(req.SessionID),
	})
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"order": buildOrderPayload(order)})
}

type walletPaymentRequest struct {
	Products   []checkoutLineRequest `json:"products"`
	CouponCode string                `json:"couponCode"`
}

func (h *PaymentHandlers) initiateWalletPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxPaymentBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req walletPaymentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed JSON payload", http.StatusBadRequest))
		return
	}

	result, err := h.checkout.CreateWalletPayment(ctx, services.WalletPaymentCommand{
		UserID:     identity.UID,
		Lines:      buildCheckoutLines(req.Products),
		CouponCode: strings.TrimSpace(req.CouponCode),
	})
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"paymentId":   result.PaymentID,
		"paymentUrl":  result.PaymentURL,
		"fields":      result.Fields,
		"totalAmount": result.TotalAmount,
	})
}

type walletVerifyRequest struct {
	PaymentID  string                `json:"paymentId"`
	RefID      string                `json:"refId"`
	Amount     int64                 `json:"amount"`
	Products   []checkoutLineRequest `json:"products"`
	CouponCode string                `json:"couponCode"`
}

func (h *PaymentHandlers) verifyWalletPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxPaymentBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req walletVerifyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed JSON payload", http.StatusBadRequest))
		return
	}
	if strings.TrimSpace(req.PaymentID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "paymentId is required", http.StatusBadRequest))
		return
	}

	order, err := h.checkout.VerifyWalletPayment(ctx, services.WalletVerifyCommand{
		UserID:     identity.UID,
		PaymentID:  strings.TrimSpace(req.PaymentID),
		RefID:      strings.TrimSpace(req.RefID),
		Amount:     req.Amount,
		Lines:      buildCheckoutLines(req.Products),
		CouponCode: strings.TrimSpace(req.CouponCode),
	})
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"order": buildOrderPayload(order)})
}

type cashOnDeliveryRequest struct {
	Products   []checkoutLineRequest `json:"products"`
	CouponCode string                `json:"couponCode"`
	Shipping   shippingPayload       `json:"shipping"`
}

func (h *PaymentHandlers) placeCashOnDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxPaymentBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req cashOnDeliveryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed JSON payload", http.StatusBadRequest))
		return
	}

	order, err := h.checkout.PlaceCashOnDelivery(ctx, services.CashOnDeliveryCommand{
		UserID:     identity.UID,
		Lines:      buildCheckoutLines(req.Products),
		CouponCode: strings.TrimSpace(req.CouponCode),
		Shipping: services.ShippingInfo{
			Name:    strings.TrimSpace(req.Shipping.Name),
			Address: strings.TrimSpace(req.Shipping.Address),
			Phone:   strings.TrimSpace(req.Shipping.Phone),
		},
	})
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"order": buildOrderPayload(order)})
}

func (h *PaymentHandlers) writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("empty_cart", "at least one product is required", http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutShippingRequired):
		httpx.WriteError(ctx, w, httpx.NewError("shipping_required", "shipping name, address and phone are required", http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutSessionNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("session_not_found", "checkout session not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCheckoutPaymentPending):
		httpx.WriteError(ctx, w, httpx.NewError("payment_pending", "payment has not completed", http.StatusPaymentRequired))
	case errors.Is(err, services.ErrCheckoutVerificationFailed):
		httpx.WriteError(ctx, w, httpx.NewError("verification_failed", "payment verification failed", http.StatusPaymentRequired))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout is temporarily unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "checkout failed", http.StatusInternalServerError))
	}
}
