package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	domain "github.com/oakmart/api/internal/domain"
	"github.com/oakmart/api/internal/platform/auth"
	"github.com/oakmart/api/internal/platform/httpx"
)

var (
	errEmptyBody    = errors.New("request body is empty")
	errBodyTooLarge = errors.New("request body too large")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = 16 * 1024
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

// requireIdentity resolves the authenticated identity or writes a 401 response.
func requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

type variantPayload struct {
	ID    string `json:"id"`
	SKU   string `json:"sku"`
	Color string `json:"color,omitempty"`
	Size  string `json:"size,omitempty"`
	Price *int64 `json:"price,omitempty"`
	Stock int    `json:"stock"`
	Image string `json:"image,omitempty"`
}

type productPayload struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Price       int64            `json:"price"`
	Image       string           `json:"image,omitempty"`
	Category    string           `json:"category,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	IsFeatured  bool             `json:"isFeatured"`
	Variants    []variantPayload `json:"variants,omitempty"`
	CreatedAt   string           `json:"createdAt,omitempty"`
}

func buildProductPayload(p domain.Product) productPayload {
	payload := productPayload{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Category:    p.Category,
		Stock:       p.Stock,
		IsFeatured:  p.IsFeatured,
		CreatedAt:   formatTime(p.CreatedAt),
	}
	for _, v := range p.Variants {
		payload.Variants = append(payload.Variants, variantPayload{
			ID:    v.ID,
			SKU:   v.SKU,
			Color: v.Color,
			Size:  v.Size,
			Price: v.Price,
			Stock: v.Stock,
			Image: v.Image,
		})
	}
	return payload
}

func buildProductPayloads(products []domain.Product) []productPayload {
	payloads := make([]productPayload, 0, len(products))
	for _, p := range products {
		payloads = append(payloads, buildProductPayload(p))
	}
	return payloads
}

type summaryPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	Image       string `json:"image,omitempty"`
	Category    string `json:"category,omitempty"`
}

func buildSummaryPayloads(summaries []domain.ProductSummary) []summaryPayload {
	payloads := make([]summaryPayload, 0, len(summaries))
	for _, s := range summaries {
		payloads = append(payloads, summaryPayload(s))
	}
	return payloads
}

type cartVariantPayload struct {
	SKU   string `json:"sku"`
	Color string `json:"color,omitempty"`
	Size  string `json:"size,omitempty"`
}

type cartItemPayload struct {
	ProductID  string              `json:"productId"`
	Name       string              `json:"name"`
	Image      string              `json:"image,omitempty"`
	Price      int64               `json:"price"`
	Quantity   int                 `json:"quantity"`
	VariantKey string              `json:"variantKey,omitempty"`
	Variant    *cartVariantPayload `json:"variant,omitempty"`
}

type cartResponse struct {
	Items []cartItemPayload `json:"items"`
}

func buildCartResponse(views []domain.CartView) cartResponse {
	items := make([]cartItemPayload, 0, len(views))
	for _, v := range views {
		item := cartItemPayload{
			ProductID:  v.ProductID,
			Name:       v.Name,
			Image:      v.Image,
			Price:      v.Price,
			Quantity:   v.Quantity,
			VariantKey: v.VariantKey,
		}
		if v.Variant != nil {
			item.Variant = &cartVariantPayload{
				SKU:   v.Variant.SKU,
				Color: v.Variant.Color,
				Size:  v.Variant.Size,
			}
		}
		items = append(items, item)
	}
	return cartResponse{Items: items}
}

type couponPayload struct {
	ID                 string `json:"id"`
	Code               string `json:"code"`
	DiscountPercentage int    `json:"discountPercentage"`
	ExpirationDate     string `json:"expirationDate"`
	IsActive           bool   `json:"isActive"`
	UserID             string `json:"userId,omitempty"`
}

func buildCouponPayload(c domain.Coupon) couponPayload {
	return couponPayload{
		ID:                 c.ID,
		Code:               c.Code,
		DiscountPercentage: c.DiscountPercentage,
		ExpirationDate:     formatTime(c.ExpirationDate),
		IsActive:           c.IsActive,
		UserID:             c.UserID,
	}
}

type shippingPayload struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type orderLinePayload struct {
	ProductID string `json:"productId"`
	Name      string `json:"name,omitempty"`
	Image     string `json:"image,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

type orderPayload struct {
	ID            string             `json:"id"`
	TotalAmount   int64              `json:"totalAmount"`
	PaymentMethod string             `json:"paymentMethod"`
	PaymentRef    string             `json:"paymentRef,omitempty"`
	Shipping      *shippingPayload   `json:"shipping,omitempty"`
	Products      []orderLinePayload `json:"products"`
	CreatedAt     string             `json:"createdAt,omitempty"`
}

func buildOrderPayload(order domain.Order) orderPayload {
	payload := orderPayload{
		ID:            order.ID,
		TotalAmount:   order.TotalAmount,
		PaymentMethod: string(order.PaymentMethod),
		PaymentRef:    order.PaymentRef,
		CreatedAt:     formatTime(order.CreatedAt),
	}
	if order.Shipping != nil {
		payload.Shipping = &shippingPayload{
			Name:    order.Shipping.Name,
			Address: order.Shipping.Address,
			Phone:   order.Shipping.Phone,
		}
	}
	payload.Products = make([]orderLinePayload, 0, len(order.Lines))
	for _, line := range order.Lines {
		payload.Products = append(payload.Products, orderLinePayload{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return payload
}

func buildOrderViewPayload(view domain.OrderView) orderPayload {
	payload := buildOrderPayload(view.Order)
	payload.Products = make([]orderLinePayload, 0, len(view.Products))
	for _, line := range view.Products {
		payload.Products = append(payload.Products, orderLinePayload{
			ProductID: line.ProductID,
			Name:      line.Name,
			Image:     line.Image,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return payload
}
