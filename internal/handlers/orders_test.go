package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/oakmart/api/internal/domain"
	"github.com/oakmart/api/internal/services"
)

func newOrderRouter(orders services.OrderService) chi.Router {
	handler := NewOrderHandlers(nil, orders)
	router := chi.NewRouter()
	router.Route("/orders", handler.Routes)
	return router
}

func TestOrderHandlersListOrders(t *testing.T) {
	created := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)
	orders := &stubOrderService{
		listFunc: func(_ context.Context, userID string) ([]services.OrderView, error) {
			if userID != "user-7" {
				t.Fatalf("unexpected user id %q", userID)
			}
			return []services.OrderView{
				{
					Order: domain.Order{
						ID:            "order-1",
						UserID:        "user-7",
						TotalAmount:   2700,
						PaymentMethod: domain.PaymentMethodCard,
						PaymentRef:    "cs_1",
						CreatedAt:     created,
					},
					Products: []domain.OrderLineView{
						{
							OrderLine: domain.OrderLine{ProductID: "prod-1", Quantity: 2, UnitPrice: 1500},
							Name:      "Mug",
							Image:     "https://img.example/mug.png",
						},
					},
				},
			}, nil
		},
	}

	router := newOrderRouter(orders)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/orders", "", "user-7"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var body struct {
		Orders []orderPayload `json:"orders"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(body.Orders) != 1 {
		t.Fatalf("expected one order, got %d", len(body.Orders))
	}
	order := body.Orders[0]
	if order.ID != "order-1" || order.TotalAmount != 2700 || order.PaymentMethod != "card" {
		t.Fatalf("unexpected order payload: %+v", order)
	}
	if len(order.Products) != 1 || order.Products[0].Name != "Mug" {
		t.Fatalf("unexpected products payload: %+v", order.Products)
	}
}

func TestOrderHandlersGetOrderNotFound(t *testing.T) {
	orders := &stubOrderService{
		getFunc: func(context.Context, string, string) (services.OrderView, error) {
			return services.OrderView{}, services.ErrOrderNotFound
		},
	}

	router := newOrderRouter(orders)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/orders/missing", "", "user-7"))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestOrderHandlersRequireIdentity(t *testing.T) {
	router := newOrderRouter(&stubOrderService{})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/orders", "", ""))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}
