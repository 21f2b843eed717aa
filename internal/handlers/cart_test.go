package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/oakmart/api/internal/platform/auth"
	"github.com/oakmart/api/internal/services"
)

func newCartRouter(service services.CartService) chi.Router {
	handler := NewCartHandlers(nil, service)
	router := chi.NewRouter()
	router.Route("/cart", handler.Routes)
	return router
}

func authedRequest(method, target, body string, uid string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if uid != "" {
		req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid, Roles: []string{auth.RoleUser}}))
	}
	return req
}

func TestCartHandlersGetCart(t *testing.T) {
	service := &stubCartService{
		listFunc: func(_ context.Context, userID string) ([]services.CartView, error) {
			if userID != "user-7" {
				t.Fatalf("unexpected user id %q", userID)
			}
			return []services.CartView{
				{ProductID: "prod-1", Name: "Mug", Price: 1500, Quantity: 2},
			}, nil
		},
	}

	router := newCartRouter(service)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/cart", "", "user-7"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var body struct {
		Items []cartItemPayload `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].ProductID != "prod-1" || body.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items payload: %+v", body.Items)
	}
}

func TestCartHandlersGetCartRequiresIdentity(t *testing.T) {
	router := newCartRouter(&stubCartService{})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodGet, "/cart", "", ""))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestCartHandlersAddItem(t *testing.T) {
	var captured services.AddCartLineCommand
	service := &stubCartService{
		addFunc: func(_ context.Context, cmd services.AddCartLineCommand) ([]services.CartView, error) {
			captured = cmd
			return []services.CartView{{ProductID: cmd.ProductID, Quantity: 1}}, nil
		},
	}

	router := newCartRouter(service)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/cart", `{"productId":"prod-1","variantKey":"SKU-RED"}`, "user-7"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.UserID != "user-7" || captured.ProductID != "prod-1" || captured.VariantKey != "SKU-RED" {
		t.Fatalf("unexpected command: %+v", captured)
	}
}

func TestCartHandlersAddItemRequiresProductID(t *testing.T) {
	router := newCartRouter(&stubCartService{})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/cart", `{"variantKey":"SKU-RED"}`, "user-7"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestCartHandlersSetQuantity(t *testing.T) {
	var captured services.SetCartQuantityCommand
	service := &stubCartService{
		setQuantityFunc: func(_ context.Context, cmd services.SetCartQuantityCommand) ([]services.CartView, error) {
			captured = cmd
			return []services.CartView{}, nil
		},
	}

	router := newCartRouter(service)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPut, "/cart/prod-1", `{"quantity":0}`, "user-7"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.ProductID != "prod-1" || captured.Quantity != 0 {
		t.Fatalf("unexpected command: %+v", captured)
	}
}

func TestCartHandlersSetQuantityRequiresQuantity(t *testing.T) {
	router := newCartRouter(&stubCartService{})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPut, "/cart/prod-1", `{"variantKey":"SKU-RED"}`, "user-7"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestCartHandlersSetQuantityExceedsStock(t *testing.T) {
	service := &stubCartService{
		setQuantityFunc: func(context.Context, services.SetCartQuantityCommand) ([]services.CartView, error) {
			return nil, services.ErrCartExceedsStock
		},
	}

	router := newCartRouter(service)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPut, "/cart/prod-1", `{"quantity":99}`, "user-7"))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestCartHandlersRemoveItemEmptyBodyClearsCart(t *testing.T) {
	var captured services.RemoveCartLineCommand
	service := &stubCartService{
		removeFunc: func(_ context.Context, cmd services.RemoveCartLineCommand) ([]services.CartView, error) {
			captured = cmd
			return []services.CartView{}, nil
		},
	}

	router := newCartRouter(service)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodDelete, "/cart", "", "user-7"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.ProductID != "" {
		t.Fatalf("expected empty product id, got %q", captured.ProductID)
	}
}

func TestCartHandlersProductNotFound(t *testing.T) {
	service := &stubCartService{
		addFunc: func(context.Context, services.AddCartLineCommand) ([]services.CartView, error) {
			return nil, services.ErrCartProductNotFound
		},
	}

	router := newCartRouter(service)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedRequest(http.MethodPost, "/cart", `{"productId":"missing"}`, "user-7"))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
