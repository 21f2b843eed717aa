package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/go-chi/chi/v5"

	domain "github.com/oakmart/api/internal/domain"
	"github.com/oakmart/api/internal/platform/auth"
	"github.com/oakmart/api/internal/services"
)

func newProductRouter(catalog services.CatalogService, search services.SearchService, authn *auth.Authenticator) chi.Router {
	handler := NewProductHandlers(authn, catalog, search)
	router := chi.NewRouter()
	router.Route("/products", handler.Routes)
	return router
}

func adminAuthenticator() *auth.Authenticator {
	return auth.NewAuthenticator(&stubTokenVerifier{
		tokens: map[string]*firebaseauth.Token{
			"admin-token": {UID: "admin-1", Claims: map[string]any{"admin": true}},
			"user-token":  {UID: "user-1", Claims: map[string]any{}},
		},
	})
}

func TestProductHandlersSearch(t *testing.T) {
	var captured domain.SearchFilter
	search := &stubSearchService{
		searchFunc: func(_ context.Context, filter domain.SearchFilter) (domain.SearchResult, error) {
			captured = filter
			return domain.SearchResult{
				Products: []domain.ProductSummary{{ID: "p1", Name: "Mug", Price: 1500}},
				Total:    1,
				Page:     2,
				Pages:    3,
			}, nil
		},
	}

	router := newProductRouter(&stubCatalogService{}, search, nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/products/search?q=mug&page=2&limit=10&category=kitchen&minPrice=100&maxPrice=5000&sort=price_asc", nil)
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.Query != "mug" || captured.Page != 2 || captured.PageSize != 10 || captured.Category != "kitchen" {
		t.Fatalf("unexpected filter: %+v", captured)
	}
	if captured.MinPrice == nil || *captured.MinPrice != 100 || captured.MaxPrice == nil || *captured.MaxPrice != 5000 {
		t.Fatalf("unexpected price bounds: %+v", captured)
	}
	if captured.Sort != domain.SearchSortPriceAsc {
		t.Fatalf("unexpected sort: %q", captured.Sort)
	}

	var body struct {
		Products    []summaryPayload `json:"products"`
		Total       int              `json:"total"`
		CurrentPage int              `json:"currentPage"`
		TotalPages  int              `json:"totalPages"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Total != 1 || body.CurrentPage != 2 || body.TotalPages != 3 || len(body.Products) != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestProductHandlersSearchRejectsBadSort(t *testing.T) {
	router := newProductRouter(&stubCatalogService{}, &stubSearchService{}, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/search?q=mug&sort=name", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestProductHandlersSearchEmptyQuery(t *testing.T) {
	search := &stubSearchService{
		searchFunc: func(context.Context, domain.SearchFilter) (domain.SearchResult, error) {
			return domain.SearchResult{}, services.ErrSearchInvalidInput
		},
	}

	router := newProductRouter(&stubCatalogService{}, search, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/search", nil))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestProductHandlersSuggest(t *testing.T) {
	search := &stubSearchService{
		suggestFunc: func(_ context.Context, prefix string, limit int) ([]domain.ProductSummary, error) {
			if prefix != "mu" || limit != 5 {
				t.Fatalf("unexpected suggest args: %q %d", prefix, limit)
			}
			return []domain.ProductSummary{{ID: "p1", Name: "Mug"}}, nil
		},
	}

	router := newProductRouter(&stubCatalogService{}, search, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/suggest?q=mu&limit=5", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var body struct {
		Suggestions []summaryPayload `json:"suggestions"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(body.Suggestions) != 1 || body.Suggestions[0].Name != "Mug" {
		t.Fatalf("unexpected suggestions: %+v", body.Suggestions)
	}
}

func TestProductHandlersGetProduct(t *testing.T) {
	catalog := &stubCatalogService{
		getFunc: func(_ context.Context, productID string) (services.Product, error) {
			if productID != "prod-1" {
				t.Fatalf("unexpected product id %q", productID)
			}
			stock := 5
			return services.Product{ID: "prod-1", Name: "Mug", Price: 1500, Stock: &stock}, nil
		},
	}

	router := newProductRouter(catalog, &stubSearchService{}, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/prod-1", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestProductHandlersGetProductNotFound(t *testing.T) {
	catalog := &stubCatalogService{
		getFunc: func(context.Context, string) (services.Product, error) {
			return services.Product{}, services.ErrCatalogProductNotFound
		},
	}

	router := newProductRouter(catalog, &stubSearchService{}, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/missing", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestProductHandlersPublicReadsStayAnonymous(t *testing.T) {
	catalog := &stubCatalogService{
		listFeaturedFunc: func(context.Context) ([]services.ProductSummary, error) {
			return []services.ProductSummary{{ID: "p1", Name: "Mug", Price: 1500}}, nil
		},
	}
	router := newProductRouter(catalog, &stubSearchService{}, adminAuthenticator())

	for _, token := range []string{"", "garbage-token"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/products/featured", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("token %q: expected status 200, got %d", token, rr.Code)
		}
	}
}

func TestProductHandlersCreateRequiresAdmin(t *testing.T) {
	router := newProductRouter(&stubCatalogService{}, &stubSearchService{}, adminAuthenticator())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"name":"Mug","price":1500}`))
	req.Header.Set("Authorization", "Bearer user-token")
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
}

func TestProductHandlersCreateAsAdmin(t *testing.T) {
	var captured services.CreateProductCommand
	catalog := &stubCatalogService{
		createFunc: func(_ context.Context, cmd services.CreateProductCommand) (services.Product, error) {
			captured = cmd
			return services.Product{ID: "prod-9", Name: cmd.Name, Price: cmd.Price}, nil
		},
	}

	router := newProductRouter(catalog, &stubSearchService{}, adminAuthenticator())

	rr := httptest.NewRecorder()
	payload := `{"name":"Mug","price":1500,"category":"kitchen","variants":[{"sku":"MUG-RED","color":"red","stock":3}]}`
	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(payload))
	req.Header.Set("Authorization", "Bearer admin-token")
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Name != "Mug" || len(captured.Variants) != 1 || captured.Variants[0].SKU != "MUG-RED" {
		t.Fatalf("unexpected command: %+v", captured)
	}
}

func TestProductHandlersToggleFeatured(t *testing.T) {
	catalog := &stubCatalogService{
		toggleFunc: func(_ context.Context, productID string) (services.Product, error) {
			return services.Product{ID: productID, IsFeatured: true}, nil
		},
	}

	router := newProductRouter(catalog, &stubSearchService{}, adminAuthenticator())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/products/prod-1/featured", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}
