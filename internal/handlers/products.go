package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/oakmart/api/internal/domain"
	"github.com/oakmart/api/internal/platform/auth"
	"github.com/oakmart/api/internal/platform/httpx"
	"github.com/oakmart/api/internal/services"
)

const maxProductBodySize = 64 * 1024

// ProductHandlers exposes the public catalog and search endpoints plus the
// admin write surface.
type ProductHandlers struct {
	authn   *auth.Authenticator
	catalog services.CatalogService
	search  services.SearchService
}

// NewProductHandlers constructs the catalog handler group.
func NewProductHandlers(authn *auth.Authenticator, catalog services.CatalogService, search services.SearchService) *ProductHandlers {
	return &ProductHandlers{
		authn:   authn,
		catalog: catalog,
		search:  search,
	}
}

// Routes wires the /products endpoints onto the provided router. Reads are
// public; writes require an admin identity.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Group(func(public chi.Router) {
		if h.authn != nil {
			public.Use(h.authn.OptionalUser())
		}
		public.Get("/", h.listProducts)
		public.Get("/featured", h.listFeatured)
		public.Get("/recommended", h.listRecommended)
		public.Get("/search", h.searchProducts)
		public.Get("/suggest", h.suggestProducts)
		public.Get("/category/{category}", h.listByCategory)
		public.Get("/{productID}", h.getProduct)
	})

	if h.authn != nil {
		r.Group(func(admin chi.Router) {
			admin.Use(h.authn.RequireAdmin())
			admin.Post("/", h.createProduct)
			admin.Delete("/{productID}", h.deleteProduct)
			admin.Patch("/{productID}/featured", h.toggleFeatured)
		})
	}
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	products, err := h.catalog.List(ctx)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"products": buildProductPayloads(products)})
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	product, err := h.catalog.Get(ctx, productID)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"product": buildProductPayload(product)})
}

func (h *ProductHandlers) listFeatured(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	summaries, err := h.catalog.ListFeatured(ctx)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"products": buildSummaryPayloads(summaries)})
}

func (h *ProductHandlers) listRecommended(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	summaries, err := h.catalog.Recommend(ctx)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"products": buildSummaryPayloads(summaries)})
}

func (h *ProductHandlers) listByCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	category := strings.TrimSpace(chi.URLParam(r, "category"))
	products, err := h.catalog.ListByCategory(ctx, category)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"products": buildProductPayloads(products)})
}

func (h *ProductHandlers) searchProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.search == nil {
		httpx.WriteError(ctx, w, httpx.NewError("search_service_unavailable", "search service is unavailable", http.StatusServiceUnavailable))
		return
	}

	filter, err := parseSearchFilter(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.search.Search(ctx, filter)
	if err != nil {
		h.writeSearchError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"products":    buildSummaryPayloads(result.Products),
		"total":       result.Total,
		"currentPage": result.Page,
		"totalPages":  result.Pages,
	})
}

func (h *ProductHandlers) suggestProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.search == nil {
		httpx.WriteError(ctx, w, httpx.NewError("search_service_unavailable", "search service is unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit must be an integer", http.StatusBadRequest))
			return
		}
		limit = parsed
	}

	summaries, err := h.search.Suggest(ctx, query.Get("q"), limit)
	if err != nil {
		h.writeSearchError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"suggestions": buildSummaryPayloads(summaries)})
}

type createProductRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Price       int64                  `json:"price"`
	Image       string                 `json:"image"`
	Category    string                 `json:"category"`
	Stock       *int                   `json:"stock"`
	IsFeatured  bool                   `json:"isFeatured"`
	Variants    []createVariantRequest `json:"variants"`
}

type createVariantRequest struct {
	SKU   string `json:"sku"`
	Color string `json:"color"`
	Size  string `json:"size"`
	Price *int64 `json:"price"`
	Stock int    `json:"stock"`
	Image string `json:"image"`
}

func (h *ProductHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxProductBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req createProductRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed JSON payload", http.StatusBadRequest))
		return
	}

	cmd := services.CreateProductCommand{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Image:       strings.TrimSpace(req.Image),
		Category:    strings.TrimSpace(req.Category),
		Stock:       req.Stock,
		IsFeatured:  req.IsFeatured,
	}
	for _, v := range req.Variants {
		cmd.Variants = append(cmd.Variants, services.CreateVariantCommand{
			SKU:   strings.TrimSpace(v.SKU),
			Color: strings.TrimSpace(v.Color),
			Size:  strings.TrimSpace(v.Size),
			Price: v.Price,
			Stock: v.Stock,
			Image: strings.TrimSpace(v.Image),
		})
	}

	product, err := h.catalog.Create(ctx, cmd)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"product": buildProductPayload(product)})
}

func (h *ProductHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if err := h.catalog.Delete(ctx, productID); err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (h *ProductHandlers) toggleFeatured(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	product, err := h.catalog.ToggleFeatured(ctx, productID)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"product": buildProductPayload(product)})
}

func parseSearchFilter(r *http.Request) (domain.SearchFilter, error) {
	query := r.URL.Query()
	filter := domain.SearchFilter{
		Query:    query.Get("q"),
		Category: strings.TrimSpace(query.Get("category")),
	}

	var err error
	if filter.Page, err = parseIntParam(query.Get("page")); err != nil {
		return domain.SearchFilter{}, errors.New("page must be an integer")
	}
	if filter.PageSize, err = parseIntParam(query.Get("limit")); err != nil {
		return domain.SearchFilter{}, errors.New("limit must be an integer")
	}
	if filter.MinPrice, err = parsePriceParam(query.Get("minPrice")); err != nil {
		return domain.SearchFilter{}, errors.New("minPrice must be an integer amount in minor units")
	}
	if filter.MaxPrice, err = parsePriceParam(query.Get("maxPrice")); err != nil {
		return domain.SearchFilter{}, errors.New("maxPrice must be an integer amount in minor units")
	}

	switch strings.TrimSpace(query.Get("sort")) {
	case "", "relevance":
		filter.Sort = domain.SearchSortRelevance
	case "price_asc":
		filter.Sort = domain.SearchSortPriceAsc
	case "price_desc":
		filter.Sort = domain.SearchSortPriceDesc
	default:
		return domain.SearchFilter{}, errors.New("sort must be one of relevance, price_asc, price_desc")
	}

	return filter, nil
}

func parseIntParam(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func parsePriceParam(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (h *ProductHandlers) writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to read catalog", http.StatusInternalServerError))
	}
}

func (h *ProductHandlers) writeSearchError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrSearchInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrSearchUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("search_service_unavailable", "search service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("search_error", "search failed", http.StatusInternalServerError))
	}
}
