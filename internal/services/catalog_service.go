package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	domain "github.com/oakmart/api/internal/domain"
	"github.com/oakmart/api/internal/platform/cache"
	"github.com/oakmart/api/internal/repositories"
)

var (
	// ErrCatalogInvalidInput indicates a missing or malformed catalog command field.
	ErrCatalogInvalidInput = errors.New("catalog input is invalid")
	// ErrCatalogProductNotFound indicates the product does not exist.
	ErrCatalogProductNotFound = errors.New("product not found")
	// ErrCatalogUnavailable indicates the catalog store is temporarily unreachable.
	ErrCatalogUnavailable = errors.New("catalog store unavailable")
	// ErrCatalogDependencyMissing indicates the service was constructed without required dependencies.
	ErrCatalogDependencyMissing = errors.New("catalog service dependency missing")
)

const (
	featuredCacheKey = featuredCachePrefix + "all"
	recommendCount   = 4
)

// CatalogLogger defines the logging contract for catalog operations.
type CatalogLogger func(ctx context.Context, event string, fields map[string]any)

// CatalogServiceDeps bundles dependencies required to construct a CatalogService implementation.
type CatalogServiceDeps struct {
	Products repositories.ProductRepository
	Cache    cache.Store
	// FeaturedTTL bounds the featured listing cache; defaults to five minutes.
	FeaturedTTL time.Duration
	Clock       func() time.Time
	Logger      CatalogLogger
	IDGenerator func() string
}

type catalogService struct {
	products    repositories.ProductRepository
	cache       cache.Store
	featuredTTL time.Duration
	clock       func() time.Time
	logger      CatalogLogger
	newID       func() string
}

// NewCatalogService wires a CatalogService backed by the product repository.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil || deps.Cache == nil || deps.IDGenerator == nil {
		return nil, ErrCatalogDependencyMissing
	}
	featuredTTL := deps.FeaturedTTL
	if featuredTTL <= 0 {
		featuredTTL = 5 * time.Minute
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &catalogService{
		products:    deps.Products,
		cache:       deps.Cache,
		featuredTTL: featuredTTL,
		clock:       func() time.Time { return clock().UTC() },
		logger:      logger,
		newID:       deps.IDGenerator,
	}, nil
}

func (s *catalogService) List(ctx context.Context) ([]Product, error) {
	products, err := s.products.List(ctx, repositories.ProductListFilter{})
	if err != nil {
		return nil, translateCatalogError(err)
	}
	return products, nil
}

func (s *catalogService) Get(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, ErrCatalogInvalidInput
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if isRepoNotFound(err) {
			return Product{}, ErrCatalogProductNotFound
		}
		return Product{}, translateCatalogError(err)
	}
	return product, nil
}

func (s *catalogService) ListFeatured(ctx context.Context) ([]ProductSummary, error) {
	if cached, ok, err := s.cache.Get(ctx, featuredCacheKey); err == nil && ok {
		var summaries []cachedSummary
		if err := json.Unmarshal(cached, &summaries); err == nil {
			return toDomainSummaries(summaries), nil
		}
	}

	products, err := s.products.List(ctx, repositories.ProductListFilter{FeaturedOnly: true})
	if err != nil {
		return nil, translateCatalogError(err)
	}
	summaries := make([]ProductSummary, 0, len(products))
	for _, product := range products {
		summaries = append(summaries, product.Summary())
	}

	if raw, err := json.Marshal(toCachedSummaries(summaries)); err == nil {
		if err := s.cache.Set(ctx, featuredCacheKey, raw, s.featuredTTL); err != nil {
			s.logger(ctx, "catalog.cache.set_failed", map[string]any{"key": featuredCacheKey, "error": err.Error()})
		}
	}
	return summaries, nil
}

func (s *catalogService) ListByCategory(ctx context.Context, category string) ([]Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, ErrCatalogInvalidInput
	}
	products, err := s.products.List(ctx, repositories.ProductListFilter{Category: category})
	if err != nil {
		return nil, translateCatalogError(err)
	}
	return products, nil
}

func (s *catalogService) Recommend(ctx context.Context) ([]ProductSummary, error) {
	products, err := s.products.Sample(ctx, recommendCount)
	if err != nil {
		return nil, translateCatalogError(err)
	}
	summaries := make([]ProductSummary, 0, len(products))
	for _, product := range products {
		summaries = append(summaries, product.Summary())
	}
	return summaries, nil
}

func (s *catalogService) Create(ctx context.Context, cmd CreateProductCommand) (Product, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" || cmd.Price <= 0 {
		return Product{}, ErrCatalogInvalidInput
	}

	now := s.clock()
	product := domain.Product{
		ID:          s.newID(),
		Name:        name,
		Description: strings.TrimSpace(cmd.Description),
		Price:       cmd.Price,
		Image:       strings.TrimSpace(cmd.Image),
		Category:    strings.TrimSpace(cmd.Category),
		Stock:       cmd.Stock,
		IsFeatured:  cmd.IsFeatured,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, variant := range cmd.Variants {
		sku := strings.TrimSpace(variant.SKU)
		if sku == "" {
			return Product{}, ErrCatalogInvalidInput
		}
		image := strings.TrimSpace(variant.Image)
		if image == "" {
			image = product.Image
		}
		product.Variants = append(product.Variants, domain.Variant{
			ID:    s.newID(),
			SKU:   sku,
			Color: strings.TrimSpace(variant.Color),
			Size:  strings.TrimSpace(variant.Size),
			Price: variant.Price,
			Stock: variant.Stock,
			Image: image,
		})
	}
	product.SearchKeywords = domain.SearchTokens(product.Name, product.Description, product.Category)

	created, err := s.products.Insert(ctx, product)
	if err != nil {
		return Product{}, translateCatalogError(err)
	}

	s.invalidateCaches(ctx)
	s.logger(ctx, "catalog.product.created", map[string]any{"product_id": created.ID})
	return created, nil
}

func (s *catalogService) Delete(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ErrCatalogInvalidInput
	}
	if err := s.products.Delete(ctx, productID); err != nil {
		if isRepoNotFound(err) {
			return ErrCatalogProductNotFound
		}
		return translateCatalogError(err)
	}
	s.invalidateCaches(ctx)
	s.logger(ctx, "catalog.product.deleted", map[string]any{"product_id": productID})
	return nil
}

func (s *catalogService) ToggleFeatured(ctx context.Context, productID string) (Product, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return Product{}, err
	}
	product.IsFeatured = !product.IsFeatured
	product.UpdatedAt = s.clock()

	updated, err := s.products.Update(ctx, product)
	if err != nil {
		return Product{}, translateCatalogError(err)
	}
	s.invalidateCaches(ctx)
	return updated, nil
}

// invalidateCaches drops every derived read namespace after a catalog write.
// Coarse on purpose: entries rebuild on the next read.
func (s *catalogService) invalidateCaches(ctx context.Context) {
	for _, prefix := range []string{searchCachePrefix, suggestCachePrefix, featuredCachePrefix} {
		if err := s.cache.InvalidatePrefix(ctx, prefix); err != nil {
			s.logger(ctx, "catalog.cache.invalidate_failed", map[string]any{"prefix": prefix, "error": err.Error()})
		}
	}
}

func translateCatalogError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
		return ErrCatalogUnavailable
	}
	return err
}
