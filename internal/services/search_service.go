package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/oakmart/api/internal/domain"
	"github.com/oakmart/api/internal/platform/cache"
	"github.com/oakmart/api/internal/repositories"
)

var (
	// ErrSearchInvalidInput indicates a missing or malformed search parameter.
	ErrSearchInvalidInput = errors.New("search query is required")
	// ErrSearchUnavailable indicates the catalog store is temporarily unreachable.
	ErrSearchUnavailable = errors.New("search store unavailable")
	// ErrSearchDependencyMissing indicates the service was constructed without required dependencies.
	ErrSearchDependencyMissing = errors.New("search service dependency missing")
)

const (
	searchCachePrefix   = "search:"
	suggestCachePrefix  = "suggest:"
	featuredCachePrefix = "featured:"

	defaultPageSize = 20
	maxPageSize     = 100
	defaultSuggest  = 6
	maxSuggest      = 20
)

// SearchLogger defines the logging contract for search operations.
type SearchLogger func(ctx context.Context, event string, fields map[string]any)

// SearchServiceDeps bundles dependencies required to construct a SearchService implementation.
type SearchServiceDeps struct {
	Products   repositories.ProductRepository
	Cache      cache.Store
	SearchTTL  time.Duration
	SuggestTTL time.Duration
	Logger     SearchLogger
}

type searchService struct {
	products   repositories.ProductRepository
	cache      cache.Store
	searchTTL  time.Duration
	suggestTTL time.Duration
	logger     SearchLogger
}

// NewSearchService wires a SearchService backed by the catalog repository and
// a cache store.
func NewSearchService(deps SearchServiceDeps) (SearchService, error) {
	if deps.Products == nil || deps.Cache == nil {
		return nil, ErrSearchDependencyMissing
	}
	searchTTL := deps.SearchTTL
	if searchTTL <= 0 {
		searchTTL = 60 * time.Second
	}
	suggestTTL := deps.SuggestTTL
	if suggestTTL <= 0 {
		suggestTTL = 30 * time.Second
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &searchService{
		products:   deps.Products,
		cache:      deps.Cache,
		searchTTL:  searchTTL,
		suggestTTL: suggestTTL,
		logger:     logger,
	}, nil
}

// Search answers through the cache first. A fresh entry under the exact
// filter tuple is returned as stored; otherwise the keyword index runs, with
// the substring scan as fallback only when the index yields zero rows.
func (s *searchService) Search(ctx context.Context, filter SearchFilter) (SearchResult, error) {
	filter.Query = strings.TrimSpace(filter.Query)
	if filter.Query == "" {
		return SearchResult{}, ErrSearchInvalidInput
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = defaultPageSize
	}
	if filter.PageSize > maxPageSize {
		filter.PageSize = maxPageSize
	}

	key := searchCacheKey(filter)
	if cached, ok := s.cacheGet(ctx, key); ok {
		var result cachedSearchResult
		if err := json.Unmarshal(cached, &result); err == nil {
			return result.toDomain(), nil
		}
	}

	summaries, total, err := s.products.SearchKeywords(ctx, filter)
	if err != nil {
		return SearchResult{}, translateSearchError(err)
	}
	if total == 0 {
		summaries, total, err = s.products.SearchSubstring(ctx, filter)
		if err != nil {
			return SearchResult{}, translateSearchError(err)
		}
	}
	if summaries == nil {
		summaries = []ProductSummary{}
	}

	result := SearchResult{
		Products: summaries,
		Total:    total,
		Page:     filter.Page,
		Pages:    pageCount(total, filter.PageSize),
	}
	s.cacheSet(ctx, key, newCachedSearchResult(result), s.searchTTL)
	return result, nil
}

// Suggest returns name-prefix completions through the cache.
func (s *searchService) Suggest(ctx context.Context, prefix string, limit int) ([]ProductSummary, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []ProductSummary{}, nil
	}
	if limit <= 0 {
		limit = defaultSuggest
	}
	if limit > maxSuggest {
		limit = maxSuggest
	}

	key := fmt.Sprintf("%s%s:%d", suggestCachePrefix, strings.ToLower(prefix), limit)
	if cached, ok := s.cacheGet(ctx, key); ok {
		var summaries []cachedSummary
		if err := json.Unmarshal(cached, &summaries); err == nil {
			return toDomainSummaries(summaries), nil
		}
	}

	summaries, err := s.products.SuggestByPrefix(ctx, prefix, limit)
	if err != nil {
		return nil, translateSearchError(err)
	}
	if summaries == nil {
		summaries = []ProductSummary{}
	}
	s.cacheSet(ctx, key, toCachedSummaries(summaries), s.suggestTTL)
	return summaries, nil
}

// Invalidate drops the search, suggestion and featured namespaces wholesale.
func (s *searchService) Invalidate(ctx context.Context) error {
	for _, prefix := range []string{searchCachePrefix, suggestCachePrefix, featuredCachePrefix} {
		if err := s.cache.InvalidatePrefix(ctx, prefix); err != nil {
			return err
		}
	}
	return nil
}

func translateSearchError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
		return ErrSearchUnavailable
	}
	return err
}

func (s *searchService) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	value, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger(ctx, "search.cache.get_failed", map[string]any{"key": key, "error": err.Error()})
		return nil, false
	}
	return value, ok
}

func (s *searchService) cacheSet(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, ttl); err != nil {
		s.logger(ctx, "search.cache.set_failed", map[string]any{"key": key, "error": err.Error()})
	}
}

// searchCacheKey canonicalises the filter tuple. Every field participates so
// distinct filters can never collide.
func searchCacheKey(filter SearchFilter) string {
	min, max := "", ""
	if filter.MinPrice != nil {
		min = strconv.FormatInt(*filter.MinPrice, 10)
	}
	if filter.MaxPrice != nil {
		max = strconv.FormatInt(*filter.MaxPrice, 10)
	}
	return fmt.Sprintf("%s%s:%d:%d:%s:%s:%s:%s",
		searchCachePrefix, filter.Query, filter.Page, filter.PageSize,
		filter.Category, min, max, string(filter.Sort))
}

func pageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

type cachedSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	Image       string `json:"image,omitempty"`
	Category    string `json:"category,omitempty"`
}

type cachedSearchResult struct {
	Products []cachedSummary `json:"products"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	Pages    int             `json:"pages"`
}

func newCachedSearchResult(result SearchResult) cachedSearchResult {
	return cachedSearchResult{
		Products: toCachedSummaries(result.Products),
		Total:    result.Total,
		Page:     result.Page,
		Pages:    result.Pages,
	}
}

func (c cachedSearchResult) toDomain() SearchResult {
	return SearchResult{
		Products: toDomainSummaries(c.Products),
		Total:    c.Total,
		Page:     c.Page,
		Pages:    c.Pages,
	}
}

func toCachedSummaries(summaries []ProductSummary) []cachedSummary {
	out := make([]cachedSummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, cachedSummary(s))
	}
	return out
}

func toDomainSummaries(summaries []cachedSummary) []ProductSummary {
	out := make([]ProductSummary, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, domain.ProductSummary(s))
	}
	return out
}
