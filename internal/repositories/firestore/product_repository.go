package firestore

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/oakmart/api/internal/domain"
	pfirestore "github.com/oakmart/api/internal/platform/firestore"
	"github.com/oakmart/api/internal/repositories"
)

// Firestore caps array-contains-any disjunctions at ten values.
const maxKeywordTerms = 10

const sampleFetchLimit = 50

// ProductRepository persists catalog documents within Firestore.
type ProductRepository struct {
	base *pfirestore.BaseRepository[productDocument]
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		base: pfirestore.NewBaseRepository[productDocument](provider, productCollection, nil),
	}, nil
}

// Insert creates the product document under its ID.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) (domain.Product, error) {
	if strings.TrimSpace(product.ID) == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}
	doc := newProductDocument(product)
	if _, err := r.base.Create(ctx, product.ID, doc); err != nil {
		return domain.Product{}, err
	}
	return doc.toDomain(product.ID), nil
}

// Update overwrites the product document.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	if strings.TrimSpace(product.ID) == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}
	doc := newProductDocument(product)
	if _, err := r.base.Set(ctx, product.ID, doc); err != nil {
		return domain.Product{}, err
	}
	return doc.toDomain(product.ID), nil
}

// Delete removes the product document.
func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	return r.base.Delete(ctx, productID)
}

// FindByID fetches a single product.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// List returns catalog products matching the filter, newest first.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if category := strings.TrimSpace(filter.Category); category != "" {
			q = q.Where("category", "==", category)
		}
		if filter.FeaturedOnly {
			q = q.Where("isFeatured", "==", true)
		}
		return q.OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.Data.toDomain(doc.ID))
	}
	return products, nil
}

// Sample returns up to n products chosen without a stable order.
func (r *ProductRepository) Sample(ctx context.Context, n int) ([]domain.Product, error) {
	if n <= 0 {
		return nil, nil
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Limit(sampleFetchLimit)
	})
	if err != nil {
		return nil, err
	}
	rand.Shuffle(len(docs), func(i, j int) {
		docs[i], docs[j] = docs[j], docs[i]
	})
	if len(docs) > n {
		docs = docs[:n]
	}
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.Data.toDomain(doc.ID))
	}
	return products, nil
}

// SearchKeywords runs the primary token-index query. Results matching more
// query tokens rank first; price bounds and pagination are applied after the
// index query returns.
func (r *ProductRepository) SearchKeywords(ctx context.Context, filter domain.SearchFilter) ([]domain.ProductSummary, int, error) {
	terms := domain.SearchTokens(filter.Query)
	if len(terms) == 0 {
		return nil, 0, nil
	}
	if len(terms) > maxKeywordTerms {
		terms = terms[:maxKeywordTerms]
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("searchKeywords", "array-contains-any", terms)
		if category := strings.TrimSpace(filter.Category); category != "" {
			q = q.Where("category", "==", category)
		}
		return q
	})
	if err != nil {
		return nil, 0, err
	}

	type scored struct {
		product domain.Product
		hits    int
	}
	var matches []scored
	for _, doc := range docs {
		product := doc.Data.toDomain(doc.ID)
		if !priceInRange(product.Price, filter.MinPrice, filter.MaxPrice) {
			continue
		}
		hits := 0
		for _, term := range terms {
			for _, keyword := range product.SearchKeywords {
				if keyword == term {
					hits++
					break
				}
			}
		}
		matches = append(matches, scored{product: product, hits: hits})
	}

	switch filter.Sort {
	case domain.SearchSortPriceAsc:
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].product.Price < matches[j].product.Price })
	case domain.SearchSortPriceDesc:
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].product.Price > matches[j].product.Price })
	default:
		sort.SliceStable(matches, func(i, j int) bool {
			if matches[i].hits != matches[j].hits {
				return matches[i].hits > matches[j].hits
			}
			return matches[i].product.CreatedAt.After(matches[j].product.CreatedAt)
		})
	}

	products := make([]domain.Product, 0, len(matches))
	for _, m := range matches {
		products = append(products, m.product)
	}
	page, total := paginateSummaries(products, filter.Page, filter.PageSize)
	return page, total, nil
}

// SearchSubstring is the fallback case-insensitive substring match over
// name and description, most recent first.
func (r *ProductRepository) SearchSubstring(ctx context.Context, filter domain.SearchFilter) ([]domain.ProductSummary, int, error) {
	needle := strings.ToLower(strings.TrimSpace(filter.Query))
	if needle == "" {
		return nil, 0, nil
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if category := strings.TrimSpace(filter.Category); category != "" {
			q = q.Where("category", "==", category)
		}
		return q.OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, 0, err
	}

	var matches []domain.Product
	for _, doc := range docs {
		product := doc.Data.toDomain(doc.ID)
		if !priceInRange(product.Price, filter.MinPrice, filter.MaxPrice) {
			continue
		}
		haystack := strings.ToLower(product.Name + " " + product.Description)
		if !strings.Contains(haystack, needle) {
			continue
		}
		matches = append(matches, product)
	}

	switch filter.Sort {
	case domain.SearchSortPriceAsc:
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].Price < matches[j].Price })
	case domain.SearchSortPriceDesc:
		sort.SliceStable(matches, func(i, j int) bool { return matches[i].Price > matches[j].Price })
	}

	page, total := paginateSummaries(matches, filter.Page, filter.PageSize)
	return page, total, nil
}

// SuggestByPrefix matches product names by case-insensitive prefix.
func (r *ProductRepository) SuggestByPrefix(ctx context.Context, prefix string, limit int) ([]domain.ProductSummary, error) {
	needle := strings.ToLower(strings.TrimSpace(prefix))
	if needle == "" || limit <= 0 {
		return nil, nil
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("nameLower", firestore.Asc).
			StartAt(needle).
			EndBefore(needle + "\uf8ff").
			Limit(limit)
	})
	if err != nil {
		return nil, err
	}
	summaries := make([]domain.ProductSummary, 0, len(docs))
	for _, doc := range docs {
		summaries = append(summaries, doc.Data.toDomain(doc.ID).Summary())
	}
	return summaries, nil
}

func priceInRange(price int64, min, max *int64) bool {
	if min != nil && price < *min {
		return false
	}
	if max != nil && price > *max {
		return false
	}
	return true
}

func paginateSummaries(products []domain.Product, page, pageSize int) ([]domain.ProductSummary, int) {
	total := len(products)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	start := (page - 1) * pageSize
	if start >= total {
		return []domain.ProductSummary{}, total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	summaries := make([]domain.ProductSummary, 0, end-start)
	for _, p := range products[start:end] {
		summaries = append(summaries, p.Summary())
	}
	return summaries, total
}
