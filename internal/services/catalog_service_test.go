package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domain "github.com/oakmart/api/internal/domain"
)

func newCatalogServiceForTest(t *testing.T, products *stubProductRepository, store *stubCacheStore) CatalogService {
	t.Helper()
	seq := 0
	svc, err := NewCatalogService(CatalogServiceDeps{
		Products: products,
		Cache:    store,
		Clock: func() time.Time {
			return time.Date(2025, time.June, 5, 10, 0, 0, 0, time.UTC)
		},
		IDGenerator: func() string {
			seq++
			return fmt.Sprintf("GEN%03d", seq)
		},
	})
	if err != nil {
		t.Fatalf("NewCatalogService: %v", err)
	}
	return svc
}

func TestCatalogService_Create_BuildsKeywordIndex(t *testing.T) {
	products := &stubProductRepository{}
	store := &stubCacheStore{entries: map[string][]byte{
		"search:wool:1:20::::": []byte("{}"),
		"suggest:wo:6":         []byte("[]"),
		"featured:all":         []byte("[]"),
	}}
	svc := newCatalogServiceForTest(t, products, store)

	created, err := svc.Create(context.Background(), CreateProductCommand{
		Name:        "Wool Hat",
		Description: "Warm winter hat",
		Price:       1500,
		Category:    "hats",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.ID != "GEN001" {
		t.Fatalf("expected generated id got %q", created.ID)
	}

	want := map[string]bool{"wool": true, "hat": true, "warm": true, "winter": true, "hats": true}
	for _, token := range created.SearchKeywords {
		delete(want, token)
	}
	if len(want) != 0 {
		t.Fatalf("missing keywords %v in %v", want, created.SearchKeywords)
	}

	if len(store.entries) != 0 {
		t.Fatalf("catalog write must invalidate cached reads, entries=%v", store.entries)
	}
}

func TestCatalogService_Create_VariantDefaults(t *testing.T) {
	products := &stubProductRepository{}
	svc := newCatalogServiceForTest(t, products, &stubCacheStore{})

	created, err := svc.Create(context.Background(), CreateProductCommand{
		Name:  "Shirt",
		Price: 900,
		Image: "shirt.png",
		Variants: []CreateVariantCommand{
			{SKU: "S-RED", Stock: 3},
			{SKU: "S-BLUE", Price: int64Ptr(1100), Image: "blue.png"},
		},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if len(created.Variants) != 2 {
		t.Fatalf("expected two variants got %d", len(created.Variants))
	}
	if created.Variants[0].Image != "shirt.png" {
		t.Fatalf("expected product image fallback got %q", created.Variants[0].Image)
	}
	if created.Variants[0].EffectivePrice(created.Price) != 900 {
		t.Fatalf("expected product price fallback")
	}
	if created.Variants[1].EffectivePrice(created.Price) != 1100 {
		t.Fatalf("expected variant price override")
	}
	if created.Variants[0].ID == "" || created.Variants[0].ID == created.Variants[1].ID {
		t.Fatalf("variants need distinct generated ids: %+v", created.Variants)
	}
}

func TestCatalogService_Create_Validation(t *testing.T) {
	svc := newCatalogServiceForTest(t, &stubProductRepository{}, &stubCacheStore{})

	if _, err := svc.Create(context.Background(), CreateProductCommand{Price: 100}); !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected ErrCatalogInvalidInput for missing name, got %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateProductCommand{Name: "X", Price: 0}); !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected ErrCatalogInvalidInput for zero price, got %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateProductCommand{Name: "X", Price: 100, Variants: []CreateVariantCommand{{}}}); !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected ErrCatalogInvalidInput for variant without sku, got %v", err)
	}
}

func TestCatalogService_ToggleFeatured(t *testing.T) {
	products := &stubProductRepository{products: map[string]domain.Product{
		"p1": {ID: "p1", Name: "Mug", Price: 500},
	}}
	store := &stubCacheStore{entries: map[string][]byte{"featured:all": []byte("[]")}}
	svc := newCatalogServiceForTest(t, products, store)

	updated, err := svc.ToggleFeatured(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ToggleFeatured returned error: %v", err)
	}
	if !updated.IsFeatured {
		t.Fatalf("expected featured flag flipped on")
	}
	if len(store.entries) != 0 {
		t.Fatalf("toggle must invalidate the featured cache")
	}

	updated, err = svc.ToggleFeatured(context.Background(), "p1")
	if err != nil {
		t.Fatalf("second ToggleFeatured: %v", err)
	}
	if updated.IsFeatured {
		t.Fatalf("expected featured flag flipped back off")
	}
}

func TestCatalogService_ListFeatured_Caches(t *testing.T) {
	products := &stubProductRepository{listResults: []domain.Product{
		{ID: "p1", Name: "Mug", Price: 500, IsFeatured: true},
		{ID: "p2", Name: "Cap", Price: 700},
	}}
	store := &stubCacheStore{}
	svc := newCatalogServiceForTest(t, products, store)

	featured, err := svc.ListFeatured(context.Background())
	if err != nil {
		t.Fatalf("ListFeatured returned error: %v", err)
	}
	if len(featured) != 1 || featured[0].ID != "p1" {
		t.Fatalf("unexpected featured list %+v", featured)
	}
	if store.sets != 1 {
		t.Fatalf("expected featured list cached, sets=%d", store.sets)
	}

	products.listResults = nil
	again, err := svc.ListFeatured(context.Background())
	if err != nil {
		t.Fatalf("second ListFeatured: %v", err)
	}
	if len(again) != 1 {
		t.Fatalf("expected cached featured list, got %+v", again)
	}
}

func TestCatalogService_Delete_NotFound(t *testing.T) {
	products := &stubProductRepository{products: map[string]domain.Product{}}
	svc := newCatalogServiceForTest(t, products, &stubCacheStore{})

	if err := svc.Delete(context.Background(), "gone"); !errors.Is(err, ErrCatalogProductNotFound) {
		t.Fatalf("expected ErrCatalogProductNotFound got %v", err)
	}
}

func TestCatalogService_Recommend(t *testing.T) {
	products := &stubProductRepository{sampleResults: []domain.Product{
		{ID: "p1", Name: "Mug", Price: 500},
		{ID: "p2", Name: "Cap", Price: 700},
	}}
	svc := newCatalogServiceForTest(t, products, &stubCacheStore{})

	recommended, err := svc.Recommend(context.Background())
	if err != nil {
		t.Fatalf("Recommend returned error: %v", err)
	}
	if len(recommended) != 2 {
		t.Fatalf("unexpected recommendations %+v", recommended)
	}
}

func TestCatalogService_ListByCategory_RequiresCategory(t *testing.T) {
	svc := newCatalogServiceForTest(t, &stubProductRepository{}, &stubCacheStore{})

	if _, err := svc.ListByCategory(context.Background(), " "); !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected ErrCatalogInvalidInput got %v", err)
	}
}
