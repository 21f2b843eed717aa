package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/oakmart/api/internal/domain"
)

func newCartServiceForTest(t *testing.T, carts *stubCartRepository, products *stubProductRepository) CartService {
	t.Helper()
	svc, err := NewCartService(CartServiceDeps{
		Carts:    carts,
		Products: products,
		Clock: func() time.Time {
			return time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
		},
	})
	if err != nil {
		t.Fatalf("NewCartService: %v", err)
	}
	return svc
}

func TestCartService_Add_CreatesLine(t *testing.T) {
	products := &stubProductRepository{products: map[string]domain.Product{
		"p1": {ID: "p1", Name: "Mug", Price: 500, Stock: intPtr(5)},
	}}
	carts := &stubCartRepository{}
	svc := newCartServiceForTest(t, carts, products)

	views, err := svc.Add(context.Background(), AddCartLineCommand{UserID: "u1", ProductID: "p1"})
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if len(views) != 1 || views[0].Quantity != 1 {
		t.Fatalf("unexpected views %+v", views)
	}
	if views[0].Price != 500 {
		t.Fatalf("expected price 500 got %d", views[0].Price)
	}
}

func TestCartService_Add_MergesExistingLine(t *testing.T) {
	products := &stubProductRepository{products: map[string]domain.Product{
		"p1": {ID: "p1", Name: "Mug", Price: 500, Stock: intPtr(5)},
	}}
	carts := &stubCartRepository{carts: map[string]domain.Cart{
		"u1": {UserID: "u1", Lines: []domain.CartLine{{ProductID: "p1", Quantity: 2}}},
	}}
	svc := newCartServiceForTest(t, carts, products)

	views, err := svc.Add(context.Background(), AddCartLineCommand{UserID: "u1", ProductID: "p1"})
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected one merged line got %d", len(views))
	}
	if views[0].Quantity != 3 {
		t.Fatalf("expected merged quantity 3 got %d", views[0].Quantity)
	}
}

func TestCartService_Add_DistinctVariantsKeepSeparateLines(t *testing.T) {
	products := &stubProductRepository{products: map[string]domain.Product{
		"p1": {ID: "p1", Name: "Shirt", Price: 900, Variants: []domain.Variant{
			{ID: "v1", SKU: "S-RED", Stock: 5},
			{ID: "v2", SKU: "S-BLUE", Stock: 5},
		}},
	}}
	carts := &stubCartRepository{carts: map[string]domain.Cart{
		"u1": {UserID: "u1", Lines: []domain.CartLine{{ProductID: "p1", VariantKey: "S-RED", Quantity: 1}}},
	}}
	svc := newCartServiceForTest(t, carts, products)

	views, err := svc.Add(context.Background(), AddCartLineCommand{UserID: "u1", ProductID: "p1", VariantKey: "S-BLUE"})
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected two lines got %d", len(views))
	}
}

func TestCartService_Add_OutOfStock(t *testing.T) {
	products := &stubProductRepository{products: map[string]domain.Product{
		"p1": {ID: "p1", Name: "Mug", Price: 500, Stock: intPtr(0)},
	}}
	svc := newCartServiceForTest(t, &stubCartRepository{}, products)

	if _, err := svc.Add(context.Background(), AddCartLineCommand{UserID: "u1", ProductID: "p1"}); !errors.Is(err, ErrCartOutOfStock) {
		t.Fatalf("expected ErrCartOutOfStock got %v", err)
	}
}

func TestCartService_Add_MergeBeyondStock(t *testing.T) {
	products := &stubProductRepository{products: map[string]domain.Product{
		"p1": {ID: "p1", Name: "Mug", Price: 500, Stock: intPtr(2)},
	}}
	carts := &stubCartRepository{carts: map[string]domain.Cart{
		"u1": {UserID: "u1", Lines: []domain.CartLine{{ProductID: "p1", Quantity: 2}}},
	}}
	svc := newCartServiceForTest(t, carts, products)

	if _, err := svc.Add(context.Background(), AddCartLineCommand{UserID: "u1", ProductID: "p1"}); !errors.Is(err, ErrCartInsufficientStock) {
		t.Fatalf("expected ErrCartInsufficientStock got %v", err)
	}
}

func TestCartService_Add_VariantErrors(t *testing.T) {
	products := &stubProductRepository{products: map[string]domain.Product{
		"p1": {ID: "p1", Name: "Shirt", Price: 900, Variants: []domain.Variant{{ID: "v1", SKU: "S-RED", Stock: 5}}},
	}}
	svc := newCartServiceForTest(t, &stubCartRepository{}, products)

	if _, err := svc.Add(context.Background(), AddCartLineCommand{UserID: "u1", ProductID: "p1"}); !errors.Is(err, ErrVariantRequired) {
		t.Fatalf("expected ErrVariantRequired got %v", err)
	}
	if _, err := svc.Add(context.Background(), AddCartLineCommand{UserID: "u1", ProductID: "p1", VariantKey: "missing"}); !errors.Is(err, ErrVariantNotFound) {
		t.Fatalf("expected ErrVariantNotFound got %v", err)
	}
}

func TestCartService_Add_ProductMissing(t *testing.T) {
	svc := newCartServiceForTest(t, &stubCartRepository{}, &stubProductRepository{})

	if _, err := svc.Add(context.Background(), AddCartLineCommand{UserID: "u1", ProductID: "gone"}); !errors.Is(err, ErrCartProductNotFound) {
		t.Fatalf("expected ErrCartProductNotFound got %v", err)
	}
}

func TestCartService_SetQuantity_ZeroRemovesEvenWhenOutOfStock(t *testing.T) {
	products := &stubProductRepository{products: map[string]domain.Product{
		"p1": {ID: "p1", Name: "Mug", Price: 500, Stock: intPtr(0)},
	}}
	carts := &stubCartRepository{carts: map[string]domain.Cart{
		"u1": {UserID: "u1", Lines: []domain.CartLine{{ProductID: "p1", Quantity: 4}}},
	}}
	svc := newCartServiceForTest(t, carts, products)

	views, err := svc.SetQuantity(context.Background(), SetCartQuantityCommand{UserID: "u1", ProductID: "p1", Quantity: 0})
	if err != nil {
		t.Fatalf("SetQuantity returned error: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("expected empty cart got %+v", views)
	}
}

func TestCartService_SetQuantity_ExceedsStock(t *testing.T) {
	products := &stubProductRepository{products: map[string]domain.Product{
		"p1": {ID: "p1", Name: "Mug", Price: 500, Stock: intPtr(3)},
	}}
	carts := &stubCartRepository{carts: map[string]domain.Cart{
		"u1": {UserID: "u1", Lines: []domain.CartLine{{ProductID: "p1", Quantity: 1}}},
	}}
	svc := newCartServiceForTest(t, carts, products)

	if _, err := svc.SetQuantity(context.Background(), SetCartQuantityCommand{UserID: "u1", ProductID: "p1", Quantity: 4}); !errors.Is(err, ErrCartExceedsStock) {
		t.Fatalf("expected ErrCartExceedsStock got %v", err)
	}
}

func TestCartService_SetQuantity_LineNotFound(t *testing.T) {
	svc := newCartServiceForTest(t, &stubCartRepository{}, &stubProductRepository{})

	if _, err := svc.SetQuantity(context.Background(), SetCartQuantityCommand{UserID: "u1", ProductID: "p1", Quantity: 1}); !errors.Is(err, ErrCartLineNotFound) {
		t.Fatalf("expected ErrCartLineNotFound got %v", err)
	}
}

func TestCartService_SetQuantity_NegativeRejected(t *testing.T) {
	svc := newCartServiceForTest(t, &stubCartRepository{}, &stubProductRepository{})

	if _, err := svc.SetQuantity(context.Background(), SetCartQuantityCommand{UserID: "u1", ProductID: "p1", Quantity: -1}); !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput got %v", err)
	}
}

func TestCartService_Remove_ProductAndAll(t *testing.T) {
	products := &stubProductRepository{products: map[string]domain.Product{
		"p1": {ID: "p1", Name: "Mug", Price: 500},
		"p2": {ID: "p2", Name: "Cap", Price: 700},
	}}
	carts := &stubCartRepository{carts: map[string]domain.Cart{
		"u1": {UserID: "u1", Lines: []domain.CartLine{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "p2", Quantity: 2},
		}},
	}}
	svc := newCartServiceForTest(t, carts, products)

	views, err := svc.Remove(context.Background(), RemoveCartLineCommand{UserID: "u1", ProductID: "p1"})
	if err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if len(views) != 1 || views[0].ProductID != "p2" {
		t.Fatalf("expected only p2 to remain, got %+v", views)
	}

	views, err = svc.Remove(context.Background(), RemoveCartLineCommand{UserID: "u1"})
	if err != nil {
		t.Fatalf("Remove all returned error: %v", err)
	}
	if len(views) != 0 {
		t.Fatalf("expected empty cart got %+v", views)
	}
}

func TestCartService_List_SkipsVanishedProducts(t *testing.T) {
	products := &stubProductRepository{products: map[string]domain.Product{
		"p1": {ID: "p1", Name: "Mug", Price: 500},
	}}
	carts := &stubCartRepository{carts: map[string]domain.Cart{
		"u1": {UserID: "u1", Lines: []domain.CartLine{
			{ProductID: "p1", Quantity: 1},
			{ProductID: "gone", Quantity: 2},
		}},
	}}
	svc := newCartServiceForTest(t, carts, products)

	views, err := svc.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(views) != 1 || views[0].ProductID != "p1" {
		t.Fatalf("expected vanished product to be skipped, got %+v", views)
	}
}

func TestCartService_List_VariantPriceOverride(t *testing.T) {
	products := &stubProductRepository{products: map[string]domain.Product{
		"p1": {ID: "p1", Name: "Shirt", Price: 900, Variants: []domain.Variant{
			{ID: "v1", SKU: "S-RED", Price: int64Ptr(1100), Stock: 5, Color: "red"},
			{ID: "v2", SKU: "S-BLUE", Stock: 5},
		}},
	}}
	carts := &stubCartRepository{carts: map[string]domain.Cart{
		"u1": {UserID: "u1", Lines: []domain.CartLine{
			{ProductID: "p1", VariantKey: "S-RED", Quantity: 1},
			{ProductID: "p1", VariantKey: "S-BLUE", Quantity: 1},
		}},
	}}
	svc := newCartServiceForTest(t, carts, products)

	views, err := svc.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected two lines got %d", len(views))
	}
	if views[0].Price != 1100 {
		t.Fatalf("expected variant price override 1100 got %d", views[0].Price)
	}
	if views[1].Price != 900 {
		t.Fatalf("expected product price fallback 900 got %d", views[1].Price)
	}
	if views[0].Variant == nil || views[0].Variant.Color != "red" {
		t.Fatalf("expected resolved variant view, got %+v", views[0].Variant)
	}
}

func TestCartService_UnavailableStore(t *testing.T) {
	carts := &stubCartRepository{err: &stubRepoError{unavailable: true}}
	svc := newCartServiceForTest(t, carts, &stubProductRepository{})

	if _, err := svc.List(context.Background(), "u1"); !errors.Is(err, ErrCartUnavailable) {
		t.Fatalf("expected ErrCartUnavailable got %v", err)
	}
}
