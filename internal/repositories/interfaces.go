package repositories

import (
	"context"
	"time"

	domain "github.com/oakmart/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository persists catalog documents and answers search queries.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) (domain.Product, error)
	Update(ctx context.Context, product domain.Product) (domain.Product, error)
	Delete(ctx context.Context, productID string) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) ([]domain.Product, error)
	// Sample returns up to n products chosen without a stable order.
	Sample(ctx context.Context, n int) ([]domain.Product, error)
	// SearchKeywords runs the primary token-index query for the filter.
	SearchKeywords(ctx context.Context, filter domain.SearchFilter) ([]domain.ProductSummary, int, error)
	// SearchSubstring is the fallback case-insensitive substring match over
	// name/description, applying the same category/price filters.
	SearchSubstring(ctx context.Context, filter domain.SearchFilter) ([]domain.ProductSummary, int, error)
	// SuggestByPrefix matches product names by case-insensitive prefix.
	SuggestByPrefix(ctx context.Context, prefix string, limit int) ([]domain.ProductSummary, error)
}

// ProductListFilter narrows catalog listings.
type ProductListFilter struct {
	Category     string
	FeaturedOnly bool
}

// CartRepository owns the per-user cart document.
type CartRepository interface {
	Get(ctx context.Context, userID string) (domain.Cart, error)
	// ReplaceLines overwrites the cart's lines, creating the document when absent.
	ReplaceLines(ctx context.Context, userID string, lines []domain.CartLine) (domain.Cart, error)
	Delete(ctx context.Context, userID string) error
}

// CouponRepository stores coupon documents with code uniqueness guarantees.
type CouponRepository interface {
	// Insert fails with a conflict error when the code already exists.
	Insert(ctx context.Context, coupon domain.Coupon) (domain.Coupon, error)
	Update(ctx context.Context, coupon domain.Coupon) error
	Delete(ctx context.Context, couponID string) error
	FindByCode(ctx context.Context, code string) (domain.Coupon, error)
	// FindActiveForUser returns active coupons usable by the user,
	// most recently created first.
	FindActiveForUser(ctx context.Context, userID string) ([]domain.Coupon, error)
	// FindByOwner returns coupons whose UserID equals the given user.
	FindByOwner(ctx context.Context, userID string) ([]domain.Coupon, error)
	List(ctx context.Context) ([]domain.Coupon, error)
	// DeleteExpired removes coupons whose expiration date passed before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// OrderRepository persists immutable order documents.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	// ListByUser returns the user's orders newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
}
