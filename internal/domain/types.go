package domain

import (
	"strings"
	"time"
)

// PaymentMethod tags the rail an order was completed on.
type PaymentMethod string

const (
	// PaymentMethodCard marks orders confirmed through the card gateway.
	PaymentMethodCard PaymentMethod = "card"
	// PaymentMethodWallet marks orders confirmed through the wallet redirect flow.
	PaymentMethodWallet PaymentMethod = "wallet"
	// PaymentMethodCOD marks cash-on-delivery orders.
	PaymentMethodCOD PaymentMethod = "cod"
)

// Quantity represents an availability figure. The infinite sentinel stands in
// for products that declare no stock field at all; it always passes
// validation and is never serialised to clients as a number.
type Quantity struct {
	Amount   int
	Infinite bool
}

// FiniteQuantity wraps a concrete non-negative stock figure.
func FiniteQuantity(amount int) Quantity {
	if amount < 0 {
		amount = 0
	}
	return Quantity{Amount: amount}
}

// InfiniteQuantity returns the unbounded availability sentinel.
func InfiniteQuantity() Quantity {
	return Quantity{Infinite: true}
}

// AtLeast reports whether the quantity covers the requested amount.
func (q Quantity) AtLeast(requested int) bool {
	if q.Infinite {
		return true
	}
	return q.Amount >= requested
}

// Variant is a purchasable configuration of a product with its own price and
// stock overrides. SKU is the preferred identity; ID is the fallback.
type Variant struct {
	ID    string
	SKU   string
	Color string
	Size  string
	// Price overrides the product price when set.
	Price *int64
	Stock int
	Image string
}

// EffectivePrice resolves the variant price falling back to the product price.
func (v Variant) EffectivePrice(productPrice int64) int64 {
	if v.Price != nil {
		return *v.Price
	}
	return productPrice
}

// Matches reports whether the supplied key identifies this variant by SKU or ID.
func (v Variant) Matches(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	return v.SKU == key || v.ID == key
}

// Product is the authoritative catalog record. When variants exist, the bare
// product price/stock are never used for availability decisions.
type Product struct {
	ID          string
	Name        string
	Description string
	// Price is in minor currency units.
	Price    int64
	Image    string
	Category string
	// Stock is the product-level stock figure; nil means unbounded for
	// variantless products.
	Stock      *int
	IsFeatured bool
	Variants   []Variant
	// SearchKeywords is the lowercased token index maintained on every write.
	SearchKeywords []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasVariants reports whether variant-level fields are authoritative for this product.
func (p Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// FindVariant resolves a variant by sku-or-id key.
func (p Product) FindVariant(key string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.Matches(key) {
			return v, true
		}
	}
	return Variant{}, false
}

// CartLine is one (product, variant) entry in a user's cart. VariantKey is
// empty for variantless products.
type CartLine struct {
	ProductID  string
	VariantKey string
	Quantity   int
	AddedAt    time.Time
}

// SameTarget reports whether the line refers to the given (product, variant) pair.
func (l CartLine) SameTarget(productID, variantKey string) bool {
	return l.ProductID == productID && l.VariantKey == strings.TrimSpace(variantKey)
}

// Cart is the per-user cart document. At most one line exists per
// (product, variant) pair; adds merge into the existing line.
type Cart struct {
	UserID    string
	Lines     []CartLine
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartView is a cart line resolved against the catalog for display.
type CartView struct {
	ProductID  string
	Name       string
	Image      string
	Price      int64
	Quantity   int
	VariantKey string
	Variant    *VariantView
}

// VariantView carries the display fields of a resolved variant.
type VariantView struct {
	SKU   string
	Color string
	Size  string
}

// Coupon is a discount code, user-scoped when UserID is set, global otherwise.
// Redemption deactivates rather than deletes.
type Coupon struct {
	ID                 string
	Code               string
	DiscountPercentage int
	ExpirationDate     time.Time
	IsActive           bool
	// UserID is empty for global/admin coupons usable by any authenticated user.
	UserID    string
	CreatedAt time.Time
}

// Expired reports whether the coupon's expiration date has passed.
func (c Coupon) Expired(now time.Time) bool {
	return !c.ExpirationDate.IsZero() && c.ExpirationDate.Before(now)
}

// UsableBy reports whether the coupon is scoped to the user or global.
func (c Coupon) UsableBy(userID string) bool {
	return c.UserID == "" || c.UserID == userID
}

// OrderLine snapshots a purchased line. UnitPrice is the price at time of
// purchase and is never re-read from the catalog afterwards.
type OrderLine struct {
	ProductID string
	Quantity  int
	UnitPrice int64
}

// ShippingInfo is required for cash-on-delivery orders only.
type ShippingInfo struct {
	Name    string
	Address string
	Phone   string
}

// Order is immutable once created. TotalAmount is the post-discount amount
// actually collected or promised, in minor currency units.
type Order struct {
	ID string
	// UserID may be empty for anonymous wallet flows.
	UserID        string
	Lines         []OrderLine
	TotalAmount   int64
	PaymentMethod PaymentMethod
	// PaymentRef is the provider session id or generated token.
	PaymentRef string
	Shipping   *ShippingInfo
	CreatedAt  time.Time
}

// OrderView is an order joined with product display fields for history listings.
type OrderView struct {
	Order
	Products []OrderLineView
}

// OrderLineView resolves an order line against the catalog for display.
type OrderLineView struct {
	OrderLine
	Name  string
	Image string
}

// SearchSort enumerates supported search orderings.
type SearchSort string

const (
	// SearchSortRelevance ranks by text score (primary path) or recency (fallback path).
	SearchSortRelevance SearchSort = ""
	// SearchSortPriceAsc orders by ascending price.
	SearchSortPriceAsc SearchSort = "price_asc"
	// SearchSortPriceDesc orders by descending price.
	SearchSortPriceDesc SearchSort = "price_desc"
)

// SearchFilter is the canonical tuple identifying a search result page.
type SearchFilter struct {
	Query    string
	Page     int
	PageSize int
	Category string
	MinPrice *int64
	MaxPrice *int64
	Sort     SearchSort
}

// SearchResult is the envelope consumed by the frontend collaborator.
type SearchResult struct {
	Products []ProductSummary
	Total    int
	Page     int
	Pages    int
}

// ProductSummary carries the fields selected for search results and suggestions.
type ProductSummary struct {
	ID          string
	Name        string
	Description string
	Price       int64
	Image       string
	Category    string
}

// Summary projects a product onto its search result shape.
func (p Product) Summary() ProductSummary {
	return ProductSummary{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Category:    p.Category,
	}
}
