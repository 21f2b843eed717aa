package services

import (
	"context"
	"time"

	domain "github.com/oakmart/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Cart           = domain.Cart
	CartView       = domain.CartView
	Coupon         = domain.Coupon
	Order          = domain.Order
	OrderView      = domain.OrderView
	Product        = domain.Product
	ProductSummary = domain.ProductSummary
	SearchFilter   = domain.SearchFilter
	SearchResult   = domain.SearchResult
	ShippingInfo   = domain.ShippingInfo
)

// CartService mutates and reads the per-user cart with stock validation on
// every quantity increase.
type CartService interface {
	// Add merges one unit into the (product, variant) line, creating it when absent.
	Add(ctx context.Context, cmd AddCartLineCommand) ([]CartView, error)
	// SetQuantity replaces the line quantity. Zero removes the line unconditionally.
	SetQuantity(ctx context.Context, cmd SetCartQuantityCommand) ([]CartView, error)
	// Remove drops the product's lines, or every line when ProductID is empty.
	Remove(ctx context.Context, cmd RemoveCartLineCommand) ([]CartView, error)
	// List resolves the cart against the catalog for display.
	List(ctx context.Context, userID string) ([]CartView, error)
	// Clear removes the user's cart document.
	Clear(ctx context.Context, userID string) error
}

// AddCartLineCommand identifies the (product, variant) pair to add one unit of.
type AddCartLineCommand struct {
	UserID     string
	ProductID  string
	VariantKey string
}

// SetCartQuantityCommand replaces a cart line's quantity.
type SetCartQuantityCommand struct {
	UserID     string
	ProductID  string
	VariantKey string
	Quantity   int
}

// RemoveCartLineCommand removes a product's lines from the cart. An empty
// ProductID clears the whole cart.
type RemoveCartLineCommand struct {
	UserID     string
	ProductID  string
	VariantKey string
}

// CouponService owns the coupon ledger: lookup, validation, idempotent
// redemption, reward issuance and the admin surface.
type CouponService interface {
	// GetForUser returns the newest active coupon usable by the user, or nil.
	GetForUser(ctx context.Context, userID string) (*Coupon, error)
	// Validate checks code existence, scope and expiry, flipping lazily
	// expired coupons inactive as a side effect.
	Validate(ctx context.Context, code, userID string) (CouponValidation, error)
	// Redeem deactivates the coupon. Redeeming an inactive coupon succeeds.
	Redeem(ctx context.Context, code, userID string) error
	// IssueReward replaces the user's owned coupons with a fresh gift coupon.
	IssueReward(ctx context.Context, userID string) (Coupon, error)
	Create(ctx context.Context, cmd CreateCouponCommand) (Coupon, error)
	List(ctx context.Context) ([]Coupon, error)
	Delete(ctx context.Context, couponID string) error
	// SweepExpired purges coupons whose expiration already passed.
	SweepExpired(ctx context.Context) (int, error)
}

// CouponValidation is the successful outcome of a coupon validation.
type CouponValidation struct {
	Code               string
	DiscountPercentage int
}

// CreateCouponCommand carries the admin coupon creation payload.
type CreateCouponCommand struct {
	Code               string
	DiscountPercentage int
	ExpirationDate     time.Time
	// UserID scopes the coupon to one user; empty makes it global.
	UserID string
}

// CheckoutLine is a client-submitted purchase line. UnitPrice is echoed by
// the client and locked into the order as-is.
type CheckoutLine struct {
	ProductID  string
	Name       string
	Image      string
	VariantKey string
	Quantity   int
	UnitPrice  int64
}

// CheckoutService orchestrates the three payment rails. Each completed rail
// persists an order, redeems the applied coupon and issues a reward coupon
// when the total crosses the configured threshold.
type CheckoutService interface {
	CreateCardSession(ctx context.Context, cmd CardSessionCommand) (CardSessionResult, error)
	ConfirmCardPayment(ctx context.Context, cmd ConfirmCardCommand) (Order, error)
	CreateWalletPayment(ctx context.Context, cmd WalletPaymentCommand) (WalletPaymentResult, error)
	VerifyWalletPayment(ctx context.Context, cmd WalletVerifyCommand) (Order, error)
	PlaceCashOnDelivery(ctx context.Context, cmd CashOnDeliveryCommand) (Order, error)
}

// CardSessionCommand creates a hosted card checkout session.
type CardSessionCommand struct {
	UserID     string
	Lines      []CheckoutLine
	CouponCode string
}

// CardSessionResult carries the hosted session handle back to the client.
type CardSessionResult struct {
	SessionID   string
	URL         string
	TotalAmount int64
}

// ConfirmCardCommand finalises a paid card session into an order.
type ConfirmCardCommand struct {
	UserID    string
	SessionID string
}

// WalletPaymentCommand starts a wallet redirect payment.
type WalletPaymentCommand struct {
	UserID     string
	Lines      []CheckoutLine
	CouponCode string
}

// WalletPaymentResult carries the redirect target and the signed form fields.
type WalletPaymentResult struct {
	PaymentID   string
	PaymentURL  string
	Fields      map[string]string
	TotalAmount int64
}

// WalletVerifyCommand confirms a wallet payment against the provider ledger.
type WalletVerifyCommand struct {
	UserID     string
	PaymentID  string
	RefID      string
	Amount     int64
	Lines      []CheckoutLine
	CouponCode string
}

// CashOnDeliveryCommand places an order collected on delivery.
type CashOnDeliveryCommand struct {
	UserID     string
	Lines      []CheckoutLine
	CouponCode string
	Shipping   ShippingInfo
}

// OrderService reads order history joined with catalog display fields.
type OrderService interface {
	ListForUser(ctx context.Context, userID string) ([]OrderView, error)
	Get(ctx context.Context, userID, orderID string) (OrderView, error)
}

// SearchService answers catalog searches and suggestions through the
// read-through cache.
type SearchService interface {
	Search(ctx context.Context, filter SearchFilter) (SearchResult, error)
	Suggest(ctx context.Context, prefix string, limit int) ([]ProductSummary, error)
	// Invalidate drops every cached search, suggestion and featured entry.
	Invalidate(ctx context.Context) error
}

// CatalogService owns catalog reads and the admin write surface. Every write
// refreshes the keyword index and invalidates the search caches.
type CatalogService interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, productID string) (Product, error)
	ListFeatured(ctx context.Context) ([]ProductSummary, error)
	ListByCategory(ctx context.Context, category string) ([]Product, error)
	Recommend(ctx context.Context) ([]ProductSummary, error)
	Create(ctx context.Context, cmd CreateProductCommand) (Product, error)
	Delete(ctx context.Context, productID string) error
	ToggleFeatured(ctx context.Context, productID string) (Product, error)
}

// CreateProductCommand carries the admin product creation payload.
type CreateProductCommand struct {
	Name        string
	Description string
	Price       int64
	Image       string
	Category    string
	// Stock is optional; nil on a variantless product means unbounded stock.
	Stock      *int
	IsFeatured bool
	Variants   []CreateVariantCommand
}

// CreateVariantCommand describes one variant of a new product.
type CreateVariantCommand struct {
	SKU   string
	Color string
	Size  string
	Price *int64
	Stock int
	Image string
}
