package services

import (
	"errors"
	"strings"

	domain "github.com/oakmart/api/internal/domain"
)

var (
	// ErrVariantRequired indicates the product declares variants but no variant key was given.
	ErrVariantRequired = errors.New("variant selection is required")
	// ErrVariantNotFound indicates the variant key matched no variant by sku or id.
	ErrVariantNotFound = errors.New("variant not found")
	// ErrInsufficientStock indicates the requested quantity exceeds availability.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// AvailableStock resolves the authoritative availability for a (product,
// variant) pair. Products with variants never fall back to product-level
// stock; variantless products without a stock figure are unbounded.
func AvailableStock(product domain.Product, variantKey string) (domain.Quantity, error) {
	key := strings.TrimSpace(variantKey)
	if product.HasVariants() {
		if key == "" {
			return domain.Quantity{}, ErrVariantRequired
		}
		variant, ok := product.FindVariant(key)
		if !ok {
			return domain.Quantity{}, ErrVariantNotFound
		}
		return domain.FiniteQuantity(variant.Stock), nil
	}
	if product.Stock == nil {
		return domain.InfiniteQuantity(), nil
	}
	return domain.FiniteQuantity(*product.Stock), nil
}

// ValidateStock checks the requested quantity against availability.
func ValidateStock(available domain.Quantity, requested int) error {
	if requested <= 0 {
		return nil
	}
	if !available.AtLeast(requested) {
		return ErrInsufficientStock
	}
	return nil
}
