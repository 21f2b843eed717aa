package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/oakmart/api/internal/domain"
	"github.com/oakmart/api/internal/repositories"
)

var (
	// ErrCartInvalidInput indicates a missing or malformed cart command field.
	ErrCartInvalidInput = errors.New("cart input is invalid")
	// ErrCartProductNotFound indicates the referenced product no longer exists.
	ErrCartProductNotFound = errors.New("cart product not found")
	// ErrCartLineNotFound indicates no cart line matches the (product, variant) pair.
	ErrCartLineNotFound = errors.New("cart line not found")
	// ErrCartOutOfStock indicates the target has no available stock at all.
	ErrCartOutOfStock = errors.New("product is out of stock")
	// ErrCartInsufficientStock indicates the merged quantity exceeds availability.
	ErrCartInsufficientStock = errors.New("cart quantity exceeds available stock")
	// ErrCartExceedsStock indicates the requested replacement quantity exceeds availability.
	ErrCartExceedsStock = errors.New("requested quantity exceeds available stock")
	// ErrCartUnavailable indicates the cart store is temporarily unreachable.
	ErrCartUnavailable = errors.New("cart store unavailable")
	// ErrCartDependencyMissing indicates the service was constructed without required dependencies.
	ErrCartDependencyMissing = errors.New("cart service dependency missing")
)

// CartServiceDeps bundles dependencies required to construct a CartService implementation.
type CartServiceDeps struct {
	Carts    repositories.CartRepository
	Products repositories.ProductRepository
	Clock    func() time.Time
}

type cartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	clock    func() time.Time
}

// NewCartService wires a CartService backed by the provided repositories.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil || deps.Products == nil {
		return nil, ErrCartDependencyMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &cartService{
		carts:    deps.Carts,
		products: deps.Products,
		clock:    func() time.Time { return clock().UTC() },
	}, nil
}

func (s *cartService) Add(ctx context.Context, cmd AddCartLineCommand) ([]CartView, error) {
	userID := strings.TrimSpace(cmd.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	if userID == "" || productID == "" {
		return nil, ErrCartInvalidInput
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	available, err := AvailableStock(product, cmd.VariantKey)
	if err != nil {
		return nil, err
	}
	if !available.AtLeast(1) {
		return nil, ErrCartOutOfStock
	}

	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	variantKey := strings.TrimSpace(cmd.VariantKey)
	merged := false
	for i := range cart.Lines {
		if !cart.Lines[i].SameTarget(productID, variantKey) {
			continue
		}
		next := cart.Lines[i].Quantity + 1
		if !available.AtLeast(next) {
			return nil, ErrCartInsufficientStock
		}
		cart.Lines[i].Quantity = next
		merged = true
		break
	}
	if !merged {
		cart.Lines = append(cart.Lines, domain.CartLine{
			ProductID:  productID,
			VariantKey: variantKey,
			Quantity:   1,
			AddedAt:    s.clock(),
		})
	}

	return s.persistAndResolve(ctx, userID, cart.Lines)
}

func (s *cartService) SetQuantity(ctx context.Context, cmd SetCartQuantityCommand) ([]CartView, error) {
	userID := strings.TrimSpace(cmd.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	if userID == "" || productID == "" || cmd.Quantity < 0 {
		return nil, ErrCartInvalidInput
	}

	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	variantKey := strings.TrimSpace(cmd.VariantKey)
	index := -1
	for i := range cart.Lines {
		if cart.Lines[i].SameTarget(productID, variantKey) {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, ErrCartLineNotFound
	}

	if cmd.Quantity == 0 {
		cart.Lines = append(cart.Lines[:index], cart.Lines[index+1:]...)
		return s.persistAndResolve(ctx, userID, cart.Lines)
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	available, err := AvailableStock(product, variantKey)
	if err != nil {
		return nil, err
	}
	if !available.AtLeast(cmd.Quantity) {
		return nil, ErrCartExceedsStock
	}

	cart.Lines[index].Quantity = cmd.Quantity
	return s.persistAndResolve(ctx, userID, cart.Lines)
}

func (s *cartService) Remove(ctx context.Context, cmd RemoveCartLineCommand) ([]CartView, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return nil, ErrCartInvalidInput
	}

	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return s.persistAndResolve(ctx, userID, nil)
	}

	variantKey := strings.TrimSpace(cmd.VariantKey)
	kept := cart.Lines[:0]
	for _, line := range cart.Lines {
		if line.ProductID == productID && (variantKey == "" || line.VariantKey == variantKey) {
			continue
		}
		kept = append(kept, line)
	}
	return s.persistAndResolve(ctx, userID, kept)
}

func (s *cartService) List(ctx context.Context, userID string) ([]CartView, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrCartInvalidInput
	}
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resolveViews(ctx, cart.Lines)
}

func (s *cartService) Clear(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrCartInvalidInput
	}
	if err := s.carts.Delete(ctx, userID); err != nil {
		if isRepoNotFound(err) {
			return nil
		}
		return translateCartError(err)
	}
	return nil
}

func (s *cartService) loadCart(ctx context.Context, userID string) (Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{UserID: userID}, nil
		}
		return Cart{}, translateCartError(err)
	}
	return cart, nil
}

func (s *cartService) loadProduct(ctx context.Context, productID string) (Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if isRepoNotFound(err) {
			return Product{}, ErrCartProductNotFound
		}
		return Product{}, translateCartError(err)
	}
	return product, nil
}

func (s *cartService) persistAndResolve(ctx context.Context, userID string, lines []domain.CartLine) ([]CartView, error) {
	saved, err := s.carts.ReplaceLines(ctx, userID, lines)
	if err != nil {
		return nil, translateCartError(err)
	}
	return s.resolveViews(ctx, saved.Lines)
}

// resolveViews joins cart lines with live catalog data. Lines whose product
// vanished are skipped rather than failing the whole read.
func (s *cartService) resolveViews(ctx context.Context, lines []domain.CartLine) ([]CartView, error) {
	views := make([]CartView, 0, len(lines))
	for _, line := range lines {
		product, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			if isRepoNotFound(err) {
				continue
			}
			return nil, translateCartError(err)
		}

		view := CartView{
			ProductID:  product.ID,
			Name:       product.Name,
			Image:      product.Image,
			Price:      product.Price,
			Quantity:   line.Quantity,
			VariantKey: line.VariantKey,
		}
		if line.VariantKey != "" {
			if variant, ok := product.FindVariant(line.VariantKey); ok {
				view.Price = variant.EffectivePrice(product.Price)
				if variant.Image != "" {
					view.Image = variant.Image
				}
				view.Variant = &domain.VariantView{
					SKU:   variant.SKU,
					Color: variant.Color,
					Size:  variant.Size,
				}
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

func isRepoConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

func translateCartError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
		return ErrCartUnavailable
	}
	return err
}
