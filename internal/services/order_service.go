package services

import (
	"context"
	"errors"
	"strings"

	domain "github.com/oakmart/api/internal/domain"
	"github.com/oakmart/api/internal/repositories"
)

var (
	// ErrOrderInvalidInput indicates a missing identifier.
	ErrOrderInvalidInput = errors.New("order input is invalid")
	// ErrOrderNotFound indicates no order matches for this user.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderUnavailable indicates the order store is temporarily unreachable.
	ErrOrderUnavailable = errors.New("order store unavailable")
	// ErrOrderDependencyMissing indicates the service was constructed without required dependencies.
	ErrOrderDependencyMissing = errors.New("order service dependency missing")
)

// OrderServiceDeps bundles dependencies required to construct an OrderService implementation.
type OrderServiceDeps struct {
	Orders   repositories.OrderRepository
	Products repositories.ProductRepository
}

type orderService struct {
	orders   repositories.OrderRepository
	products repositories.ProductRepository
}

// NewOrderService wires an OrderService backed by the provided repositories.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil || deps.Products == nil {
		return nil, ErrOrderDependencyMissing
	}
	return &orderService{
		orders:   deps.Orders,
		products: deps.Products,
	}, nil
}

func (s *orderService) ListForUser(ctx context.Context, userID string) ([]OrderView, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrOrderInvalidInput
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, translateOrderError(err)
	}
	views := make([]OrderView, 0, len(orders))
	for _, order := range orders {
		view, err := s.resolveView(ctx, order)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *orderService) Get(ctx context.Context, userID, orderID string) (OrderView, error) {
	userID = strings.TrimSpace(userID)
	orderID = strings.TrimSpace(orderID)
	if userID == "" || orderID == "" {
		return OrderView{}, ErrOrderInvalidInput
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if isRepoNotFound(err) {
			return OrderView{}, ErrOrderNotFound
		}
		return OrderView{}, translateOrderError(err)
	}
	if order.UserID != userID {
		return OrderView{}, ErrOrderNotFound
	}
	return s.resolveView(ctx, order)
}

// resolveView joins order lines with current catalog display fields. Lines
// whose product vanished keep their stored snapshot without name or image.
func (s *orderService) resolveView(ctx context.Context, order domain.Order) (OrderView, error) {
	view := OrderView{Order: order}
	for _, line := range order.Lines {
		lineView := domain.OrderLineView{OrderLine: line}
		product, err := s.products.FindByID(ctx, line.ProductID)
		switch {
		case err == nil:
			lineView.Name = product.Name
			lineView.Image = product.Image
		case isRepoNotFound(err):
		default:
			return OrderView{}, translateOrderError(err)
		}
		view.Products = append(view.Products, lineView)
	}
	return view, nil
}

func translateOrderError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
		return ErrOrderUnavailable
	}
	return err
}
