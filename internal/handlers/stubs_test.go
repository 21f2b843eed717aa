package handlers

import (
	"context"
	"errors"

	firebaseauth "firebase.google.com/go/v4/auth"

	domain "github.com/oakmart/api/internal/domain"
	"github.com/oakmart/api/internal/services"
)

type stubCartService struct {
	addFunc         func(ctx context.Context, cmd services.AddCartLineCommand) ([]services.CartView, error)
	setQuantityFunc func(ctx context.Context, cmd services.SetCartQuantityCommand) ([]services.CartView, error)
	removeFunc      func(ctx context.Context, cmd services.RemoveCartLineCommand) ([]services.CartView, error)
	listFunc        func(ctx context.Context, userID string) ([]services.CartView, error)
	clearFunc       func(ctx context.Context, userID string) error
}

func (s *stubCartService) Add(ctx context.Context, cmd services.AddCartLineCommand) ([]services.CartView, error) {
	if s.addFunc == nil {
		return nil, errors.New("add not stubbed")
	}
	return s.addFunc(ctx, cmd)
}

func (s *stubCartService) SetQuantity(ctx context.Context, cmd services.SetCartQuantityCommand) ([]services.CartView, error) {
	if s.setQuantityFunc == nil {
		return nil, errors.New("setQuantity not stubbed")
	}
	return s.setQuantityFunc(ctx, cmd)
}

func (s *stubCartService) Remove(ctx context.Context, cmd services.RemoveCartLineCommand) ([]services.CartView, error) {
	if s.removeFunc == nil {
		return nil, errors.New("remove not stubbed")
	}
	return s.removeFunc(ctx, cmd)
}

func (s *stubCartService) List(ctx context.Context, userID string) ([]services.CartView, error) {
	if s.listFunc == nil {
		return nil, errors.New("list not stubbed")
	}
	return s.listFunc(ctx, userID)
}

func (s *stubCartService) Clear(ctx context.Context, userID string) error {
	if s.clearFunc == nil {
		return errors.New("clear not stubbed")
	}
	return s.clearFunc(ctx, userID)
}

type stubCouponService struct {
	getForUserFunc func(ctx context.Context, userID string) (*services.Coupon, error)
	validateFunc   func(ctx context.Context, code, userID string) (services.CouponValidation, error)
	createFunc     func(ctx context.Context, cmd services.CreateCouponCommand) (services.Coupon, error)
	listFunc       func(ctx context.Context) ([]services.Coupon, error)
	deleteFunc     func(ctx context.Context, couponID string) error
}

func (s *stubCouponService) GetForUser(ctx context.Context, userID string) (*services.Coupon, error) {
	if s.getForUserFunc == nil {
		return nil, nil
	}
	return s.getForUserFunc(ctx, userID)
}

func (s *stubCouponService) Validate(ctx context.Context, code, userID string) (services.CouponValidation, error) {
	if s.validateFunc == nil {
		return services.CouponValidation{}, errors.New("validate not stubbed")
	}
	return s.validateFunc(ctx, code, userID)
}

func (s *stubCouponService) Redeem(context.Context, string, string) error { return nil }

func (s *stubCouponService) IssueReward(context.Context, string) (services.Coupon, error) {
	return services.Coupon{}, errors.New("issueReward not stubbed")
}

func (s *stubCouponService) Create(ctx context.Context, cmd services.CreateCouponCommand) (services.Coupon, error) {
	if s.createFunc == nil {
		return services.Coupon{}, errors.New("create not stubbed")
	}
	return s.createFunc(ctx, cmd)
}

func (s *stubCouponService) List(ctx context.Context) ([]services.Coupon, error) {
	if s.listFunc == nil {
		return nil, errors.New("list not stubbed")
	}
	return s.listFunc(ctx)
}

func (s *stubCouponService) Delete(ctx context.Context, couponID string) error {
	if s.deleteFunc == nil {
		return errors.New("delete not stubbed")
	}
	return s.deleteFunc(ctx, couponID)
}

func (s *stubCouponService) SweepExpired(context.Context) (int, error) { return 0, nil }

type stubCheckoutService struct {
	cardSessionFunc   func(ctx context.Context, cmd services.CardSessionCommand) (services.CardSessionResult, error)
	confirmCardFunc   func(ctx context.Context, cmd services.ConfirmCardCommand) (services.Order, error)
	walletPaymentFunc func(ctx context.Context, cmd services.WalletPaymentCommand) (services.WalletPaymentResult, error)
	walletVerifyFunc  func(ctx context.Context, cmd services.WalletVerifyCommand) (services.Order, error)
	codFunc           func(ctx context.Context, cmd services.CashOnDeliveryCommand) (services.Order, error)
}

func (s *stubCheckoutService) CreateCardSession(ctx context.Context, cmd services.CardSessionCommand) (services.CardSessionResult, error) {
	if s.cardSessionFunc == nil {
		return services.CardSessionResult{}, errors.New("cardSession not stubbed")
	}
	return s.cardSessionFunc(ctx, cmd)
}

func (s *stubCheckoutService) ConfirmCardPayment(ctx context.Context, cmd services.ConfirmCardCommand) (services.Order, error) {
	if s.confirmCardFunc == nil {
		return services.Order{}, errors.New("confirmCard not stubbed")
	}
	return s.confirmCardFunc(ctx, cmd)
}

func (s *stubCheckoutService) CreateWalletPayment(ctx context.Context, cmd services.WalletPaymentCommand) (services.WalletPaymentResult, error) {
	if s.walletPaymentFunc == nil {
		return services.WalletPaymentResult{}, errors.New("walletPayment not stubbed")
	}
	return s.walletPaymentFunc(ctx, cmd)
}

func (s *stubCheckoutService) VerifyWalletPayment(ctx context.Context, cmd services.WalletVerifyCommand) (services.Order, error) {
	if s.walletVerifyFunc == nil {
		return services.Order{}, errors.New("walletVerify not stubbed")
	}
	return s.walletVerifyFunc(ctx, cmd)
}

func (s *stubCheckoutService) PlaceCashOnDelivery(ctx context.Context, cmd services.CashOnDeliveryCommand) (services.Order, error) {
	if s.codFunc == nil {
		return services.Order{}, errors.New("cod not stubbed")
	}
	return s.codFunc(ctx, cmd)
}

type stubOrderService struct {
	listFunc func(ctx context.Context, userID string) ([]services.OrderView, error)
	getFunc  func(ctx context.Context, userID, orderID string) (services.OrderView, error)
}

func (s *stubOrderService) ListForUser(ctx context.Context, userID string) ([]services.OrderView, error) {
	if s.listFunc == nil {
		return nil, errors.New("list not stubbed")
	}
	return s.listFunc(ctx, userID)
}

func (s *stubOrderService) Get(ctx context.Context, userID, orderID string) (services.OrderView, error) {
	if s.getFunc == nil {
		return services.OrderView{}, errors.New("get not stubbed")
	}
	return s.getFunc(ctx, userID, orderID)
}

type stubSearchService struct {
	searchFunc  func(ctx context.Context, filter domain.SearchFilter) (domain.SearchResult, error)
	suggestFunc func(ctx context.Context, prefix string, limit int) ([]domain.ProductSummary, error)
}

func (s *stubSearchService) Search(ctx context.Context, filter domain.SearchFilter) (domain.SearchResult, error) {
	if s.searchFunc == nil {
		return domain.SearchResult{}, errors.New("search not stubbed")
	}
	return s.searchFunc(ctx, filter)
}

func (s *stubSearchService) Suggest(ctx context.Context, prefix string, limit int) ([]domain.ProductSummary, error) {
	if s.suggestFunc == nil {
		return nil, errors.New("suggest not stubbed")
	}
	return s.suggestFunc(ctx, prefix, limit)
}

func (s *stubSearchService) Invalidate(context.Context) error { return nil }

type stubCatalogService struct {
	listFunc           func(ctx context.Context) ([]services.Product, error)
	getFunc            func(ctx context.Context, productID string) (services.Product, error)
	listFeaturedFunc   func(ctx context.Context) ([]services.ProductSummary, error)
	listByCategoryFunc func(ctx context.Context, category string) ([]services.Product, error)
	recommendFunc      func(ctx context.Context) ([]services.ProductSummary, error)
	createFunc         func(ctx context.Context, cmd services.CreateProductCommand) (services.Product, error)
	deleteFunc         func(ctx context.Context, productID string) error
	toggleFunc         func(ctx context.Context, productID string) (services.Product, error)
}

func (s *stubCatalogService) List(ctx context.Context) ([]services.Product, error) {
	if s.listFunc == nil {
		return nil, errors.New("list not stubbed")
	}
	return s.listFunc(ctx)
}

func (s *stubCatalogService) Get(ctx context.Context, productID string) (services.Product, error) {
	if s.getFunc == nil {
		return services.Product{}, errors.New("get not stubbed")
	}
	return s.getFunc(ctx, productID)
}

func (s *stubCatalogService) ListFeatured(ctx context.Context) ([]services.ProductSummary, error) {
	if s.listFeaturedFunc == nil {
		return nil, errors.New("listFeatured not stubbed")
	}
	return s.listFeaturedFunc(ctx)
}

func (s *stubCatalogService) ListByCategory(ctx context.Context, category string) ([]services.Product, error) {
	if s.listByCategoryFunc == nil {
		return nil, errors.New("listByCategory not stubbed")
	}
	return s.listByCategoryFunc(ctx, category)
}

func (s *stubCatalogService) Recommend(ctx context.Context) ([]services.ProductSummary, error) {
	if s.recommendFunc == nil {
		return nil, errors.New("recommend not stubbed")
	}
	return s.recommendFunc(ctx)
}

func (s *stubCatalogService) Create(ctx context.Context, cmd services.CreateProductCommand) (services.Product, error) {
	if s.createFunc == nil {
		return services.Product{}, errors.New("create not stubbed")
	}
	return s.createFunc(ctx, cmd)
}

func (s *stubCatalogService) Delete(ctx context.Context, productID string) error {
	if s.deleteFunc == nil {
		return errors.New("delete not stubbed")
	}
	return s.deleteFunc(ctx, productID)
}

func (s *stubCatalogService) ToggleFeatured(ctx context.Context, productID string) (services.Product, error) {
	if s.toggleFunc == nil {
		return services.Product{}, errors.New("toggleFeatured not stubbed")
	}
	return s.toggleFunc(ctx, productID)
}

type stubTokenVerifier struct {
	tokens map[string]*firebaseauth.Token
}

func (s *stubTokenVerifier) VerifyIDToken(_ context.Context, idToken string) (*firebaseauth.Token, error) {
	token, ok := s.tokens[idToken]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return token, nil
}
