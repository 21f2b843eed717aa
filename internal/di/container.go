package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/oakmart/api/internal/payments"
	"github.com/oakmart/api/internal/platform/cache"
	"github.com/oakmart/api/internal/platform/config"
	pfirestore "github.com/oakmart/api/internal/platform/firestore"
	"github.com/oakmart/api/internal/platform/observability"
	"github.com/oakmart/api/internal/repositories"
	fsrepo "github.com/oakmart/api/internal/repositories/firestore"
	"github.com/oakmart/api/internal/services"
)

// Repositories bundles the persistence contracts the services rely upon.
type Repositories struct {
	Products repositories.ProductRepository
	Carts    repositories.CartRepository
	Coupons  repositories.CouponRepository
	Orders   repositories.OrderRepository
}

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Cart     services.CartService
	Coupons  services.CouponService
	Checkout services.CheckoutService
	Orders   services.OrderService
	Search   services.SearchService
	Catalog  services.CatalogService
}

// Container wires repositories, services and payment providers for runtime use.
type Container struct {
	Config       config.Config
	Provider     *pfirestore.Provider
	Cache        *cache.MemoryStore
	Repositories Repositories
	Services     Services
}

// ContainerDeps carries the externally constructed collaborators.
type ContainerDeps struct {
	Logger *zap.Logger
	// Card overrides the Stripe provider, used by tests.
	Card payments.CardProvider
	// Wallet overrides the redirect wallet provider, used by tests.
	Wallet payments.WalletProvider
}

// NewContainer assembles the runtime dependency graph from configuration.
func NewContainer(ctx context.Context, cfg config.Config, deps ContainerDeps) (*Container, error) {
	if ctx == nil {
		return nil, errors.New("di: context is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	provider := pfirestore.NewProvider(cfg.Firestore)
	store := cache.NewMemoryStore()

	repos, err := buildRepositories(provider)
	if err != nil {
		return nil, err
	}

	card := deps.Card
	if card == nil && cfg.Stripe.APIKey != "" {
		card, err = payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey: cfg.Stripe.APIKey,
			Logger: payments.StripeLogger(observability.EventLogger(logger.Named("stripe"))),
		})
		if err != nil {
			return nil, fmt.Errorf("di: build stripe provider: %w", err)
		}
	}

	wallet := deps.Wallet
	if wallet == nil && cfg.Wallet.MerchantCode != "" {
		wallet, err = payments.NewRedirectWalletProvider(payments.WalletProviderConfig{
			PaymentURL:   cfg.Wallet.PaymentURL,
			VerifyURL:    cfg.Wallet.VerifyURL,
			MerchantCode: cfg.Wallet.MerchantCode,
			SuccessURL:   cfg.Server.ClientURL + "/payment/success",
			FailureURL:   cfg.Server.ClientURL + "/payment/failure",
			Timeout:      cfg.Wallet.VerifyTimeout,
			Logger:       payments.WalletLogger(observability.EventLogger(logger.Named("wallet"))),
		})
		if err != nil {
			return nil, fmt.Errorf("di: build wallet provider: %w", err)
		}
	}

	svc, err := buildServices(cfg, repos, store, card, wallet, logger)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Provider:     provider,
		Cache:        store,
		Repositories: repos,
		Services:     svc,
	}, nil
}

// Migrate runs the catalog index backfill and the coupon sweep.
func (c *Container) Migrate(ctx context.Context) error {
	if c == nil || c.Provider == nil {
		return nil
	}
	return fsrepo.Migrate(ctx, c.Provider)
}

// Close releases the shared Firestore client.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Provider == nil {
		return nil
	}
	return c.Provider.Close(ctx)
}

func buildRepositories(provider *pfirestore.Provider) (Repositories, error) {
	products, err := fsrepo.NewProductRepository(provider)
	if err != nil {
		return Repositories{}, fmt.Errorf("di: build product repository: %w", err)
	}
	carts, err := fsrepo.NewCartRepository(provider)
	if err != nil {
		return Repositories{}, fmt.Errorf("di: build cart repository: %w", err)
	}
	coupons, err := fsrepo.NewCouponRepository(provider)
	if err != nil {
		return Repositories{}, fmt.Errorf("di: build coupon repository: %w", err)
	}
	orders, err := fsrepo.NewOrderRepository(provider)
	if err != nil {
		return Repositories{}, fmt.Errorf("di: build order repository: %w", err)
	}
	return Repositories{
		Products: products,
		Carts:    carts,
		Coupons:  coupons,
		Orders:   orders,
	}, nil
}

func buildServices(cfg config.Config, repos Repositories, store *cache.MemoryStore, card payments.CardProvider, wallet payments.WalletProvider, logger *zap.Logger) (Services, error) {
	var svc Services

	cart, err := services.NewCartService(services.CartServiceDeps{
		Carts:    repos.Carts,
		Products: repos.Products,
		Clock:    time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("di: build cart service: %w", err)
	}
	svc.Cart = cart

	coupons, err := services.NewCouponService(services.CouponServiceDeps{
		Coupons: repos.Coupons,
		Clock:   time.Now,
	})
	if err != nil {
		return Services{}, fmt.Errorf("di: build coupon service: %w", err)
	}
	svc.Coupons = coupons

	checkout, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Orders:          repos.Orders,
		Carts:           repos.Carts,
		Coupons:         coupons,
		Card:            card,
		Wallet:          wallet,
		Clock:           time.Now,
		Logger:          services.CheckoutLogger(observability.EventLogger(logger.Named("checkout"))),
		IDGenerator:     func() string { return ulid.Make().String() },
		RewardThreshold: cfg.Checkout.RewardThreshold,
		SuccessURL:      cfg.Server.ClientURL + "/payment/success",
		CancelURL:       cfg.Server.ClientURL + "/payment/failure",
	})
	if err != nil {
		return Services{}, fmt.Errorf("di: build checkout service: %w", err)
	}
	svc.Checkout = checkout

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:   repos.Orders,
		Products: repos.Products,
	})
	if err != nil {
		return Services{}, fmt.Errorf("di: build order service: %w", err)
	}
	svc.Orders = orders

	search, err := services.NewSearchService(services.SearchServiceDeps{
		Products:   repos.Products,
		Cache:      store,
		SearchTTL:  cfg.Cache.SearchTTL,
		SuggestTTL: cfg.Cache.SuggestTTL,
		Logger:     services.SearchLogger(observability.EventLogger(logger.Named("search"))),
	})
	if err != nil {
		return Services{}, fmt.Errorf("di: build search service: %w", err)
	}
	svc.Search = search

	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products:    repos.Products,
		Cache:       store,
		Clock:       time.Now,
		Logger:      services.CatalogLogger(observability.EventLogger(logger.Named("catalog"))),
		IDGenerator: uuid.NewString,
	})
	if err != nil {
		return Services{}, fmt.Errorf("di: build catalog service: %w", err)
	}
	svc.Catalog = catalog

	return svc, nil
}
