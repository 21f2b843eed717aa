package services

import (
	"context"
	"strings"
	"sync"
	"time"

	domain "github.com/oakmart/api/internal/domain"
	"github.com/oakmart/api/internal/payments"
	"github.com/oakmart/api/internal/repositories"
)

type stubRepoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *stubRepoError) Error() string       { return "stub repository error" }
func (e *stubRepoError) IsNotFound() bool    { return e.notFound }
func (e *stubRepoError) IsConflict() bool    { return e.conflict }
func (e *stubRepoError) IsUnavailable() bool { return e.unavailable }

type stubProductRepository struct {
	products map[string]domain.Product

	keywordResults []domain.ProductSummary
	keywordTotal   int
	keywordCalls   int

	substringResults []domain.ProductSummary
	substringTotal   int
	substringCalls   int

	suggestResults []domain.ProductSummary
	suggestCalls   int
	lastSuggestLim int

	listResults   []domain.Product
	sampleResults []domain.Product

	inserted []domain.Product
	updated  []domain.Product
	deleted  []string

	err error
}

func (r *stubProductRepository) Insert(_ context.Context, product domain.Product) (domain.Product, error) {
	if r.err != nil {
		return domain.Product{}, r.err
	}
	r.inserted = append(r.inserted, product)
	return product, nil
}

func (r *stubProductRepository) Update(_ context.Context, product domain.Product) (domain.Product, error) {
	if r.err != nil {
		return domain.Product{}, r.err
	}
	r.updated = append(r.updated, product)
	if r.products != nil {
		r.products[product.ID] = product
	}
	return product, nil
}

func (r *stubProductRepository) Delete(_ context.Context, productID string) error {
	if r.err != nil {
		return r.err
	}
	if r.products != nil {
		if _, ok := r.products[productID]; !ok {
			return &stubRepoError{notFound: true}
		}
		delete(r.products, productID)
	}
	r.deleted = append(r.deleted, productID)
	return nil
}

func (r *stubProductRepository) FindByID(_ context.Context, productID string) (domain.Product, error) {
	if r.err != nil {
		return domain.Product{}, r.err
	}
	product, ok := r.products[productID]
	if !ok {
		return domain.Product{}, &stubRepoError{notFound: true}
	}
	return product, nil
}

func (r *stubProductRepository) List(_ context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []domain.Product
	for _, product := range r.listResults {
		if filter.FeaturedOnly && !product.IsFeatured {
			continue
		}
		if filter.Category != "" && product.Category != filter.Category {
			continue
		}
		out = append(out, product)
	}
	return out, nil
}

func (r *stubProductRepository) Sample(context.Context, int) ([]domain.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.sampleResults, nil
}

func (r *stubProductRepository) SearchKeywords(_ context.Context, _ domain.SearchFilter) ([]domain.ProductSummary, int, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	r.keywordCalls++
	return r.keywordResults, r.keywordTotal, nil
}

func (r *stubProductRepository) SearchSubstring(_ context.Context, _ domain.SearchFilter) ([]domain.ProductSummary, int, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	r.substringCalls++
	return r.substringResults, r.substringTotal, nil
}

func (r *stubProductRepository) SuggestByPrefix(_ context.Context, _ string, limit int) ([]domain.ProductSummary, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.suggestCalls++
	r.lastSuggestLim = limit
	return r.suggestResults, nil
}

type stubCartRepository struct {
	carts   map[string]domain.Cart
	deleted []string
	err     error
}

func (r *stubCartRepository) Get(_ context.Context, userID string) (domain.Cart, error) {
	if r.err != nil {
		return domain.Cart{}, r.err
	}
	cart, ok := r.carts[userID]
	if !ok {
		return domain.Cart{}, &stubRepoError{notFound: true}
	}
	return cart, nil
}

func (r *stubCartRepository) ReplaceLines(_ context.Context, userID string, lines []domain.CartLine) (domain.Cart, error) {
	if r.err != nil {
		return domain.Cart{}, r.err
	}
	if r.carts == nil {
		r.carts = make(map[string]domain.Cart)
	}
	cart := domain.Cart{UserID: userID, Lines: lines}
	r.carts[userID] = cart
	return cart, nil
}

func (r *stubCartRepository) Delete(_ context.Context, userID string) error {
	if r.err != nil {
		return r.err
	}
	r.deleted = append(r.deleted, userID)
	delete(r.carts, userID)
	return nil
}

type stubCouponRepository struct {
	byCode map[string]domain.Coupon

	active []domain.Coupon
	owned  []domain.Coupon
	all    []domain.Coupon

	inserted  []domain.Coupon
	updated   []domain.Coupon
	deleted   []string
	swept     int
	lastSweep time.Time

	insertErr error
	err       error
}

func (r *stubCouponRepository) Insert(_ context.Context, coupon domain.Coupon) (domain.Coupon, error) {
	if r.insertErr != nil {
		return domain.Coupon{}, r.insertErr
	}
	if r.err != nil {
		return domain.Coupon{}, r.err
	}
	coupon.ID = strings.ToUpper(strings.TrimSpace(coupon.Code))
	r.inserted = append(r.inserted, coupon)
	return coupon, nil
}

func (r *stubCouponRepository) Update(_ context.Context, coupon domain.Coupon) error {
	if r.err != nil {
		return r.err
	}
	r.updated = append(r.updated, coupon)
	if r.byCode != nil {
		r.byCode[coupon.Code] = coupon
	}
	return nil
}

func (r *stubCouponRepository) Delete(_ context.Context, couponID string) error {
	if r.err != nil {
		return r.err
	}
	r.deleted = append(r.deleted, couponID)
	return nil
}

func (r *stubCouponRepository) FindByCode(_ context.Context, code string) (domain.Coupon, error) {
	if r.err != nil {
		return domain.Coupon{}, r.err
	}
	coupon, ok := r.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return domain.Coupon{}, &stubRepoError{notFound: true}
	}
	return coupon, nil
}

func (r *stubCouponRepository) FindActiveForUser(context.Context, string) ([]domain.Coupon, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.active, nil
}

func (r *stubCouponRepository) FindByOwner(context.Context, string) ([]domain.Coupon, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.owned, nil
}

func (r *stubCouponRepository) List(context.Context) ([]domain.Coupon, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.all, nil
}

func (r *stubCouponRepository) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.lastSweep = cutoff
	return r.swept, nil
}

type stubOrderRepository struct {
	orders   map[string]domain.Order
	inserted []domain.Order
	err      error
}

func (r *stubOrderRepository) Insert(_ context.Context, order domain.Order) (domain.Order, error) {
	if r.err != nil {
		return domain.Order{}, r.err
	}
	if r.orders == nil {
		r.orders = make(map[string]domain.Order)
	}
	if _, ok := r.orders[order.ID]; ok {
		return domain.Order{}, &stubRepoError{conflict: true}
	}
	r.orders[order.ID] = order
	r.inserted = append(r.inserted, order)
	return order, nil
}

func (r *stubOrderRepository) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	if r.err != nil {
		return domain.Order{}, r.err
	}
	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, &stubRepoError{notFound: true}
	}
	return order, nil
}

func (r *stubOrderRepository) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []domain.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			out = append(out, order)
		}
	}
	return out, nil
}

type stubCardProvider struct {
	session     payments.CardSession
	createErr   error
	details     payments.CardSessionDetails
	retrieveErr error

	lastRequest payments.CardSessionRequest
	lastSession string
}

func (p *stubCardProvider) CreateSession(_ context.Context, req payments.CardSessionRequest) (payments.CardSession, error) {
	p.lastRequest = req
	if p.createErr != nil {
		return payments.CardSession{}, p.createErr
	}
	return p.session, nil
}

func (p *stubCardProvider) RetrieveSession(_ context.Context, sessionID string) (payments.CardSessionDetails, error) {
	p.lastSession = sessionID
	if p.retrieveErr != nil {
		return payments.CardSessionDetails{}, p.retrieveErr
	}
	return p.details, nil
}

type stubWalletProvider struct {
	paymentID    string
	verifyResult payments.WalletVerifyResult
	verifyErr    error

	lastCharge payments.WalletChargeRequest
	lastVerify payments.WalletVerifyRequest
}

func (p *stubWalletProvider) NewPaymentID() string { return p.paymentID }

func (p *stubWalletProvider) PaymentForm(req payments.WalletChargeRequest) payments.WalletForm {
	p.lastCharge = req
	return payments.WalletForm{
		ActionURL: "https://wallet.example/pay",
		Fields:    map[string]string{"pid": req.PaymentID},
	}
}

func (p *stubWalletProvider) Verify(_ context.Context, req payments.WalletVerifyRequest) (payments.WalletVerifyResult, error) {
	p.lastVerify = req
	if p.verifyErr != nil {
		return payments.WalletVerifyResult{}, p.verifyErr
	}
	return p.verifyResult, nil
}

type stubCacheStore struct {
	mu            sync.Mutex
	entries       map[string][]byte
	sets          int
	gets          int
	invalidated   []string
	getErr        error
	setErr        error
	invalidateErr error
	lastSetTTL    time.Duration
	lastSetKey    string
	lastFetchKey  string
}

func (c *stubCacheStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	c.lastFetchKey = key
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	value, ok := c.entries[key]
	return value, ok, nil
}

func (c *stubCacheStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	if c.entries == nil {
		c.entries = make(map[string][]byte)
	}
	c.entries[key] = value
	c.sets++
	c.lastSetKey = key
	c.lastSetTTL = ttl
	return nil
}

func (c *stubCacheStore) InvalidatePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.invalidateErr != nil {
		return c.invalidateErr
	}
	c.invalidated = append(c.invalidated, prefix)
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}
