package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/oakmart/api/internal/domain"
	"github.com/oakmart/api/internal/payments"
	"github.com/oakmart/api/internal/repositories"
)

var (
	// ErrCheckoutInvalidInput indicates a malformed checkout command.
	ErrCheckoutInvalidInput = errors.New("checkout input is invalid")
	// ErrCheckoutEmptyCart indicates no purchase lines were submitted.
	ErrCheckoutEmptyCart = errors.New("checkout requires at least one line")
	// ErrCheckoutShippingRequired indicates the cash-on-delivery shipping block is incomplete.
	ErrCheckoutShippingRequired = errors.New("shipping name, address and phone are required")
	// ErrCheckoutSessionNotFound indicates the card session is unknown to the provider.
	ErrCheckoutSessionNotFound = errors.New("checkout session not found")
	// ErrCheckoutPaymentPending indicates the card session exists but was not paid.
	ErrCheckoutPaymentPending = errors.New("payment has not completed")
	// ErrCheckoutVerificationFailed indicates the wallet ledger rejected the payment.
	ErrCheckoutVerificationFailed = errors.New("wallet payment verification failed")
	// ErrCheckoutUnavailable indicates a backing store or provider is temporarily unreachable.
	ErrCheckoutUnavailable = errors.New("checkout temporarily unavailable")
	// ErrCheckoutDependencyMissing indicates the service was constructed without required dependencies.
	ErrCheckoutDependencyMissing = errors.New("checkout service dependency missing")
)

const (
	metadataUserID     = "userId"
	metadataCouponCode = "couponCode"
	metadataProducts   = "products"

	codTokenPrefix = "COD"
)

// CheckoutLogger defines the logging contract for checkout operations.
type CheckoutLogger func(ctx context.Context, event string, fields map[string]any)

// CheckoutServiceDeps bundles dependencies required to construct a CheckoutService implementation.
type CheckoutServiceDeps struct {
	Orders  repositories.OrderRepository
	Carts   repositories.CartRepository
	Coupons CouponService
	Card    payments.CardProvider
	Wallet  payments.WalletProvider
	Clock   func() time.Time
	Logger  CheckoutLogger
	// IDGenerator mints order identifiers for the cash-on-delivery rail.
	IDGenerator func() string
	// RewardThreshold is the post-discount total, in minor units, at or above
	// which a completed order earns a reward coupon.
	RewardThreshold int64
	SuccessURL      string
	CancelURL       string
}

type checkoutService struct {
	orders          repositories.OrderRepository
	carts           repositories.CartRepository
	coupons         CouponService
	card            payments.CardProvider
	wallet          payments.WalletProvider
	clock           func() time.Time
	logger          CheckoutLogger
	newID           func() string
	rewardThreshold int64
	successURL      string
	cancelURL       string
}

// NewCheckoutService wires a CheckoutService from the provided dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Orders == nil || deps.Coupons == nil {
		return nil, ErrCheckoutDependencyMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	newID := deps.IDGenerator
	if newID == nil {
		return nil, ErrCheckoutDependencyMissing
	}
	return &checkoutService{
		orders:          deps.Orders,
		carts:           deps.Carts,
		coupons:         deps.Coupons,
		card:            deps.Card,
		wallet:          deps.Wallet,
		clock:           func() time.Time { return clock().UTC() },
		logger:          logger,
		newID:           newID,
		rewardThreshold: deps.RewardThreshold,
		successURL:      deps.SuccessURL,
		cancelURL:       deps.CancelURL,
	}, nil
}

// lockedOrder is the price-locked outcome of validating a checkout payload.
type lockedOrder struct {
	lines      []domain.OrderLine
	subtotal   int64
	total      int64
	couponCode string
	discount   int
}

// lock validates the submitted lines and pins the order total. Prices are the
// client-echoed unit prices; an unusable coupon code drops the discount
// rather than failing the checkout.
func (s *checkoutService) lock(ctx context.Context, userID string, lines []CheckoutLine, couponCode string) (lockedOrder, error) {
	if len(lines) == 0 {
		return lockedOrder{}, ErrCheckoutEmptyCart
	}

	locked := lockedOrder{lines: make([]domain.OrderLine, 0, len(lines))}
	for _, line := range lines {
		if strings.TrimSpace(line.ProductID) == "" || line.Quantity <= 0 || line.UnitPrice < 0 {
			return lockedOrder{}, ErrCheckoutInvalidInput
		}
		locked.lines = append(locked.lines, domain.OrderLine{
			ProductID: strings.TrimSpace(line.ProductID),
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
		locked.subtotal += line.UnitPrice * int64(line.Quantity)
	}
	locked.total = locked.subtotal

	code := strings.TrimSpace(couponCode)
	if code != "" && userID != "" {
		validation, err := s.coupons.Validate(ctx, code, userID)
		switch {
		case err == nil:
			locked.couponCode = validation.Code
			locked.discount = validation.DiscountPercentage
			locked.total = locked.subtotal - roundHalfUpPercent(locked.subtotal, validation.DiscountPercentage)
		case errors.Is(err, ErrCouponNotFound), errors.Is(err, ErrCouponExpired):
			// no discount
		case errors.Is(err, ErrCouponUnavailable):
			return lockedOrder{}, ErrCheckoutUnavailable
		default:
			return lockedOrder{}, err
		}
	}
	return locked, nil
}

func (s *checkoutService) CreateCardSession(ctx context.Context, cmd CardSessionCommand) (CardSessionResult, error) {
	if s.card == nil {
		return CardSessionResult{}, ErrCheckoutDependencyMissing
	}
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return CardSessionResult{}, ErrCheckoutInvalidInput
	}

	locked, err := s.lock(ctx, userID, cmd.Lines, cmd.CouponCode)
	if err != nil {
		return CardSessionResult{}, err
	}

	encoded, err := encodeMetadataLines(cmd.Lines)
	if err != nil {
		return CardSessionResult{}, fmt.Errorf("encode checkout lines: %w", err)
	}

	req := payments.CardSessionRequest{
		DiscountPercent: locked.discount,
		SuccessURL:      s.successURL,
		CancelURL:       s.cancelURL,
		Metadata: map[string]string{
			metadataUserID:     userID,
			metadataCouponCode: locked.couponCode,
			metadataProducts:   encoded,
		},
	}
	for _, line := range cmd.Lines {
		req.Lines = append(req.Lines, payments.CardLineItem{
			Name:       line.Name,
			Image:      line.Image,
			UnitAmount: line.UnitPrice,
			Quantity:   int64(line.Quantity),
		})
	}

	session, err := s.card.CreateSession(ctx, req)
	if err != nil {
		return CardSessionResult{}, translateProviderError(err)
	}

	s.logger(ctx, "checkout.card.session_created", map[string]any{
		"user_id":    userID,
		"session_id": session.ID,
		"total":      locked.total,
	})
	return CardSessionResult{
		SessionID:   session.ID,
		URL:         session.URL,
		TotalAmount: locked.total,
	}, nil
}

// ConfirmCardPayment finalises a paid session into an order. The session ID
// doubles as the order ID, which makes repeated confirmations return the same
// order instead of duplicating it.
func (s *checkoutService) ConfirmCardPayment(ctx context.Context, cmd ConfirmCardCommand) (Order, error) {
	if s.card == nil {
		return Order{}, ErrCheckoutDependencyMissing
	}
	sessionID := strings.TrimSpace(cmd.SessionID)
	if sessionID == "" {
		return Order{}, ErrCheckoutInvalidInput
	}

	details, err := s.card.RetrieveSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payments.ErrSessionNotFound) {
			return Order{}, ErrCheckoutSessionNotFound
		}
		return Order{}, translateProviderError(err)
	}
	if details.Status != payments.StatusPaid {
		return Order{}, ErrCheckoutPaymentPending
	}

	lines, err := decodeMetadataLines(details.Metadata[metadataProducts])
	if err != nil {
		return Order{}, fmt.Errorf("decode session lines: %w", err)
	}
	userID := strings.TrimSpace(details.Metadata[metadataUserID])
	if userID == "" {
		userID = strings.TrimSpace(cmd.UserID)
	}

	order := domain.Order{
		ID:            sessionID,
		UserID:        userID,
		Lines:         lines,
		TotalAmount:   details.AmountTotal,
		PaymentMethod: domain.PaymentMethodCard,
		PaymentRef:    sessionID,
		CreatedAt:     s.clock(),
	}
	return s.finalize(ctx, order, details.Metadata[metadataCouponCode])
}

func (s *checkoutService) CreateWalletPayment(ctx context.Context, cmd WalletPaymentCommand) (WalletPaymentResult, error) {
	if s.wallet == nil {
		return WalletPaymentResult{}, ErrCheckoutDependencyMissing
	}

	locked, err := s.lock(ctx, strings.TrimSpace(cmd.UserID), cmd.Lines, cmd.CouponCode)
	if err != nil {
		return WalletPaymentResult{}, err
	}

	paymentID := s.wallet.NewPaymentID()
	form := s.wallet.PaymentForm(payments.WalletChargeRequest{
		PaymentID: paymentID,
		Amount:    locked.total,
	})

	s.logger(ctx, "checkout.wallet.initiated", map[string]any{
		"user_id": cmd.UserID,
		"pid":     paymentID,
		"total":   locked.total,
	})
	return WalletPaymentResult{
		PaymentID:   paymentID,
		PaymentURL:  form.ActionURL,
		Fields:      form.Fields,
		TotalAmount: locked.total,
	}, nil
}

// VerifyWalletPayment re-locks the submitted lines, asks the wallet ledger to
// confirm the payment for the locked total and persists the order. A claimed
// amount that disagrees with the locked total fails verification. The payment
// ID doubles as the order ID so repeated verifications are safe.
func (s *checkoutService) VerifyWalletPayment(ctx context.Context, cmd WalletVerifyCommand) (Order, error) {
	if s.wallet == nil {
		return Order{}, ErrCheckoutDependencyMissing
	}
	paymentID := strings.TrimSpace(cmd.PaymentID)
	if paymentID == "" {
		return Order{}, ErrCheckoutInvalidInput
	}

	userID := strings.TrimSpace(cmd.UserID)
	locked, err := s.lock(ctx, userID, cmd.Lines, cmd.CouponCode)
	if err != nil {
		return Order{}, err
	}
	if cmd.Amount != 0 && cmd.Amount != locked.total {
		s.logger(ctx, "checkout.wallet.amount_mismatch", map[string]any{
			"pid":     paymentID,
			"claimed": cmd.Amount,
			"locked":  locked.total,
		})
		return Order{}, ErrCheckoutVerificationFailed
	}

	result, err := s.wallet.Verify(ctx, payments.WalletVerifyRequest{
		PaymentID: paymentID,
		RefID:     strings.TrimSpace(cmd.RefID),
		Amount:    locked.total,
	})
	if err != nil {
		return Order{}, translateProviderError(err)
	}
	if !result.Verified {
		s.logger(ctx, "checkout.wallet.rejected", map[string]any{
			"pid":    paymentID,
			"status": result.RawStatus,
		})
		return Order{}, ErrCheckoutVerificationFailed
	}

	order := domain.Order{
		ID:            paymentID,
		UserID:        userID,
		Lines:         locked.lines,
		TotalAmount:   locked.total,
		PaymentMethod: domain.PaymentMethodWallet,
		PaymentRef:    paymentID,
		CreatedAt:     s.clock(),
	}
	return s.finalize(ctx, order, locked.couponCode)
}

func (s *checkoutService) PlaceCashOnDelivery(ctx context.Context, cmd CashOnDeliveryCommand) (Order, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return Order{}, ErrCheckoutInvalidInput
	}
	shipping := ShippingInfo{
		Name:    strings.TrimSpace(cmd.Shipping.Name),
		Address: strings.TrimSpace(cmd.Shipping.Address),
		Phone:   strings.TrimSpace(cmd.Shipping.Phone),
	}
	if shipping.Name == "" || shipping.Address == "" || shipping.Phone == "" {
		return Order{}, ErrCheckoutShippingRequired
	}

	locked, err := s.lock(ctx, userID, cmd.Lines, cmd.CouponCode)
	if err != nil {
		return Order{}, err
	}

	token := fmt.Sprintf("%s-%d-%s", codTokenPrefix, s.clock().UnixMilli(), s.newID())
	order := domain.Order{
		ID:            token,
		UserID:        userID,
		Lines:         locked.lines,
		TotalAmount:   locked.total,
		PaymentMethod: domain.PaymentMethodCOD,
		PaymentRef:    token,
		Shipping:      &shipping,
		CreatedAt:     s.clock(),
	}
	return s.finalize(ctx, order, locked.couponCode)
}

// finalize persists the order exactly once, then runs the post-order side
// effects. A conflict on insert means a previous call already finalised this
// payment; the stored order is returned untouched.
func (s *checkoutService) finalize(ctx context.Context, order domain.Order, couponCode string) (Order, error) {
	created, err := s.orders.Insert(ctx, order)
	if err != nil {
		if isRepoConflict(err) {
			existing, findErr := s.orders.FindByID(ctx, order.ID)
			if findErr != nil {
				return Order{}, translateCheckoutError(findErr)
			}
			return existing, nil
		}
		return Order{}, translateCheckoutError(err)
	}

	s.afterOrder(ctx, created, strings.TrimSpace(couponCode))
	s.logger(ctx, "checkout.order.created", map[string]any{
		"order_id": created.ID,
		"user_id":  created.UserID,
		"method":   string(created.PaymentMethod),
		"total":    created.TotalAmount,
	})
	return created, nil
}

// afterOrder runs best-effort side effects: coupon redemption, reward
// issuance and cart clearing. Failures are logged, never surfaced; the order
// is already persisted.
func (s *checkoutService) afterOrder(ctx context.Context, order domain.Order, couponCode string) {
	if order.UserID == "" {
		return
	}
	if couponCode != "" {
		if err := s.coupons.Redeem(ctx, couponCode, order.UserID); err != nil {
			s.logger(ctx, "checkout.coupon.redeem_failed", map[string]any{
				"order_id": order.ID,
				"code":     couponCode,
				"error":    err.Error(),
			})
		}
	}
	if s.rewardThreshold > 0 && order.TotalAmount >= s.rewardThreshold {
		if _, err := s.coupons.IssueReward(ctx, order.UserID); err != nil {
			s.logger(ctx, "checkout.reward.issue_failed", map[string]any{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}
	if s.carts != nil {
		if err := s.carts.Delete(ctx, order.UserID); err != nil && !isRepoNotFound(err) {
			s.logger(ctx, "checkout.cart.clear_failed", map[string]any{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}
}

// roundHalfUpPercent computes pct percent of amount in minor units, rounding
// half up.
func roundHalfUpPercent(amount int64, pct int) int64 {
	if pct <= 0 || amount <= 0 {
		return 0
	}
	return (amount*int64(pct) + 50) / 100
}

type metadataLine struct {
	ID         string `json:"id"`
	Quantity   int    `json:"quantity"`
	UnitPrice  int64  `json:"price"`
	VariantKey string `json:"variant,omitempty"`
}

func encodeMetadataLines(lines []CheckoutLine) (string, error) {
	encoded := make([]metadataLine, 0, len(lines))
	for _, line := range lines {
		encoded = append(encoded, metadataLine{
			ID:         strings.TrimSpace(line.ProductID),
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			VariantKey: strings.TrimSpace(line.VariantKey),
		})
	}
	raw, err := json.Marshal(encoded)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeMetadataLines(raw string) ([]domain.OrderLine, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var decoded []metadataLine
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}
	lines := make([]domain.OrderLine, 0, len(decoded))
	for _, line := range decoded {
		lines = append(lines, domain.OrderLine{
			ProductID: line.ID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return lines, nil
}

func translateProviderError(err error) error {
	if errors.Is(err, payments.ErrProviderUnavailable) {
		return ErrCheckoutUnavailable
	}
	return err
}

func translateCheckoutError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
		return ErrCheckoutUnavailable
	}
	return err
}
