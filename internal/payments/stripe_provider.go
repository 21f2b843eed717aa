package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// StripeLogger defines the logging contract for Stripe provider operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeCouponAPI interface {
	New(params *stripe.CouponParams) (*stripe.Coupon, error)
}

// StripeClients groups the Stripe API surfaces the provider depends on.
type StripeClients struct {
	Sessions stripeSessionAPI
	Coupons  stripeCouponAPI
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey   string
	Currency string
	Backends *stripe.Backends
	Logger   StripeLogger
	Clients  *StripeClients
}

// StripeProvider implements CardProvider using Stripe hosted checkout sessions.
type StripeProvider struct {
	api      StripeClients
	currency string
	logger   StripeLogger
}

var _ CardProvider = (*StripeProvider)(nil)

// NewStripeProvider constructs a Stripe CardProvider using the given configuration.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Clients == nil {
		return nil, errors.New("stripe: api key is required")
	}

	var clients StripeClients
	if cfg.Clients != nil {
		clients = *cfg.Clients
	} else {
		sc := client.New(apiKey, cfg.Backends)
		clients = StripeClients{
			Sessions: sc.CheckoutSessions,
			Coupons:  sc.Coupons,
		}
	}

	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "usd"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeProvider{
		api:      clients,
		currency: currency,
		logger:   logger,
	}, nil
}

// CreateSession opens a hosted checkout session. A positive discount percent
// mints a single-use percentage coupon attached to the session.
func (p *StripeProvider) CreateSession(ctx context.Context, req CardSessionRequest) (CardSession, error) {
	if len(req.Lines) == 0 {
		return CardSession{}, errors.New("stripe: at least one line item is required")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	for _, line := range req.Lines {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(line.Name),
		}
		if line.Image != "" {
			product.Images = stripe.StringSlice([]string{line.Image})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(p.currency),
				UnitAmount:  stripe.Int64(line.UnitAmount),
				ProductData: product,
			},
			Quantity: stripe.Int64(line.Quantity),
		})
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}

	if req.DiscountPercent > 0 {
		coupon, err := p.api.Coupons.New(&stripe.CouponParams{
			PercentOff: stripe.Float64(float64(req.DiscountPercent)),
			Duration:   stripe.String(string(stripe.CouponDurationOnce)),
		})
		if err != nil {
			return CardSession{}, wrapStripeError("stripe: create coupon", err)
		}
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(coupon.ID)},
		}
	}

	session, err := p.api.Sessions.New(params)
	if err != nil {
		return CardSession{}, wrapStripeError("stripe: create session", err)
	}

	p.logger(ctx, "stripe.session.created", map[string]any{
		"session_id": session.ID,
		"lines":      len(req.Lines),
		"discount":   req.DiscountPercent,
	})
	return CardSession{ID: session.ID, URL: session.URL}, nil
}

// RetrieveSession fetches the session state for confirmation.
func (p *StripeProvider) RetrieveSession(ctx context.Context, sessionID string) (CardSessionDetails, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return CardSessionDetails{}, ErrSessionNotFound
	}

	session, err := p.api.Sessions.Get(sessionID, nil)
	if err != nil {
		return CardSessionDetails{}, wrapStripeError("stripe: retrieve session", err)
	}

	details := CardSessionDetails{
		ID:          session.ID,
		Status:      StatusUnpaid,
		AmountTotal: session.AmountTotal,
		Metadata:    session.Metadata,
	}
	switch session.PaymentStatus {
	case stripe.CheckoutSessionPaymentStatusPaid, stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		details.Status = StatusPaid
	}
	return details, nil
}

func wrapStripeError(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == 404 {
			return fmt.Errorf("%s: %w", op, ErrSessionNotFound)
		}
		if stripeErr.HTTPStatusCode >= 500 {
			return fmt.Errorf("%s: %w", op, ErrProviderUnavailable)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
