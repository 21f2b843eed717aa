package payments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	walletPaymentIDPrefix = "ESW"
	walletVerifyLimit     = 1 << 16
)

// WalletLogger defines the logging contract for wallet provider operations.
type WalletLogger func(ctx context.Context, event string, fields map[string]any)

// WalletProviderConfig configures the redirect wallet provider.
type WalletProviderConfig struct {
	// PaymentURL is the gateway endpoint the client form posts to.
	PaymentURL string
	// VerifyURL is the transaction ledger endpoint used for verification.
	VerifyURL string
	// MerchantCode identifies the storefront with the gateway.
	MerchantCode string
	SuccessURL   string
	FailureURL   string
	// Timeout bounds each verification call; defaults to ten seconds.
	Timeout    time.Duration
	HTTPClient *http.Client
	Clock      func() time.Time
	Logger     WalletLogger
}

// RedirectWalletProvider implements WalletProvider against a form-post
// gateway with a transaction ledger verification endpoint.
type RedirectWalletProvider struct {
	paymentURL   string
	verifyURL    string
	merchantCode string
	successURL   string
	failureURL   string
	timeout      time.Duration
	httpClient   *http.Client
	clock        func() time.Time
	logger       WalletLogger
}

var _ WalletProvider = (*RedirectWalletProvider)(nil)

// NewRedirectWalletProvider constructs the wallet provider from configuration.
func NewRedirectWalletProvider(cfg WalletProviderConfig) (*RedirectWalletProvider, error) {
	paymentURL := strings.TrimSpace(cfg.PaymentURL)
	verifyURL := strings.TrimSpace(cfg.VerifyURL)
	merchantCode := strings.TrimSpace(cfg.MerchantCode)
	if paymentURL == "" || verifyURL == "" {
		return nil, errors.New("wallet: payment and verify urls are required")
	}
	if merchantCode == "" {
		return nil, errors.New("wallet: merchant code is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &RedirectWalletProvider{
		paymentURL:   paymentURL,
		verifyURL:    verifyURL,
		merchantCode: merchantCode,
		successURL:   strings.TrimSpace(cfg.SuccessURL),
		failureURL:   strings.TrimSpace(cfg.FailureURL),
		timeout:      timeout,
		httpClient:   httpClient,
		clock:        clock,
		logger:       logger,
	}, nil
}

// NewPaymentID mints a provider-scoped payment identifier of the form
// ESW-<millis>-<6 random alphanumerics>.
func (p *RedirectWalletProvider) NewPaymentID() string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = walletIDAlphabet[rand.Intn(len(walletIDAlphabet))]
	}
	return fmt.Sprintf("%s-%d-%s", walletPaymentIDPrefix, p.clock().UnixMilli(), suffix)
}

// PaymentForm builds the legacy gateway form for the given charge.
func (p *RedirectWalletProvider) PaymentForm(req WalletChargeRequest) WalletForm {
	amount := strconv.FormatInt(req.Amount, 10)
	return WalletForm{
		ActionURL: p.paymentURL,
		Fields: map[string]string{
			"amt":   amount,
			"psc":   "0",
			"pdc":   "0",
			"txAmt": "0",
			"tAmt":  amount,
			"pid":   req.PaymentID,
			"scd":   p.merchantCode,
			"su":    p.successURL,
			"fu":    p.failureURL,
		},
	}
}

// Verify posts the payment reference to the transaction ledger. The ledger
// answers with a small XML body whose status node carries "Success" on
// completed payments; match is case-insensitive over the whole body.
func (p *RedirectWalletProvider) Verify(ctx context.Context, req WalletVerifyRequest) (WalletVerifyResult, error) {
	if strings.TrimSpace(req.PaymentID) == "" {
		return WalletVerifyResult{}, errors.New("wallet: payment id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	form := url.Values{}
	form.Set("amt", strconv.FormatInt(req.Amount, 10))
	form.Set("pid", req.PaymentID)
	form.Set("scd", p.merchantCode)
	if rid := strings.TrimSpace(req.RefID); rid != "" {
		form.Set("rid", rid)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return WalletVerifyResult{}, fmt.Errorf("wallet: build verify request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return WalletVerifyResult{}, fmt.Errorf("wallet: verify timed out: %w", ErrProviderUnavailable)
		}
		return WalletVerifyResult{}, fmt.Errorf("wallet: verify request: %w", ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, walletVerifyLimit))
	if err != nil {
		return WalletVerifyResult{}, fmt.Errorf("wallet: read verify response: %w", err)
	}

	raw := strings.TrimSpace(string(body))
	verified := resp.StatusCode < 300 && strings.Contains(strings.ToLower(raw), "success")

	p.logger(ctx, "wallet.verify", map[string]any{
		"pid":      req.PaymentID,
		"amount":   req.Amount,
		"verified": verified,
	})
	return WalletVerifyResult{Verified: verified, RawStatus: raw}, nil
}

const walletIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
