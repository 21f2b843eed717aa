package payments

import (
	"context"
	"errors"
)

// Status enumerates the normalised payment states shared across providers.
type Status string

const (
	// StatusPaid indicates the provider reports the payment as captured.
	StatusPaid Status = "paid"
	// StatusUnpaid indicates the session exists but no payment was captured.
	StatusUnpaid Status = "unpaid"
)

var (
	// ErrSessionNotFound is returned when the provider has no record of the session.
	ErrSessionNotFound = errors.New("payments: session not found")
	// ErrProviderUnavailable is returned when the provider cannot be reached.
	ErrProviderUnavailable = errors.New("payments: provider unavailable")
)

// CardLineItem describes a single line item within a hosted card session.
type CardLineItem struct {
	Name       string
	Image      string
	UnitAmount int64
	Quantity   int64
}

// CardSessionRequest captures the payload required to create a hosted card session.
type CardSessionRequest struct {
	Lines []CardLineItem
	// DiscountPercent applies a whole-session percentage discount when positive.
	DiscountPercent int
	SuccessURL      string
	CancelURL       string
	Metadata        map[string]string
}

// CardSession is the hosted session handle returned to the client.
type CardSession struct {
	ID  string
	URL string
}

// CardSessionDetails is the provider's record of a session at confirmation time.
type CardSessionDetails struct {
	ID          string
	Status      Status
	AmountTotal int64
	Metadata    map[string]string
}

// CardProvider is the hosted card checkout contract.
type CardProvider interface {
	CreateSession(ctx context.Context, req CardSessionRequest) (CardSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (CardSessionDetails, error)
}

// WalletChargeRequest describes a wallet redirect payment to initiate.
type WalletChargeRequest struct {
	PaymentID string
	Amount    int64
}

// WalletForm carries the redirect target and the form fields the client posts.
type WalletForm struct {
	ActionURL string
	Fields    map[string]string
}

// WalletVerifyRequest asks the wallet ledger whether a payment completed.
type WalletVerifyRequest struct {
	PaymentID string
	RefID     string
	Amount    int64
}

// WalletVerifyResult reports the ledger's answer with the raw status payload.
type WalletVerifyResult struct {
	Verified  bool
	RawStatus string
}

// WalletProvider is the wallet redirect rail contract.
type WalletProvider interface {
	// NewPaymentID mints a fresh provider-scoped payment identifier.
	NewPaymentID() string
	// PaymentForm builds the redirect form for the given charge.
	PaymentForm(req WalletChargeRequest) WalletForm
	// Verify confirms the payment against the provider's transaction ledger.
	Verify(ctx context.Context, req WalletVerifyRequest) (WalletVerifyResult, error)
}
