package payments

import (
	"context"
	"errors"
)

// LineItem is one priced product line of a hosted checkout. Amounts are minor units.
type LineItem struct {
	Name       string
	Currency   string
	UnitAmount int64
	Quantity   int64
}

// CheckoutSessionRequest captures the payload required to create a checkout session.
type CheckoutSessionRequest struct {
	Items          []LineItem
	SuccessURL     string
	CancelURL      string
	IdempotencyKey string
}

// CheckoutSession represents the hosted session returned to the client.
type CheckoutSession struct {
	ID          string
	RedirectURL string
}

// Provider creates hosted checkout sessions.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
}

// GatewayError carries the payment gateway's own message so callers can surface it
// verbatim.
type GatewayError struct {
	Op      string
	Message string
	Code    string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Op + " failed"
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsGatewayError reports whether err came back from the payment gateway.
func IsGatewayError(err error) bool {
	var gwErr *GatewayError
	return errors.As(err, &gwErr)
}
