package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/payments"
)

const (
	defaultCheckoutCurrency = "usd"
	defaultCheckoutBaseURL  = "http://localhost:3000"
	maxCheckoutItems        = 20
	maxCheckoutItemName     = 250
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied malformed line items.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutPaymentFailed indicates the payment gateway rejected the session.
	ErrCheckoutPaymentFailed = errors.New("checkout: payment failed")
)

// DefaultCheckoutItem is charged when the storefront posts no items.
var DefaultCheckoutItem = CheckoutLineItem{
	Currency:   defaultCheckoutCurrency,
	Name:       "Holiday Card",
	UnitAmount: 150,
	Quantity:   1,
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Payments payments.Provider
	// BaseURL is the storefront origin the gateway returns the shopper to.
	BaseURL  string
	Currency string
	Events   EventPublisher
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	payments   payments.Provider
	successURL string
	cancelURL  string
	currency   string
	events     eventEmitter
	logger     func(context.Context, string, map[string]any)
}

var _ CheckoutService = (*checkoutService)(nil)

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Payments == nil {
		return nil, errors.New("checkout service: payment provider is required")
	}
	base := strings.TrimRight(strings.TrimSpace(deps.BaseURL), "/")
	if base == "" {
		base = defaultCheckoutBaseURL
	}
	currency := strings.ToLower(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = defaultCheckoutCurrency
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &checkoutService{
		payments:   deps.Payments,
		successURL: base + "/order/success",
		cancelURL:  base + "/order/cancel",
		currency:   currency,
		events:     newEventEmitter(deps.Events, logger, func() time.Time { return clock().UTC() }),
		logger:     logger,
	}, nil
}

// CreateCheckoutSession validates the item shape and creates a hosted session. Unit
// amounts are forwarded as posted; the catalog price is not re-checked here.
func (s *checkoutService) CreateCheckoutSession(ctx context.Context, cmd CreateCheckoutSessionCommand) (CheckoutSession, error) {
	items, err := s.normaliseItems(cmd.Items)
	if err != nil {
		return CheckoutSession{}, err
	}

	lines := make([]payments.LineItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, payments.LineItem{
			Name:       item.Name,
			Currency:   item.Currency,
			UnitAmount: item.UnitAmount,
			Quantity:   item.Quantity,
		})
	}

	session, err := s.payments.CreateCheckoutSession(ctx, payments.CheckoutSessionRequest{
		Items:          lines,
		SuccessURL:     s.successURL,
		CancelURL:      s.cancelURL,
		IdempotencyKey: strings.TrimSpace(cmd.IdempotencyKey),
	})
	if err != nil {
		s.logger(ctx, "checkout.session.failed", map[string]any{"error": err.Error()})
		return CheckoutSession{}, fmt.Errorf("%w: %w", ErrCheckoutPaymentFailed, err)
	}
	if strings.TrimSpace(session.ID) == "" {
		return CheckoutSession{}, fmt.Errorf("%w: gateway returned no session id", ErrCheckoutPaymentFailed)
	}

	var amount int64
	for _, item := range items {
		amount += item.UnitAmount * item.Quantity
	}
	s.logger(ctx, "checkout.session.created", map[string]any{
		"sessionId": session.ID,
		"items":     len(items),
		"amount":    amount,
	})
	s.events.emit(ctx, EventCheckoutSessionCreated, session.ID, map[string]any{
		"amount":   amount,
		"currency": items[0].Currency,
		"items":    len(items),
	})
	return CheckoutSession{ID: session.ID, URL: session.RedirectURL}, nil
}

func (s *checkoutService) normaliseItems(items []CheckoutLineItem) ([]CheckoutLineItem, error) {
	if len(items) == 0 {
		item := DefaultCheckoutItem
		item.Currency = s.currency
		return []CheckoutLineItem{item}, nil
	}
	if len(items) > maxCheckoutItems {
		return nil, fmt.Errorf("%w: at most %d items are allowed", ErrCheckoutInvalidInput, maxCheckoutItems)
	}
	out := make([]CheckoutLineItem, 0, len(items))
	for i, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		item.Currency = strings.ToLower(strings.TrimSpace(item.Currency))
		if item.Currency == "" {
			item.Currency = s.currency
		}
		switch {
		case item.Name == "":
			return nil, fmt.Errorf("%w: items[%d].price_data.product_data.name is required", ErrCheckoutInvalidInput, i)
		case len([]rune(item.Name)) > maxCheckoutItemName:
			return nil, fmt.Errorf("%w: items[%d] name is too long", ErrCheckoutInvalidInput, i)
		case item.Quantity < 1:
			return nil, fmt.Errorf("%w: items[%d].quantity must be at least 1", ErrCheckoutInvalidInput, i)
		case item.UnitAmount < 0:
			return nil, fmt.Errorf("%w: items[%d].price_data.unit_amount must not be negative", ErrCheckoutInvalidInput, i)
		case len(item.Currency) != 3:
			return nil, fmt.Errorf("%w: items[%d].price_data.currency must be an ISO code", ErrCheckoutInvalidInput, i)
		}
		out = append(out, item)
	}
	return out, nil
}

// UpstreamMessage extracts the message a payment gateway or store reported, falling back
// to the full error text.
func UpstreamMessage(err error) string {
	if err == nil {
		return ""
	}
	var gwErr *payments.GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Error()
	}
	return err.Error()
}
