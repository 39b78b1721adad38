// Package wizard drives the four-step card order flow: pick a template, enter the
// names, write the message, review and pay through a hosted checkout session.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/apiclient"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/catalog"
	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/customizer"
)

// Step is a wizard page, numbered from 1.
type Step int

const (
	StepSelectTemplate Step = iota + 1
	StepDetails
	StepMessage
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepSelectTemplate:
		return "select template"
	case StepDetails:
		return "details"
	case StepMessage:
		return "message"
	case StepReview:
		return "review"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

const (
	MaxMessageRunes  = 500
	productPrefix    = "Holiday Card - "
	checkoutCurrency = "usd"
	redirectBase     = "https://checkout.stripe.com/pay/"
)

var (
	ErrTemplateRequired = errors.New("wizard: select a template first")
	ErrNamesRequired    = errors.New("wizard: customer and recipient names are required")
	ErrStepNotVisited   = errors.New("wizard: step has not been visited")
	ErrNotOnReview      = errors.New("wizard: submit is only available on the review step")
	ErrSubmitInFlight   = errors.New("wizard: a submission is already in flight")
	ErrMissingSession   = errors.New("wizard: checkout returned no session id")
)

// SubmitError is a failed checkout attempt. The draft is kept so the shopper can retry.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string {
	if e.Err == nil {
		return "wizard: checkout failed"
	}
	return "wizard: checkout failed: " + e.Err.Error()
}

func (e *SubmitError) Unwrap() error { return e.Err }

// Message is the shopper-facing text of the failure.
func (e *SubmitError) Message() string {
	var apiErr *apiclient.Error
	if errors.As(e.Err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "checkout failed"
}

// CheckoutClient creates hosted checkout sessions.
type CheckoutClient interface {
	CreateCheckoutSession(ctx context.Context, req apiclient.CheckoutRequest) (apiclient.CheckoutSession, error)
}

// Template is the card being ordered.
type Template struct {
	ID    string
	Title string
	Price float64
}

// TemplateFromCard adapts a catalog card.
func TemplateFromCard(card catalog.Card) Template {
	return Template{ID: card.ID, Title: card.Title, Price: card.Price}
}

// Draft is the in-progress order.
type Draft struct {
	Template      *Template
	CustomerName  string
	RecipientName string
	Message       string
	Quantity      int
	Customization *customizer.Result
}

// Wizard holds one order draft. Methods are safe for concurrent use; the checkout
// call runs outside the lock.
type Wizard struct {
	client CheckoutClient
	newKey func() string

	mu         sync.Mutex
	step       Step
	visited    map[Step]bool
	draft      Draft
	draftKey   string
	keyedItems string
	submitting bool
	lastErr    *SubmitError
}

// Option customises a Wizard.
type Option func(*Wizard)

// WithIdempotencyKeys replaces the generator for per-draft checkout keys.
func WithIdempotencyKeys(fn func() string) Option {
	return func(w *Wizard) {
		if fn != nil {
			w.newKey = fn
		}
	}
}

// New starts a wizard on step 1.
func New(client CheckoutClient, opts ...Option) *Wizard {
	w := &Wizard{client: client, newKey: uuid.NewString}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	w.resetLocked()
	return w
}

func (w *Wizard) resetLocked() {
	w.step = StepSelectTemplate
	w.visited = map[Step]bool{StepSelectTemplate: true}
	w.draft = Draft{Quantity: 1}
	w.draftKey = w.newKey()
	w.keyedItems = ""
	w.lastErr = nil
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Draft returns a copy of the draft.
func (w *Wizard) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := w.draft
	if d.Template != nil {
		tpl := *d.Template
		d.Template = &tpl
	}
	if d.Customization != nil {
		c := *d.Customization
		d.Customization = &c
	}
	return d
}

// Visited reports whether the step indicator may jump to s.
func (w *Wizard) Visited(s Step) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visited[s]
}

func (w *Wizard) SelectTemplate(tpl Template) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Template = &tpl
}

func (w *Wizard) SetCustomerName(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.CustomerName = name
}

func (w *Wizard) SetRecipientName(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.RecipientName = name
}

// SetMessage stores the card message truncated to MaxMessageRunes.
func (w *Wizard) SetMessage(msg string) {
	if utf8.RuneCountInString(msg) > MaxMessageRunes {
		msg = string([]rune(msg)[:MaxMessageRunes])
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Message = msg
}

// SetQuantity stores n, raised to 1 if smaller.
func (w *Wizard) SetQuantity(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Quantity = max(n, 1)
}

func (w *Wizard) Increment() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Quantity++
}

func (w *Wizard) Decrement() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Quantity = max(w.draft.Quantity-1, 1)
}

// ApplyCustomization attaches a saved customizer result. A non-empty customizer text
// also becomes the card message when none was written.
func (w *Wizard) ApplyCustomization(res customizer.Result) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.draft.Customization = &res
	if strings.TrimSpace(w.draft.Message) == "" && strings.TrimSpace(res.Text) != "" {
		msg := res.Text
		if utf8.RuneCountInString(msg) > MaxMessageRunes {
			msg = string([]rune(msg)[:MaxMessageRunes])
		}
		w.draft.Message = msg
	}
}

// Next advances one step, enforcing the gate of the step being left.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step >= StepReview {
		return nil
	}
	if err := w.checkGateLocked(w.step); err != nil {
		return err
	}
	w.step++
	w.visited[w.step] = true
	return nil
}

// Back returns to the previous step.
func (w *Wizard) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > StepSelectTemplate {
		w.step--
	}
}

// GoTo jumps to a visited step.
func (w *Wizard) GoTo(s Step) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.visited[s] {
		return fmt.Errorf("%w: %s", ErrStepNotVisited, s)
	}
	w.step = s
	return nil
}

func (w *Wizard) checkGateLocked(s Step) error {
	switch s {
	case StepSelectTemplate:
		if w.draft.Template == nil {
			return ErrTemplateRequired
		}
	case StepDetails:
		if strings.TrimSpace(w.draft.CustomerName) == "" || strings.TrimSpace(w.draft.RecipientName) == "" {
			return ErrNamesRequired
		}
	}
	return nil
}

// UnitCents is the template price in minor units.
func (w *Wizard) UnitCents() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.unitCentsLocked()
}

func (w *Wizard) unitCentsLocked() int64 {
	if w.draft.Template == nil {
		return 0
	}
	return int64(math.Round(w.draft.Template.Price * 100))
}

// TotalCents is unit price times quantity, computed in minor units.
func (w *Wizard) TotalCents() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.unitCentsLocked() * int64(w.draft.Quantity)
}

// FormatTotal renders the total, for example "$4.47".
func (w *Wizard) FormatTotal() string {
	return catalog.FormatCents(w.TotalCents(), checkoutCurrency)
}

// Submitting reports whether a checkout call is in flight.
func (w *Wizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// LastError returns the most recent checkout failure, nil after a success.
func (w *Wizard) LastError() *SubmitError {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Submit creates the checkout session and returns the URL to redirect the shopper to.
// On success the draft is cleared. On failure the wizard stays on the review step.
func (w *Wizard) Submit(ctx context.Context) (string, error) {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return "", ErrSubmitInFlight
	}
	if w.step != StepReview {
		w.mu.Unlock()
		return "", ErrNotOnReview
	}
	for _, s := range []Step{StepSelectTemplate, StepDetails} {
		if err := w.checkGateLocked(s); err != nil {
			w.mu.Unlock()
			return "", err
		}
	}
	req := apiclient.CheckoutRequest{
		Items: []apiclient.LineItem{{
			Currency:    checkoutCurrency,
			ProductName: productPrefix + w.draft.Template.Title,
			UnitAmount:  w.unitCentsLocked(),
			Quantity:    int64(w.draft.Quantity),
		}},
	}
	req.IdempotencyKey = w.keyForLocked(req.Items)
	w.submitting = true
	w.mu.Unlock()

	var (
		session apiclient.CheckoutSession
		err     error
	)
	if w.client == nil {
		err = errors.New("wizard: checkout client is not configured")
	} else {
		session, err = w.client.CreateCheckoutSession(ctx, req)
	}
	if err == nil && strings.TrimSpace(session.ID) == "" {
		err = ErrMissingSession
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
	if err != nil {
		w.lastErr = &SubmitError{Err: err}
		return "", w.lastErr
	}
	w.resetLocked()
	return redirectBase + session.ID, nil
}

// keyForLocked returns the checkout key for items. A retry of the same items reuses the
// key so the server replays its first answer; edited items get a fresh key because the
// server pins a key to the body it first saw.
func (w *Wizard) keyForLocked(items []apiclient.LineItem) string {
	sent := fmt.Sprintf("%+v", items)
	if w.keyedItems != "" && w.keyedItems != sent {
		w.draftKey = w.newKey()
	}
	w.keyedItems = sent
	return w.draftKey
}

// Cancel discards the draft and returns to step 1.
func (w *Wizard) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
}
