// Package catalog turns the template list served by the API into the cards a storefront
// shows: formatted price, fallback badge and the order link.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/bbasketballer75/Holiday-Card-Order-Fourm/internal/apiclient"
)

// DefaultPrice is shown for templates that carry no price.
const DefaultPrice = 1.00

const orderPath = "/order"

// ErrTemplateNotFound is returned by Find for unknown ids.
var ErrTemplateNotFound = errors.New("catalog: template not found")

// Source lists templates, newest first.
type Source interface {
	ListTemplates(ctx context.Context, limit int) ([]apiclient.Template, error)
}

// Card is the view of one purchasable template.
type Card struct {
	ID          string
	Title       string
	Description string
	Price       float64
	PriceCents  int64
	PriceLabel  string
	ImageURL    string
	// Badge is a decorative glyph used when ImageURL is empty.
	Badge     string
	OrderPath string
}

// Catalog caches the last loaded card list.
type Catalog struct {
	source   Source
	currency string

	mu    sync.RWMutex
	cards []Card
}

// Option customises a Catalog.
type Option func(*Catalog)

// WithCurrency sets the ISO currency used for price labels. Defaults to usd.
func WithCurrency(code string) Option {
	return func(c *Catalog) {
		if code = strings.TrimSpace(code); code != "" {
			c.currency = code
		}
	}
}

// New constructs a Catalog over source.
func New(source Source, opts ...Option) *Catalog {
	c := &Catalog{source: source, currency: "usd"}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Load fetches the catalog and replaces the cached cards.
func (c *Catalog) Load(ctx context.Context) ([]Card, error) {
	if c.source == nil {
		return nil, errors.New("catalog: source is required")
	}
	templates, err := c.source.ListTemplates(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("catalog: load templates: %w", err)
	}
	cards := make([]Card, 0, len(templates))
	for _, tpl := range templates {
		cards = append(cards, NewCard(tpl, c.currency))
	}

	c.mu.Lock()
	c.cards = cards
	c.mu.Unlock()

	return append([]Card(nil), cards...), nil
}

// Cards returns the cards from the last Load.
func (c *Catalog) Cards() []Card {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Card(nil), c.cards...)
}

// Find returns the loaded card with id.
func (c *Catalog) Find(id string) (Card, error) {
	id = strings.TrimSpace(id)
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, card := range c.cards {
		if card.ID == id {
			return card, nil
		}
	}
	return Card{}, ErrTemplateNotFound
}

// NewCard builds the card for one template.
func NewCard(tpl apiclient.Template, currencyCode string) Card {
	price := tpl.Price
	if price <= 0 {
		price = DefaultPrice
	}
	cents := tpl.PriceCents
	if cents <= 0 {
		cents = Cents(price)
	}
	return Card{
		ID:          tpl.ID,
		Title:       tpl.Title,
		Description: tpl.Description,
		Price:       price,
		PriceCents:  cents,
		PriceLabel:  FormatCents(cents, currencyCode),
		ImageURL:    strings.TrimSpace(tpl.ImageURL),
		Badge:       Badge(tpl.Title),
		OrderPath:   orderPath + "?template=" + url.QueryEscape(tpl.ID),
	}
}

// Badge picks the decorative glyph for a card without an image.
func Badge(title string) string {
	switch {
	case strings.Contains(title, "Elegant"):
		return "✨"
	case strings.Contains(title, "Classic"):
		return "🎄"
	default:
		return "🎁"
	}
}

// Cents converts a decimal price to minor units, rounding half away from zero.
func Cents(price float64) int64 {
	return int64(math.Round(price * 100))
}

// FormatCents renders an amount in minor units, for example 447 usd as "$4.47".
// Unknown currency codes fall back to USD.
func FormatCents(cents int64, currencyCode string) string {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(currencyCode)))
	if err != nil {
		unit = currency.USD
	}
	scale, _ := currency.Standard.Rounding(unit)

	p := message.NewPrinter(language.AmericanEnglish)
	symbol := p.Sprint(currency.NarrowSymbol(unit))

	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	major := float64(cents) / math.Pow10(scale)
	return sign + symbol + p.Sprintf(fmt.Sprintf("%%.%df", scale), major)
}
