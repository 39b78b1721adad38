package domain

import (
	"math"
	"time"
)

// Template is a purchasable card design.
type Template struct {
	ID          string
	Title       string
	Description string
	// Price is the unit price in major currency units, e.g. 1.49.
	Price     float64
	ImageURL  string
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PriceCents converts the decimal price to integer minor units.
func (t Template) PriceCents() int64 {
	return CentsFromPrice(t.Price)
}

// CentsFromPrice rounds a decimal price to the nearest cent.
func CentsFromPrice(price float64) int64 {
	return int64(math.Round(price * 100))
}

// TemplateSeed is the operator-supplied input used to create or refresh a template.
type TemplateSeed struct {
	ID          string
	Title       string
	Description string
	Price       float64
	ImageURL    string
	Category    string
}
