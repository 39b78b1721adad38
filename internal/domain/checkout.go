package domain

// CheckoutLineItem is one priced line forwarded to the payment gateway.
type CheckoutLineItem struct {
	Currency string
	Name     string
	// UnitAmount is in minor currency units.
	UnitAmount int64
	Quantity   int64
}

// CheckoutSession identifies a hosted checkout page.
type CheckoutSession struct {
	ID  string
	URL string
}
