// README: Common money value object used across modules.
package types

// Money is an amount in currency subunits (cents).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

const DefaultCurrency = "EUR"
