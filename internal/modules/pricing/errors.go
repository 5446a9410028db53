package pricing

import "errors"

var (
	ErrRateCardNotFound = errors.New("rate card not found")
	ErrQuoteNotFound    = errors.New("quote not found")
	ErrStoreUnavailable = errors.New("pricing store unavailable")
)
