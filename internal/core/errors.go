package core

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the valuation engine and its adapters.
var (
	ErrParse             = errors.New("parse error")
	ErrRateUnavailable   = errors.New("exchange rate unavailable")
	ErrValidation        = errors.New("validation error")
	ErrQuantityUnderflow = errors.New("sell exceeds held quantity")
	ErrNotFound          = errors.New("not found")
)

var (
	ErrInvalidDate      = &ValidationError{Field: "date", Reason: "cannot be zero"}
	ErrInvalidAmount    = &ValidationError{Field: "amount", Reason: "must be positive"}
	ErrInvalidQuantity  = &ValidationError{Field: "quantity", Reason: "must be positive"}
	ErrInvalidRate      = &ValidationError{Field: "rate", Reason: "must be positive"}
	ErrEmptyCategory    = &ValidationError{Field: "category", Reason: "cannot be empty"}
	ErrEmptyCurrency    = &ValidationError{Field: "currency", Reason: "cannot be empty"}
	ErrInvalidCurrency  = &ValidationError{Field: "currency", Reason: "must be a 3-letter code"}
	ErrInvalidTxType    = &ValidationError{Field: "type", Reason: "must be buy, sell, dividend or reinvest"}
	ErrEmptyInvestment  = &ValidationError{Field: "investment_id", Reason: "cannot be empty"}
	ErrDescriptionLimit = &ValidationError{Field: "description", Reason: "too long (max 200 characters)"}
)

// ValidationError describes a record rejected on write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets callers match any validation failure with errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
