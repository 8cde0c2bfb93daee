package hold

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRequest     = errors.New("invalid hold request")
	ErrFraudLimitExceeded = errors.New("transaction amount exceeds fraud limit")
)

// IsValidationError reports whether err is a caller-visible validation failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrFraudLimitExceeded)
}

// ValidationError lists every problem found in a request. It matches ErrInvalidRequest.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidRequest.Error() + ": " + strings.Join(e.Problems, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// CreateRequest asks for a hold against a payment transaction
type CreateRequest struct {
	TransactionID     int64
	IssuerAccountID   int64
	MerchantAccountID int64
	Amount            decimal.Decimal
	Currency          string
}

// CreateResult is returned for both fresh creations and idempotent replays
type CreateResult struct {
	HoldID   int64
	Status   Status
	Replayed bool
}

// Normalize validates the request and fills the currency default.
func (r *CreateRequest) Normalize(defaultCurrency string) error {
	var problems []string

	if r.TransactionID <= 0 {
		problems = append(problems, "transactionId is required")
	}
	if r.IssuerAccountID <= 0 {
		problems = append(problems, "issuerAccountId is required")
	}
	if r.MerchantAccountID <= 0 {
		problems = append(problems, "merchantAccountId is required")
	}
	if !r.Amount.IsPositive() {
		problems = append(problems, "amount must be greater than 0")
	}

	currency := strings.ToUpper(strings.TrimSpace(r.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if !isCurrencyCode(currency) {
		problems = append(problems, "currency must be a 3-letter code")
	}
	r.Currency = currency

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// FraudChecker decides whether a hold request may proceed
type FraudChecker interface {
	Check(ctx context.Context, req *CreateRequest) error
}

// CeilingChecker rejects amounts strictly above a fixed ceiling.
type CeilingChecker struct {
	Ceiling decimal.Decimal
}

// DefaultFraudCeiling is used when no ceiling is configured
var DefaultFraudCeiling = decimal.RequireFromString("10000.00")

func NewCeilingChecker(ceiling decimal.Decimal) *CeilingChecker {
	return &CeilingChecker{Ceiling: ceiling}
}

func (c *CeilingChecker) Check(_ context.Context, req *CreateRequest) error {
	if req.Amount.GreaterThan(c.Ceiling) {
		return fmt.Errorf("%w: %s > %s", ErrFraudLimitExceeded, req.Amount.StringFixed(2), c.Ceiling.StringFixed(2))
	}
	return nil
}
