package shop

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrEmptyCart is returned when checkout is attempted with no items.
	ErrEmptyCart = errors.New("cart empty")

	// ErrCartItemNotFound covers both a nonexistent item and an item
	// owned by another user's cart; callers cannot tell them apart.
	ErrCartItemNotFound = errors.New("cart item not found")

	// ErrOrderNotFound covers both a nonexistent order and an order
	// owned by another user; callers cannot tell them apart.
	ErrOrderNotFound = errors.New("order not found")

	ErrProductNotFound = errors.New("product not found")

	// ErrPaymentVerify means the callback checksum did not match.
	ErrPaymentVerify = errors.New("payment verification failed")

	// ErrPaymentFailed means the gateway reported a non-success code.
	ErrPaymentFailed = errors.New("payment failed")
)

// InsufficientStockError aborts the whole checkout; no partial order,
// no partial stock decrement.
type InsufficientStockError struct {
	ProductTitle string
	Available    int
	Requested    int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %s, available %d, requested %d",
		e.ProductTitle, e.Available, e.Requested)
}

// IsClientError reports whether err is a validation error that maps to
// a 4xx response rather than a storage failure.
func IsClientError(err error) bool {
	var ise *InsufficientStockError
	switch {
	case errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrCartItemNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrPaymentVerify),
		errors.Is(err, ErrPaymentFailed),
		errors.As(err, &ise):
		return true
	}
	return false
}
