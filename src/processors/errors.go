package processors

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks any input the engine refuses to compute on.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidQuantity is returned when a sell quantity is not in (0, lot quantity].
	ErrInvalidQuantity = fmt.Errorf("%w: invalid quantity", ErrInvalidInput)
	// ErrLotClosed is returned when selling a lot that has already been liquidated.
	ErrLotClosed = errors.New("lot is already closed")
	// ErrLotOpen is returned when realizing a lot that has not been sold.
	ErrLotOpen = errors.New("lot is still open")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
