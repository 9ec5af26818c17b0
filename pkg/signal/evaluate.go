package signal

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrUnknownDirection = errors.New("signal: unknown direction")

// Evaluate returns the status reached at price current. Take profit is
// checked before stop loss, so a price that satisfies both wins.
func Evaluate(direction Direction, tp, sl, current decimal.Decimal) (Status, error) {
	switch direction {
	case Buy:
		if current.GreaterThanOrEqual(tp) {
			return Won, nil
		}
		if current.LessThanOrEqual(sl) {
			return Lost, nil
		}
	case Sell:
		if current.LessThanOrEqual(tp) {
			return Won, nil
		}
		if current.GreaterThanOrEqual(sl) {
			return Lost, nil
		}
	default:
		return Pending, fmt.Errorf("%w: %q", ErrUnknownDirection, direction)
	}
	return Pending, nil
}
