package event

import (
	"context"
	"errors"

	"github.com/igolaizola/sigtrack/pkg/signal"
)

// Publisher delivers resolutions to downstream consumers. Delivery is best
// effort.
type Publisher interface {
	Publish(ctx context.Context, r signal.Resolution) error
}

type PublisherFunc func(ctx context.Context, r signal.Resolution) error

func (f PublisherFunc) Publish(ctx context.Context, r signal.Resolution) error {
	return f(ctx, r)
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, r signal.Resolution) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards resolutions.
var Nop = PublisherFunc(func(context.Context, signal.Resolution) error { return nil })
