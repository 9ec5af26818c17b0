package signal

import (
	"context"
	"errors"
)

var (
	ErrNotFound       = errors.New("signal: not found")
	ErrStatusConflict = errors.New("signal: status conflict")
)

// Store persists signals.
//
// UpdateStatus sets the status of signal id to `to` only if it is currently
// `from`. Otherwise it returns ErrStatusConflict and leaves it untouched.
type Store interface {
	Create(ctx context.Context, s *Signal, chart *Attachment) (*Signal, error)
	ListPending(ctx context.Context) ([]*Signal, error)
	UpdateStatus(ctx context.Context, id string, from, to Status, price string) error
}
