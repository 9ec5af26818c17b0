package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/igolaizola/sigtrack/pkg/signal"
	"github.com/oklog/ulid/v2"
)

type Store struct {
	lock    sync.Mutex
	signals map[string]signal.Signal
	charts  map[string]signal.Attachment
}

func New() *Store {
	return &Store{
		signals: make(map[string]signal.Signal),
		charts:  make(map[string]signal.Attachment),
	}
}

func (s *Store) Create(ctx context.Context, sig *signal.Signal, chart *signal.Attachment) (*signal.Signal, error) {
	cp := *sig
	cp.ID = ulid.Make().String()
	if cp.Status == "" {
		cp.Status = signal.Pending
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if chart != nil {
		cp.ChartImage = chart.Name
		s.charts[cp.ID] = *chart
	}
	s.signals[cp.ID] = cp
	return &cp, nil
}

// ListPending returns pending signals ordered by creation.
func (s *Store) ListPending(ctx context.Context) ([]*signal.Signal, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	var out []*signal.Signal
	for _, sig := range s.signals {
		if sig.Status != signal.Pending {
			continue
		}
		sig := sig
		out = append(out, &sig)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id string, from, to signal.Status, price string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	sig, ok := s.signals[id]
	if !ok {
		return fmt.Errorf("inmem: %s: %w", id, signal.ErrNotFound)
	}
	if sig.Status != from {
		return fmt.Errorf("inmem: %s is %s, not %s: %w", id, sig.Status, from, signal.ErrStatusConflict)
	}
	sig.Status = to
	sig.ResolvedAt = time.Now().UTC()
	sig.ResolvedPrice = price
	s.signals[id] = sig
	return nil
}

// Get returns a copy of the signal with the given id.
func (s *Store) Get(id string) (signal.Signal, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	sig, ok := s.signals[id]
	return sig, ok
}

// Chart returns the attachment stored with signal id.
func (s *Store) Chart(id string) (signal.Attachment, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	c, ok := s.charts[id]
	return c, ok
}
