package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/igolaizola/sigtrack/pkg/signal"
	"github.com/oklog/ulid/v2"
)

var (
	signalsBucket = []byte("signals")
	pendingBucket = []byte("pending")
	chartsBucket  = []byte("charts")
)

func New(path string) (*Store, error) {
	// The data file will be created if it doesn't exist.
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt: couldn't open bolt db %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{signalsBucket, pendingBucket, chartsBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt: couldn't create bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Store keeps signals keyed by ULID, so keys sort by creation time. The
// pending bucket indexes the ids still waiting for resolution.
type Store struct {
	db *bolt.DB
}

func (s *Store) Close() error {
	return s.db.Close()
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
	if chart != nil {
		cp.ChartImage = chart.Name
	}
	key := []byte(cp.ID)
	if err := s.db.Update(func(tx *bolt.Tx) error {
		byt, err := json.Marshal(cp)
		if err != nil {
			return fmt.Errorf("couldn't encode: %w", err)
		}
		if err := tx.Bucket(signalsBucket).Put(key, byt); err != nil {
			return err
		}
		if cp.Status == signal.Pending {
			if err := tx.Bucket(pendingBucket).Put(key, []byte{}); err != nil {
				return err
			}
		}
		if chart != nil {
			return tx.Bucket(chartsBucket).Put(key, chart.Data)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("bolt: couldn't put %s: %w", cp.ID, err)
	}
	return &cp, nil
}

func (s *Store) ListPending(ctx context.Context) ([]*signal.Signal, error) {
	var signals []*signal.Signal
	if err := s.db.View(func(tx *bolt.Tx) error {
		all := tx.Bucket(signalsBucket)
		c := tx.Bucket(pendingBucket).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			v := all.Get(k)
			if v == nil {
				continue
			}
			var sig signal.Signal
			if err := json.Unmarshal(v, &sig); err != nil {
				return fmt.Errorf("couldn't decode %s: %w", k, err)
			}
			if sig.Status != signal.Pending {
				continue
			}
			signals = append(signals, &sig)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("bolt: couldn't query: %w", err)
	}
	return signals, nil
}

// UpdateStatus applies the transition inside a single read-write
// transaction, so concurrent callers can't both move the same signal.
func (s *Store) UpdateStatus(ctx context.Context, id string, from, to signal.Status, price string) error {
	key := []byte(id)
	if err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(signalsBucket)
		v := b.Get(key)
		if v == nil {
			return signal.ErrNotFound
		}
		var sig signal.Signal
		if err := json.Unmarshal(v, &sig); err != nil {
			return fmt.Errorf("couldn't decode: %w", err)
		}
		if sig.Status != from {
			return fmt.Errorf("%s is %s, not %s: %w", id, sig.Status, from, signal.ErrStatusConflict)
		}
		sig.Status = to
		sig.ResolvedAt = time.Now().UTC()
		sig.ResolvedPrice = price
		byt, err := json.Marshal(sig)
		if err != nil {
			return fmt.Errorf("couldn't encode: %w", err)
		}
		if err := b.Put(key, byt); err != nil {
			return err
		}
		if to == signal.Pending {
			return tx.Bucket(pendingBucket).Put(key, []byte{})
		}
		return tx.Bucket(pendingBucket).Delete(key)
	}); err != nil {
		return fmt.Errorf("bolt: couldn't update %s: %w", id, err)
	}
	return nil
}

func (s *Store) Get(id string) (*signal.Signal, error) {
	var sig signal.Signal
	if err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(signalsBucket).Get([]byte(id))
		if v == nil {
			return signal.ErrNotFound
		}
		return json.Unmarshal(v, &sig)
	}); err != nil {
		return nil, fmt.Errorf("bolt: couldn't get %s: %w", id, err)
	}
	return &sig, nil
}

// Chart returns the image stored with signal id.
func (s *Store) Chart(id string) ([]byte, error) {
	var data []byte
	if err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(chartsBucket).Get([]byte(id))
		if v == nil {
			return signal.ErrNotFound
		}
		data = append(data, v...)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("bolt: couldn't get chart %s: %w", id, err)
	}
	return data, nil
}
