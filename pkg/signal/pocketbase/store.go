package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/igolaizola/sigtrack/pkg/signal"
)

const (
	signalsCollection  = "signals"
	messagesCollection = "messages"
	usersCollection    = "users"
	perPage            = 200
)

// field decodes a record value that may be a string, a number or null.
type field string

func (f *field) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = field(s)
	default:
		*f = field(b)
	}
	return nil
}

type record struct {
	ID            string `json:"id"`
	User          string `json:"user"`
	Pair          string `json:"pair"`
	Direction     string `json:"direction"`
	Timeframe     string `json:"timeframe"`
	EntryPrice    field  `json:"entry_price"`
	TPPrice       field  `json:"tp_price"`
	SLPrice       field  `json:"sl_price"`
	Status        string `json:"status"`
	Note          string `json:"analysis_note"`
	ChartImage    string `json:"chart_image"`
	Created       string `json:"created"`
	ResolvedPrice field  `json:"resolved_price"`
}

func (r *record) signal() *signal.Signal {
	s := &signal.Signal{
		ID:            r.ID,
		User:          r.User,
		Instrument:    r.Pair,
		Direction:     signal.Direction(r.Direction),
		Timeframe:     r.Timeframe,
		EntryPrice:    string(r.EntryPrice),
		TakeProfit:    string(r.TPPrice),
		StopLoss:      string(r.SLPrice),
		Status:        signal.Status(r.Status),
		Note:          r.Note,
		ChartImage:    r.ChartImage,
		ResolvedPrice: string(r.ResolvedPrice),
	}
	for _, layout := range []string{"2006-01-02 15:04:05.000Z", time.RFC3339Nano} {
		if t, err := time.Parse(layout, r.Created); err == nil {
			s.CreatedAt = t
			break
		}
	}
	return s
}

type list struct {
	Page       int             `json:"page"`
	TotalPages int             `json:"totalPages"`
	Items      json.RawMessage `json:"items"`
}

// fullList walks every page of a filtered collection listing.
func (c *Client) fullList(ctx context.Context, collection, filter string, add func(json.RawMessage) error) error {
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page", fmt.Sprint(page))
		q.Set("perPage", fmt.Sprint(perPage))
		q.Set("skipTotal", "0")
		if filter != "" {
			q.Set("filter", filter)
		}
		var l list
		path := fmt.Sprintf("/api/collections/%s/records?%s", collection, q.Encode())
		if err := c.do(ctx, http.MethodGet, path, "", nil, &l); err != nil {
			return err
		}
		if err := add(l.Items); err != nil {
			return fmt.Errorf("pocketbase: couldn't decode %s items: %w", collection, err)
		}
		if page >= l.TotalPages {
			return nil
		}
	}
}

// Store exposes the signals collection.
type Store struct {
	client *Client
}

func NewStore(c *Client) *Store {
	return &Store{client: c}
}

func (s *Store) ListPending(ctx context.Context) ([]*signal.Signal, error) {
	var signals []*signal.Signal
	filter := fmt.Sprintf("status = %q", signal.Pending)
	if err := s.client.fullList(ctx, signalsCollection, filter, func(raw json.RawMessage) error {
		var records []record
		if err := json.Unmarshal(raw, &records); err != nil {
			return err
		}
		for i := range records {
			signals = append(signals, records[i].signal())
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("pocketbase: couldn't list pending signals: %w", err)
	}
	return signals, nil
}

func (s *Store) get(ctx context.Context, id string) (*signal.Signal, error) {
	var r record
	path := fmt.Sprintf("/api/collections/%s/records/%s", signalsCollection, url.PathEscape(id))
	if err := s.client.do(ctx, http.MethodGet, path, "", nil, &r); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("pocketbase: %s: %w", id, signal.ErrNotFound)
		}
		return nil, err
	}
	return r.signal(), nil
}

// UpdateStatus reads the record and only patches it if its status is still
// from. PocketBase has no conditional update, so two writers racing between
// the read and the patch can both succeed.
func (s *Store) UpdateStatus(ctx context.Context, id string, from, to signal.Status, price string) error {
	current, err := s.get(ctx, id)
	if err != nil {
		return fmt.Errorf("pocketbase: couldn't get signal %s: %w", id, err)
	}
	if current.Status != from {
		return fmt.Errorf("pocketbase: %s is %s, not %s: %w", id, current.Status, from, signal.ErrStatusConflict)
	}
	body, err := json.Marshal(map[string]string{
		"status":         string(to),
		"resolved_price": price,
	})
	if err != nil {
		return fmt.Errorf("pocketbase: couldn't encode update: %w", err)
	}
	path := fmt.Sprintf("/api/collections/%s/records/%s", signalsCollection, url.PathEscape(id))
	if err := s.client.do(ctx, http.MethodPatch, path, "application/json", body, nil); err != nil {
		return fmt.Errorf("pocketbase: couldn't update signal %s: %w", id, err)
	}
	return nil
}

func (s *Store) Create(ctx context.Context, sig *signal.Signal, chart *signal.Attachment) (*signal.Signal, error) {
	status := sig.Status
	if status == "" {
		status = signal.Pending
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"user", sig.User},
		{"pair", sig.Instrument},
		{"direction", string(sig.Direction)},
		{"timeframe", sig.Timeframe},
		{"entry_price", sig.EntryPrice},
		{"tp_price", sig.TakeProfit},
		{"sl_price", sig.StopLoss},
		{"status", string(status)},
		{"analysis_note", sig.Note},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("pocketbase: couldn't write field %s: %w", f[0], err)
		}
	}
	if chart != nil {
		fw, err := w.CreateFormFile("chart_image", chart.Name)
		if err != nil {
			return nil, fmt.Errorf("pocketbase: couldn't create chart field: %w", err)
		}
		if _, err := fw.Write(chart.Data); err != nil {
			return nil, fmt.Errorf("pocketbase: couldn't write chart: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("pocketbase: couldn't close form: %w", err)
	}

	var r record
	path := fmt.Sprintf("/api/collections/%s/records", signalsCollection)
	if err := s.client.do(ctx, http.MethodPost, path, w.FormDataContentType(), buf.Bytes(), &r); err != nil {
		return nil, fmt.Errorf("pocketbase: couldn't create signal: %w", err)
	}
	return r.signal(), nil
}

// SaveMessage stores a broadcast message so dashboards can show it.
func (c *Client) SaveMessage(ctx context.Context, title, body string) error {
	data, err := json.Marshal(map[string]string{
		"title":  title,
		"body":   body,
		"status": "sent",
		"target": "all",
		"date":   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("pocketbase: couldn't encode message: %w", err)
	}
	path := fmt.Sprintf("/api/collections/%s/records", messagesCollection)
	if err := c.do(ctx, http.MethodPost, path, "application/json", data, nil); err != nil {
		return fmt.Errorf("pocketbase: couldn't save message: %w", err)
	}
	return nil
}

// PushTokens returns the push tokens of users with notifications enabled.
func (c *Client) PushTokens(ctx context.Context) ([]string, error) {
	var tokens []string
	filter := `push_token != "" && is_notification_active = true`
	if err := c.fullList(ctx, usersCollection, filter, func(raw json.RawMessage) error {
		var users []struct {
			PushToken string `json:"push_token"`
		}
		if err := json.Unmarshal(raw, &users); err != nil {
			return err
		}
		for _, u := range users {
			if t := strings.TrimSpace(u.PushToken); t != "" {
				tokens = append(tokens, t)
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("pocketbase: couldn't list push tokens: %w", err)
	}
	return tokens, nil
}
