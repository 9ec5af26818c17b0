package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type state int

const (
	stateInit state = iota
	stateReady
)

var ErrUnauthorized = errors.New("pocketbase: unauthorized")

// APIError is a non 2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pocketbase: status %d: %s", e.Status, e.Message)
}

type Config struct {
	URL      string
	Email    string
	Password string
	// AuthCollection selects the superuser collection used to authenticate
	// (e.g. "_superusers"). Empty uses the legacy admins endpoint.
	AuthCollection string
	Timeout        time.Duration
}

// Client is an authenticated PocketBase session. It starts unauthenticated,
// becomes ready after Authenticate and authenticates again when a request
// is rejected with 401.
type Client struct {
	cfg    Config
	client *http.Client
	log    zerolog.Logger

	lock  sync.Mutex
	state state
	token string
}

func New(cfg Config, log zerolog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

// Ready reports whether the client holds a token.
func (c *Client) Ready() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state == stateReady
}

func (c *Client) Authenticate(ctx context.Context) error {
	path := "/api/admins/auth-with-password"
	if c.cfg.AuthCollection != "" {
		path = fmt.Sprintf("/api/collections/%s/auth-with-password", c.cfg.AuthCollection)
	}
	body, err := json.Marshal(map[string]string{
		"identity": c.cfg.Email,
		"password": c.cfg.Password,
	})
	if err != nil {
		return fmt.Errorf("pocketbase: couldn't encode credentials: %w", err)
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.send(ctx, http.MethodPost, path, "application/json", body, "", &resp); err != nil {
		c.reset()
		return fmt.Errorf("pocketbase: couldn't authenticate: %w", err)
	}
	if resp.Token == "" {
		c.reset()
		return errors.New("pocketbase: empty auth token")
	}
	c.lock.Lock()
	c.token = resp.Token
	c.state = stateReady
	c.lock.Unlock()
	c.log.Info().Str("url", c.cfg.URL).Msg("logged in as pocketbase admin")
	return nil
}

func (c *Client) reset() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.token = ""
	c.state = stateInit
}

func (c *Client) currentToken() (string, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.token, c.state == stateReady
}

// do sends an authenticated request, authenticating first if needed and
// once more if the token has expired.
func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, out interface{}) error {
	token, ok := c.currentToken()
	if !ok {
		if err := c.Authenticate(ctx); err != nil {
			return err
		}
		token, _ = c.currentToken()
	}
	err := c.send(ctx, method, path, contentType, body, token, out)
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}
	c.log.Warn().Str("path", path).Msg("pocketbase token rejected, authenticating again")
	c.reset()
	if err := c.Authenticate(ctx); err != nil {
		return err
	}
	token, _ = c.currentToken()
	return c.send(ctx, method, path, contentType, body, token, out)
}

func (c *Client) send(ctx context.Context, method, path, contentType string, body []byte, token string, out interface{}) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.URL+path, r)
	if err != nil {
		return fmt.Errorf("pocketbase: couldn't create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("pocketbase: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &e) != nil || e.Message == "" {
			e.Message = strings.TrimSpace(string(data))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("pocketbase: couldn't decode %s response: %w", path, err)
	}
	return nil
}
