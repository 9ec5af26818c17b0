package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/igolaizola/sigtrack/pkg/push"
	"github.com/igolaizola/sigtrack/pkg/signal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const maxUpload = 10 << 20

// Creator stores new signals.
type Creator interface {
	Create(ctx context.Context, sig *signal.Signal, chart *signal.Attachment) (*signal.Signal, error)
}

// Messages keeps a record of broadcast messages.
type Messages interface {
	SaveMessage(ctx context.Context, title, body string) error
}

// Pusher delivers a notification to a list of push tokens.
type Pusher interface {
	Send(ctx context.Context, tokens []string, title, body string) error
}

type Config struct {
	Addr string
	// Token is the bearer token required by the broadcast endpoint. Any
	// bearer token is accepted when empty.
	Token string
}

type Server struct {
	cfg        Config
	signals    Creator
	parser     signal.Parser
	messages   Messages
	recipients push.Recipients
	pusher     Pusher
	gatherer   prometheus.Gatherer
	log        zerolog.Logger
	now        func() time.Time
}

// New creates the HTTP server. messages may be nil, in which case broadcast
// messages aren't persisted.
func New(cfg Config, signals Creator, parser signal.Parser, messages Messages, recipients push.Recipients, pusher Pusher, gatherer prometheus.Gatherer, log zerolog.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":3000"
	}
	return &Server{
		cfg:        cfg,
		signals:    signals,
		parser:     parser,
		messages:   messages,
		recipients: recipients,
		pusher:     pusher,
		gatherer:   gatherer,
		log:        log,
		now:        time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.health)
	mux.HandleFunc("/api/signals/save", s.saveSignal)
	mux.HandleFunc("/api/send", s.send)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Run serves until ctx is done and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errC := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		errC <- srv.ListenAndServe()
	}()
	select {
	case err := <-errC:
		return fmt.Errorf("api: couldn't serve: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api: couldn't shutdown: %w", err)
	}
	if err := <-errC; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api: couldn't serve: %w", err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) saveSignal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	sig, chart, err := s.decodeSignal(r)
	if err != nil {
		s.log.Warn().Err(err).Msg("couldn't decode signal")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := sig.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	record, err := s.signals.Create(r.Context(), sig, chart)
	if err != nil {
		s.log.Error().Err(err).Msg("couldn't save signal")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.log.Info().Str("signal", record.ID).Str("pair", record.Instrument).Str("user", record.User).Msg("signal saved")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"record":  record,
	})
}

func (s *Server) decodeSignal(r *http.Request) (*signal.Signal, *signal.Attachment, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data", "application/x-www-form-urlencoded":
	default:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxUpload))
		if err != nil {
			return nil, nil, fmt.Errorf("api: couldn't read body: %w", err)
		}
		sig, err := s.parser.Parse(string(body))
		if err != nil {
			return nil, nil, err
		}
		return sig, nil, nil
	}

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUpload); err != nil {
			return nil, nil, fmt.Errorf("api: couldn't parse form: %w", err)
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, nil, fmt.Errorf("api: couldn't parse form: %w", err)
	}
	field := func(k string) string {
		return strings.TrimSpace(r.FormValue(k))
	}
	sig := &signal.Signal{
		User:       field("user"),
		Instrument: strings.ToUpper(field("pair")),
		Direction:  signal.Direction(strings.ToUpper(field("direction"))),
		Timeframe:  field("timeframe"),
		EntryPrice: field("entry_price"),
		TakeProfit: field("tp_price"),
		StopLoss:   field("sl_price"),
		Status:     signal.Status(strings.ToUpper(field("status"))),
		Note:       r.FormValue("analysis_note"),
	}
	if sig.Status == "" {
		sig.Status = signal.Pending
	}
	if r.MultipartForm == nil {
		return sig, nil, nil
	}
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return sig, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("api: couldn't read image: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, fmt.Errorf("api: couldn't read image: %w", err)
	}
	return sig, &signal.Attachment{Name: header.Filename, Data: data}, nil
}

type broadcast struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req broadcast
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUpload)).Decode(&req); err != nil || req.Title == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "Missing title or body")
		return
	}
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	ctx := r.Context()
	log := s.log.With().Str("title", req.Title).Logger()
	log.Info().Msg("notification request received")

	if s.messages != nil {
		if err := s.messages.SaveMessage(ctx, req.Title, req.Body); err != nil {
			log.Error().Err(err).Msg("couldn't save message")
		}
	}

	tokens, err := s.recipients.PushTokens(ctx)
	if err != nil {
		log.Error().Err(err).Msg("couldn't retrieve recipients")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to retrieve recipients",
			"details": err.Error(),
		})
		return
	}
	if len(tokens) == 0 {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Message saved, but no active tokens found.",
		})
		return
	}
	if err := s.pusher.Send(ctx, tokens, req.Title, req.Body); err != nil {
		log.Error().Err(err).Msg("couldn't send notifications")
		writeError(w, http.StatusInternalServerError, "Failed to send to Push Network")
		return
	}
	log.Info().Int("recipients", len(tokens)).Msg("notification sent")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"recipientCount": len(tokens),
	})
}

func (s *Server) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == auth {
		return false
	}
	if s.cfg.Token == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Token)) == 1
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
