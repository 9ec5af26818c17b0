package sigtrack

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/igolaizola/sigtrack/pkg/api"
	"github.com/igolaizola/sigtrack/pkg/event"
	eventredis "github.com/igolaizola/sigtrack/pkg/event/redis"
	"github.com/igolaizola/sigtrack/pkg/instrument"
	"github.com/igolaizola/sigtrack/pkg/push"
	"github.com/igolaizola/sigtrack/pkg/quote"
	"github.com/igolaizola/sigtrack/pkg/quote/binance"
	"github.com/igolaizola/sigtrack/pkg/quote/dry"
	"github.com/igolaizola/sigtrack/pkg/quote/finnhub"
	quoteredis "github.com/igolaizola/sigtrack/pkg/quote/redis"
	"github.com/igolaizola/sigtrack/pkg/signal"
	"github.com/igolaizola/sigtrack/pkg/signal/bolt"
	"github.com/igolaizola/sigtrack/pkg/signal/inmem"
	"github.com/igolaizola/sigtrack/pkg/signal/parser"
	"github.com/igolaizola/sigtrack/pkg/signal/pocketbase"
	"github.com/igolaizola/sigtrack/pkg/telegram"
	"github.com/igolaizola/sigtrack/pkg/tracker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var version = "v241018a"

type Config struct {
	// Store is bolt, pocketbase or memory.
	Store      string
	DB         string
	PocketBase pocketbase.Config

	FinnhubKey    string
	BinanceKey    string
	BinanceSecret string
	QuoteProvider string
	QuoteCacheTTL time.Duration
	// Instruments is an optional instrument table file. The built-in table
	// is used when empty.
	Instruments string

	Interval     time.Duration
	Workers      int
	QuoteTimeout time.Duration
	StoreTimeout time.Duration

	RedisAddr    string
	RedisChannel string

	Addr       string
	APIToken   string
	PushTokens string

	TelegramToken       string
	TelegramControlChat int64
	TelegramSignalChat  int64

	Dry       bool
	DryPrices string
}

type App struct {
	cfg       Config
	log       zerolog.Logger
	print     func(v ...interface{})
	store     signal.Store
	registry  *instrument.Registry
	finnhub   *finnhub.Client
	engine    *tracker.Engine
	scheduler *tracker.Scheduler
	server    *api.Server
	bot       *telegram.Bot
	parser    signal.Parser
	closers   []func() error
}

func New(cfg Config, log zerolog.Logger) (*App, error) {
	a := &App{
		cfg:   cfg,
		log:   log,
		print: logFunc(log, zerolog.InfoLevel),
	}
	if err := a.init(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init() error {
	cfg := a.cfg
	var err error

	if cfg.Instruments != "" {
		a.registry, err = instrument.Load(cfg.Instruments)
	} else {
		a.registry, err = instrument.New(instrument.Default())
	}
	if err != nil {
		return fmt.Errorf("sigtrack: couldn't load instruments: %w", err)
	}

	if cfg.TelegramToken != "" {
		a.bot, err = telegram.New(cfg.TelegramToken, cfg.TelegramControlChat, a.log)
		if err != nil {
			return fmt.Errorf("sigtrack: couldn't create telegram bot: %w", err)
		}
		a.print = a.bot.Print
	}

	// Store
	var messages api.Messages
	var recipients push.Recipients = push.ParseStatic(cfg.PushTokens)
	switch cfg.Store {
	case "", "bolt":
		store, err := bolt.New(cfg.DB)
		if err != nil {
			return fmt.Errorf("sigtrack: couldn't create db: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		a.store = store
	case "pocketbase":
		client := pocketbase.New(cfg.PocketBase, a.log.With().Str("component", "pocketbase").Logger())
		a.store = pocketbase.NewStore(client)
		messages = client
		if cfg.PushTokens == "" {
			recipients = client
		}
	case "memory":
		a.store = inmem.New()
	default:
		return fmt.Errorf("sigtrack: unknown store %q", cfg.Store)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, rdb.Close)
	}

	// Quotes
	provider := cfg.QuoteProvider
	if provider == "" {
		provider = "finnhub"
	}
	mux := quote.NewMux(provider, cfg.QuoteTimeout)
	if cfg.Dry {
		src, err := dry.Parse(cfg.DryPrices)
		if err != nil {
			return fmt.Errorf("sigtrack: couldn't parse dry prices: %w", err)
		}
		mux.Handle("finnhub", src)
		mux.Handle("binance", src)
	} else {
		cacheLog := logFunc(a.log, zerolog.WarnLevel)
		sources := map[string]quote.Source{}
		if cfg.FinnhubKey != "" {
			a.finnhub = finnhub.New(cfg.FinnhubKey)
			sources["finnhub"] = a.finnhub
		}
		sources["binance"] = binance.New(cfg.BinanceKey, cfg.BinanceSecret)
		for name, src := range sources {
			if rdb != nil && cfg.QuoteCacheTTL > 0 {
				src = quoteredis.New(rdb, "sigtrack:"+name, cfg.QuoteCacheTTL, src, cacheLog)
			}
			mux.Handle(name, src)
		}
	}

	// Resolution events
	var publishers event.Multi
	if a.bot != nil {
		publishers = append(publishers, a.bot)
	}
	if rdb != nil && cfg.RedisChannel != "" {
		publishers = append(publishers, eventredis.New(rdb, cfg.RedisChannel))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := tracker.NewMetrics(reg)

	a.engine = tracker.New(a.store, a.registry, mux, a.log.With().Str("component", "tracker").Logger(), tracker.Options{
		Workers:      cfg.Workers,
		QuoteTimeout: cfg.QuoteTimeout,
		StoreTimeout: cfg.StoreTimeout,
		Publisher:    publishers,
		Metrics:      metrics,
	})
	a.scheduler = tracker.NewScheduler(a.engine, cfg.Interval, a.log.With().Str("component", "scheduler").Logger(), metrics)
	a.scheduler.OnReport(func(r tracker.Report, err error) {
		if err != nil {
			a.print(fmt.Sprintf("⚠️ cycle failed: %v", err))
			return
		}
		if r.Resolved() > 0 {
			a.print(fmt.Sprintf("⚙️ cycle finished: %s", r))
		}
	})

	if cfg.Addr != "" {
		jsonParser, err := parser.NewParser("json")
		if err != nil {
			return fmt.Errorf("sigtrack: couldn't create json parser: %w", err)
		}
		pusher := push.New(logFunc(a.log, zerolog.DebugLevel))
		a.server = api.New(api.Config{Addr: cfg.Addr, Token: cfg.APIToken}, a.store, jsonParser, messages, recipients, pusher, reg, a.log.With().Str("component", "api").Logger())
	}

	if a.bot != nil {
		a.parser, err = parser.NewParser("text")
		if err != nil {
			return fmt.Errorf("sigtrack: couldn't create text parser: %w", err)
		}
		if cfg.TelegramSignalChat != 0 {
			a.bot.HandleChat(cfg.TelegramSignalChat, true, a.ingest)
		}
		a.bot.HandleCommand("status", func(string) {
			a.status()
		})
		a.bot.HandleCommand("check", func(string) {
			if !a.scheduler.Trigger(context.Background()) {
				a.print("a cycle is already running")
			}
		})
	}
	return nil
}

// Run polls pending signals and serves the configured surfaces until ctx
// is done.
func (a *App) Run(ctx context.Context) error {
	tracked := instrument.Codes(a.registry.Tracked())
	a.print(fmt.Sprintf("🤖 sigtrack running\n- version: %s\n- dry mode: %t\n- tracking: %s", version, a.cfg.Dry, strings.Join(tracked, ", ")))
	// The telegram bot is already stopped at this point
	defer func() {
		a.log.Info().Msg("sigtrack stopped")
	}()
	if len(tracked) == 0 {
		a.log.Warn().Msg("no tracked instruments, signals will stay pending")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.scheduler.Run(ctx)
	})
	if a.server != nil {
		g.Go(func() error {
			return a.server.Run(ctx)
		})
	}
	if a.bot != nil {
		g.Go(func() error {
			return a.bot.Run(ctx)
		})
	}
	return g.Wait()
}

// Check tests the quote provider and runs a single cycle.
func (a *App) Check(ctx context.Context) (tracker.Report, error) {
	if a.finnhub != nil {
		price, err := a.finnhub.Ping(ctx)
		if err != nil {
			return tracker.Report{}, err
		}
		a.log.Info().Stringer("price", price).Msg("finnhub connection ok")
	}
	return a.engine.RunCycle(ctx)
}

// Instruments returns the instruments being tracked.
func (a *App) Instruments() []instrument.Instrument {
	return a.registry.Tracked()
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) ingest(text string) {
	sig, err := a.parser.Parse(text)
	if err != nil {
		a.log.Debug().Err(err).Msg("message ignored")
		return
	}
	sig.User = "telegram"
	ctx, cancel := context.WithTimeout(context.Background(), a.storeTimeout())
	defer cancel()
	saved, err := a.store.Create(ctx, sig, nil)
	if err != nil {
		a.print(fmt.Errorf("sigtrack: couldn't save signal: %w", err))
		return
	}
	msg := fmt.Sprintf("📥 %s %s saved (%s)", saved.Instrument, saved.Direction, saved.ID)
	if !a.registry.IsTracked(saved.Instrument) {
		msg += ", instrument not tracked"
	}
	a.print(msg)
}

func (a *App) status() {
	ctx, cancel := context.WithTimeout(context.Background(), a.storeTimeout())
	defer cancel()
	pending, err := a.store.ListPending(ctx)
	if err != nil {
		a.print(fmt.Errorf("sigtrack: couldn't list pending signals: %w", err))
		return
	}
	if len(pending) == 0 {
		a.print("no pending signals")
		return
	}
	count := map[string]int{}
	for _, s := range pending {
		count[s.Instrument]++
	}
	var codes []string
	for c := range count {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "%d pending signals\n", len(pending))
	for _, c := range codes {
		emoji := "⏸"
		if a.registry.IsTracked(c) {
			emoji = "📡"
		}
		fmt.Fprintf(sb, "%s %s %d\n", emoji, c, count[c])
	}
	a.print(strings.TrimSuffix(sb.String(), "\n"))
}

func (a *App) storeTimeout() time.Duration {
	if a.cfg.StoreTimeout > 0 {
		return a.cfg.StoreTimeout
	}
	return tracker.DefaultStoreTimeout
}

func logFunc(log zerolog.Logger, level zerolog.Level) func(v ...interface{}) {
	return func(v ...interface{}) {
		log.WithLevel(level).Msg(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
	}
}
