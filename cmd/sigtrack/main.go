package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/igolaizola/sigtrack"
	"github.com/igolaizola/sigtrack/pkg/signal/pocketbase"
	"github.com/igolaizola/sigtrack/pkg/tracker"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/rs/zerolog"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	// Launch command
	cmd := newCommand()
	if err := cmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

// signalContext is canceled on SIGINT or SIGTERM, so a running cycle can
// finish and the store is closed before exiting.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-c:
			cancel()
		case <-ctx.Done():
			cancel()
		}
		signal.Stop(c)
	}()
	return ctx, cancel
}

func newCommand() *ffcli.Command {
	fs := flag.NewFlagSet("sigtrack", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "sigtrack [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newRunCommand(),
			newCheckCommand(),
			newInstrumentsCommand(),
		},
	}
}

func options() []ff.Option {
	return []ff.Option{
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("SIGTRACK"),
	}
}

type flags struct {
	cfg      sigtrack.Config
	logLevel *string
}

func newFlags(fs *flag.FlagSet) *flags {
	f := &flags{}
	_ = fs.String("config", "", "config file (optional)")
	f.logLevel = fs.String("log-level", "info", "log level (debug, info, warn, error)")

	fs.StringVar(&f.cfg.Store, "store", "bolt", "signal store (bolt, pocketbase, memory); pocketbase updates aren't atomic, run a single instance against it")
	fs.StringVar(&f.cfg.DB, "db", "sigtrack.db", "bolt database path")
	fs.StringVar(&f.cfg.PocketBase.URL, "pocketbase-url", "", "pocketbase url")
	fs.StringVar(&f.cfg.PocketBase.Email, "pocketbase-email", "", "pocketbase admin email")
	fs.StringVar(&f.cfg.PocketBase.Password, "pocketbase-password", "", "pocketbase admin password")
	fs.StringVar(&f.cfg.PocketBase.AuthCollection, "pocketbase-auth-collection", "", "pocketbase superuser collection (empty for legacy admins)")

	fs.StringVar(&f.cfg.FinnhubKey, "finnhub-key", "", "finnhub api key")
	fs.StringVar(&f.cfg.BinanceKey, "binance-key", "", "binance api key (optional)")
	fs.StringVar(&f.cfg.BinanceSecret, "binance-secret", "", "binance api secret (optional)")
	fs.StringVar(&f.cfg.QuoteProvider, "quote-provider", "finnhub", "default quote provider")
	fs.DurationVar(&f.cfg.QuoteCacheTTL, "quote-cache-ttl", 0, "cache quotes in redis for this long (0 disables)")
	fs.StringVar(&f.cfg.Instruments, "instruments", "", "instrument table file (optional)")

	fs.DurationVar(&f.cfg.Interval, "interval", time.Minute, "polling interval")
	fs.IntVar(&f.cfg.Workers, "workers", tracker.DefaultWorkers, "signals evaluated concurrently")
	fs.DurationVar(&f.cfg.QuoteTimeout, "quote-timeout", tracker.DefaultQuoteTimeout, "quote request timeout")
	fs.DurationVar(&f.cfg.StoreTimeout, "store-timeout", tracker.DefaultStoreTimeout, "store request timeout")

	fs.StringVar(&f.cfg.RedisAddr, "redis-addr", "", "redis address (optional)")
	fs.StringVar(&f.cfg.RedisChannel, "redis-channel", "sigtrack:resolutions", "redis channel for resolution events")

	fs.StringVar(&f.cfg.Addr, "addr", ":3000", "http listen address (empty disables the api)")
	fs.StringVar(&f.cfg.APIToken, "api-token", "", "bearer token required to send notifications")
	fs.StringVar(&f.cfg.PushTokens, "push-tokens", "", "comma separated expo push tokens (overrides pocketbase users)")

	fs.StringVar(&f.cfg.TelegramToken, "telegram-token", "", "telegram token (optional)")
	fs.Int64Var(&f.cfg.TelegramControlChat, "telegram-control-chat", 0, "telegram chat id for logs and commands")
	fs.Int64Var(&f.cfg.TelegramSignalChat, "telegram-signal-chat", 0, "telegram chat id to read signals")

	fs.BoolVar(&f.cfg.Dry, "dry", false, "enable dry mode")
	fs.StringVar(&f.cfg.DryPrices, "dry-prices", "", "dry mode prices, e.g. OANDA:XAU_USD=2400")
	return f
}

func (f *flags) logger() zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(*f.logLevel))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(lvl)
}

func (f *flags) config() (sigtrack.Config, error) {
	cfg := f.cfg
	switch cfg.Store {
	case "bolt":
		if cfg.DB == "" {
			return cfg, errors.New("missing db path")
		}
		if cfg.Dry && !strings.HasSuffix(cfg.DB, ".dry.db") {
			cfg.DB = fmt.Sprintf("%s.dry.db", strings.TrimSuffix(cfg.DB, ".db"))
		}
	case "pocketbase":
		if cfg.PocketBase.URL == "" {
			return cfg, errors.New("missing pocketbase url")
		}
		if cfg.PocketBase.Email == "" || cfg.PocketBase.Password == "" {
			return cfg, errors.New("missing pocketbase credentials")
		}
	case "memory":
	default:
		return cfg, fmt.Errorf("unknown store %s", cfg.Store)
	}
	if !cfg.Dry && cfg.QuoteProvider == "finnhub" && cfg.FinnhubKey == "" {
		return cfg, errors.New("missing finnhub api key")
	}
	if cfg.TelegramToken != "" && cfg.TelegramControlChat == 0 {
		return cfg, errors.New("missing telegram control chat")
	}
	return cfg, nil
}

func newRunCommand() *ffcli.Command {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	f := newFlags(fs)

	return &ffcli.Command{
		Name:       "run",
		ShortUsage: "sigtrack run [flags]",
		Options:    options(),
		ShortHelp:  "track pending signals",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			cfg, err := f.config()
			if err != nil {
				return err
			}
			app, err := sigtrack.New(cfg, f.logger())
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Run(ctx)
		},
	}
}

func newCheckCommand() *ffcli.Command {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	f := newFlags(fs)

	return &ffcli.Command{
		Name:       "check",
		ShortUsage: "sigtrack check [flags]",
		Options:    options(),
		ShortHelp:  "test the quote provider and run a single cycle",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			cfg, err := f.config()
			if err != nil {
				return err
			}
			// Only the tracker is needed
			cfg.Addr = ""
			cfg.TelegramToken = ""
			app, err := sigtrack.New(cfg, f.logger())
			if err != nil {
				return err
			}
			defer app.Close()
			report, err := app.Check(ctx)
			if err != nil {
				return err
			}
			fmt.Println(report)
			return nil
		},
	}
}

func newInstrumentsCommand() *ffcli.Command {
	fs := flag.NewFlagSet("instruments", flag.ExitOnError)
	f := newFlags(fs)

	return &ffcli.Command{
		Name:       "instruments",
		ShortUsage: "sigtrack instruments [flags]",
		Options:    options(),
		ShortHelp:  "list tracked instruments",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			cfg := f.cfg
			cfg.Store = "memory"
			cfg.Dry = true
			cfg.Addr = ""
			cfg.TelegramToken = ""
			cfg.RedisAddr = ""
			cfg.PocketBase = pocketbase.Config{}
			app, err := sigtrack.New(cfg, f.logger())
			if err != nil {
				return err
			}
			defer app.Close()
			for _, in := range app.Instruments() {
				provider := in.Provider
				if provider == "" {
					provider = cfg.QuoteProvider
				}
				fmt.Printf("%-8s %-7s %-20s %s\n", in.Code, in.Category, in.Symbol, provider)
			}
			return nil
		},
	}
}
