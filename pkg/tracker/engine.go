package tracker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/igolaizola/sigtrack/pkg/event"
	"github.com/igolaizola/sigtrack/pkg/instrument"
	"github.com/igolaizola/sigtrack/pkg/quote"
	"github.com/igolaizola/sigtrack/pkg/signal"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Prices returns the current price of a symbol on a quote provider. An
// empty provider selects the default one.
type Prices interface {
	Price(ctx context.Context, provider, symbol string) (decimal.Decimal, error)
}

// resolver is implemented by Prices that map an empty provider to a
// default one, like quote.Mux.
type resolver interface {
	Resolve(provider string) string
}

type Options struct {
	// Workers bounds how many signals are evaluated at the same time.
	Workers      int
	QuoteTimeout time.Duration
	StoreTimeout time.Duration
	Publisher    event.Publisher
	Metrics      *Metrics
}

const (
	DefaultWorkers      = 4
	DefaultQuoteTimeout = 10 * time.Second
	DefaultStoreTimeout = 10 * time.Second
)

// Engine resolves pending signals against live prices.
type Engine struct {
	store     signal.Store
	registry  *instrument.Registry
	prices    Prices
	publisher event.Publisher
	metrics   *Metrics
	log       zerolog.Logger
	workers   int
	quoteWait time.Duration
	storeWait time.Duration
	now       func() time.Time
}

func New(store signal.Store, registry *instrument.Registry, prices Prices, log zerolog.Logger, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QuoteTimeout <= 0 {
		opts.QuoteTimeout = DefaultQuoteTimeout
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.Publisher == nil {
		opts.Publisher = event.Nop
	}
	return &Engine{
		store:     store,
		registry:  registry,
		prices:    prices,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		log:       log,
		workers:   opts.Workers,
		quoteWait: opts.QuoteTimeout,
		storeWait: opts.StoreTimeout,
		now:       time.Now,
	}
}

// RunCycle evaluates every pending signal once. It only fails when the
// pending signals can't be listed; per signal failures are logged and
// counted in the report.
func (e *Engine) RunCycle(ctx context.Context) (Report, error) {
	start := e.now()
	var report Report
	if e.metrics != nil {
		e.metrics.cycles.Inc()
	}

	listCtx, cancel := context.WithTimeout(ctx, e.storeWait)
	pending, err := e.store.ListPending(listCtx)
	cancel()
	if err != nil {
		if e.metrics != nil {
			e.metrics.cycleErrors.Inc()
		}
		return report, fmt.Errorf("tracker: couldn't list pending signals: %w", err)
	}
	report.Pending = len(pending)
	if e.metrics != nil {
		e.metrics.pending.Set(float64(len(pending)))
	}
	if len(pending) == 0 {
		e.log.Debug().Msg("no pending signals found")
		report.Duration = e.now().Sub(start)
		return report, nil
	}
	e.log.Info().Int("pending", len(pending)).Msg("running signal tracker")

	quotes := &cycleQuotes{
		prices:  e.prices,
		timeout: e.quoteWait,
		done:    make(map[string]quoteResult),
	}
	outcomes := make([]outcome, len(pending))
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, sig := range pending {
		i, sig := i, sig
		g.Go(func() error {
			outcomes[i] = e.safeEvaluate(ctx, quotes, sig)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		report.add(o)
		if e.metrics != nil {
			e.metrics.outcomes.WithLabelValues(o.String()).Inc()
		}
	}
	report.Duration = e.now().Sub(start)
	if e.metrics != nil {
		e.metrics.duration.Observe(report.Duration.Seconds())
	}
	e.log.Info().Stringer("report", report).Msg("signal tracker finished")
	return report, nil
}

func (e *Engine) safeEvaluate(ctx context.Context, quotes *cycleQuotes, sig *signal.Signal) (o outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Str("signal", sig.ID).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("signal evaluation panicked")
			o = outcomePanic
		}
	}()
	return e.evaluate(ctx, quotes, sig)
}

func (e *Engine) evaluate(ctx context.Context, quotes *cycleQuotes, sig *signal.Signal) outcome {
	log := e.log.With().Str("signal", sig.ID).Str("pair", sig.Instrument).Str("direction", string(sig.Direction)).Logger()

	tp, sl, err := sig.Levels()
	if err != nil {
		log.Debug().Err(err).Msg("missing take profit or stop loss, skipping")
		return outcomeMissingLevels
	}

	if !e.registry.IsTracked(sig.Instrument) {
		log.Debug().Msg("instrument not tracked, skipping")
		return outcomeUntracked
	}
	symbol, ok := e.registry.QuoteSymbolFor(sig.Instrument)
	if !ok {
		log.Warn().Msg("no quote symbol for instrument, skipping")
		return outcomeUntracked
	}

	price, err := quotes.price(ctx, e.registry.ProviderFor(sig.Instrument), symbol)
	if err == nil {
		price, err = quote.Normalize(symbol, price)
	}
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("no price available, skipping")
		return outcomeNoQuote
	}

	status, err := signal.Evaluate(sig.Direction, tp, sl, price)
	if err != nil {
		log.Error().Err(err).Msg("anomalous signal left pending")
		return outcomeAnomaly
	}
	log = log.With().Str("entry", sig.EntryPrice).Stringer("current", price).Stringer("tp", tp).Stringer("sl", sl).Logger()
	if status == signal.Pending {
		log.Debug().Msg("still pending")
		return outcomePending
	}

	// The update must not be abandoned halfway because of a shutdown.
	updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.storeWait)
	defer cancel()
	if err := e.store.UpdateStatus(updateCtx, sig.ID, signal.Pending, status, price.String()); err != nil {
		if errors.Is(err, signal.ErrStatusConflict) {
			log.Info().Msg("signal already resolved elsewhere")
			return outcomeConflict
		}
		log.Error().Err(err).Stringer("status", status).Msg("couldn't update signal, will retry next cycle")
		return outcomeUpdateFailed
	}

	hit := "take profit"
	if status == signal.Lost {
		hit = "stop loss"
	}
	log.Info().Stringer("status", status).Msgf("%s hit", hit)

	resolved := *sig
	resolved.Status = status
	resolved.ResolvedPrice = price.String()
	resolution := signal.Resolution{
		Signal: resolved,
		Status: status,
		Price:  price,
		Time:   e.now().UTC(),
	}
	if err := e.publisher.Publish(updateCtx, resolution); err != nil {
		log.Warn().Err(err).Msg("couldn't publish resolution")
	}
	if status == signal.Won {
		return outcomeWon
	}
	return outcomeLost
}

type quoteResult struct {
	price decimal.Decimal
	err   error
}

// cycleQuotes fetches each provider symbol at most once per cycle. Failed
// lookups are remembered too, so they aren't retried within the cycle.
type cycleQuotes struct {
	prices  Prices
	timeout time.Duration
	group   singleflight.Group
	lock    sync.Mutex
	done    map[string]quoteResult
}

func (q *cycleQuotes) price(ctx context.Context, provider, symbol string) (decimal.Decimal, error) {
	if r, ok := q.prices.(resolver); ok {
		provider = r.Resolve(provider)
	}
	key := provider + "\x00" + symbol
	q.lock.Lock()
	r, ok := q.done[key]
	q.lock.Unlock()
	if ok {
		return r.price, r.err
	}
	v, _, _ := q.group.Do(key, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, q.timeout)
		defer cancel()
		p, err := q.prices.Price(ctx, provider, symbol)
		r := quoteResult{price: p, err: err}
		q.lock.Lock()
		q.done[key] = r
		q.lock.Unlock()
		return r, nil
	})
	r = v.(quoteResult)
	return r.price, r.err
}
