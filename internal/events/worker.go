package events

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// debounceWindow is the 1000ms collection window §4.I specifies.
const debounceWindow = 1000 * time.Millisecond

// Handlers bundles the callbacks Worker invokes once a batch is planned.
// Every field must be set before Run is called; Worker does not guard
// against nil callbacks since the two-phase init (§9) guarantees every
// service exists by the time the worker starts.
type Handlers struct {
	// SyncMarketData runs a market-data sync, scoped to assetIDs when
	// non-empty, full otherwise.
	SyncMarketData func(ctx context.Context, assetIDs []string) error
	// RecomputeSnapshots rebuilds per-account snapshots for accountIDs
	// (nil means every non-archived account).
	RecomputeSnapshots func(ctx context.Context, accountIDs []string) error
	// RecomputeTotalSnapshot rebuilds the synthetic TOTAL snapshot.
	RecomputeTotalSnapshot func(ctx context.Context) error
	// UpdateQuoteSyncStates refreshes sync-state categorization from the
	// TOTAL snapshot's current holdings.
	UpdateQuoteSyncStates func(ctx context.Context) error
	// RecomputeValuations rebuilds valuation history for accountIDs plus
	// TOTAL (nil means every non-archived account).
	RecomputeValuations func(ctx context.Context, accountIDs []string) error
	// EnrichAssets runs in its own goroutine; the worker does not wait for it.
	EnrichAssets func(ctx context.Context, assetIDs []string)
	// SyncBroker runs in its own goroutine; the worker does not wait for it.
	SyncBroker func(ctx context.Context, accountIDs []string)
}

// Worker is the single consumer draining a Sink: it debounces bursts into
// batches, plans what each batch requires, and executes portfolio work
// serially while enrichment and broker sync run as fire-and-forget
// background tasks. Construct it last, after every Handlers callback has a
// real service behind it.
type Worker struct {
	sink     *Sink
	handlers Handlers
	log      zerolog.Logger

	processing atomic.Bool
	done       chan struct{}
}

// NewWorker builds a Worker over sink with handlers already wired.
func NewWorker(sink *Sink, handlers Handlers, log zerolog.Logger) *Worker {
	return &Worker{
		sink:     sink,
		handlers: handlers,
		log:      log.With().Str("component", "events_worker").Logger(),
		done:     make(chan struct{}),
	}
}

// Run drains the sink until it is closed, debouncing events into batches
// and processing each one in order. It blocks until the sink closes and
// any in-flight batch finishes; callers typically run it in its own
// goroutine and wait on Done for graceful shutdown.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.sink.events()
	var buffer []DomainEvent

	for {
		var ev DomainEvent
		var ok bool

		if len(buffer) == 0 {
			ev, ok = <-events
		} else {
			timer := time.NewTimer(debounceWindow)
			select {
			case ev, ok = <-events:
				timer.Stop()
			case <-timer.C:
				ok = true
				ev = nil
			}
		}

		if ev != nil {
			buffer = append(buffer, ev)
			continue
		}
		if !ok {
			// Sink closed; drain whatever is left and exit.
			if len(buffer) > 0 && !w.processing.Load() {
				w.processBatch(ctx, buffer)
			}
			return
		}

		// Debounce window expired.
		if w.processing.Load() {
			w.log.Debug().Msg("debounce expired but previous batch still running, continuing to collect")
			continue
		}
		batch := buffer
		buffer = nil
		w.processBatch(ctx, batch)
	}
}

// Done reports when Run has returned.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

func (w *Worker) processBatch(ctx context.Context, batch []DomainEvent) {
	if len(batch) == 0 {
		return
	}
	w.processing.Store(true)
	defer w.processing.Store(false)

	w.log.Info().Int("events", len(batch)).Msg("processing domain event batch")

	if job := planPortfolioJob(batch); job != nil {
		w.runPortfolioJob(ctx, job)
	}

	if assetIDs := planAssetEnrichment(batch); len(assetIDs) > 0 {
		w.log.Info().Int("assets", len(assetIDs)).Msg("triggering asset enrichment")
		go w.handlers.EnrichAssets(ctx, assetIDs)
	}

	if accountIDs := planBrokerSync(batch); len(accountIDs) > 0 {
		w.log.Info().Int("accounts", len(accountIDs)).Msg("triggering broker sync")
		go w.handlers.SyncBroker(ctx, accountIDs)
	}
}

// runPortfolioJob executes the §4.I ordering: market sync (if the plan
// calls for it) → per-account snapshots → TOTAL snapshot → quote sync
// state refresh → valuation history. A failure at any step is logged. A
// failed TOTAL snapshot recompute ends the job there; any other failure
// does not abort later steps, since each recompute is idempotent and the
// next batch will retry.
func (w *Worker) runPortfolioJob(ctx context.Context, job *PortfolioJob) {
	if job.NeedsMarketSync {
		if err := w.handlers.SyncMarketData(ctx, nil); err != nil {
			w.log.Warn().Err(err).Msg("market data sync failed")
		}
	}

	if err := w.handlers.RecomputeSnapshots(ctx, job.AccountIDs); err != nil {
		w.log.Warn().Err(err).Msg("per-account snapshot recompute failed")
	}
	if err := w.handlers.RecomputeTotalSnapshot(ctx); err != nil {
		w.log.Warn().Err(err).Msg("TOTAL snapshot recompute failed")
		return
	}
	if err := w.handlers.UpdateQuoteSyncStates(ctx); err != nil {
		w.log.Warn().Err(err).Msg("quote sync state refresh failed")
	}
	if err := w.handlers.RecomputeValuations(ctx, job.AccountIDs); err != nil {
		w.log.Warn().Err(err).Msg("valuation recompute failed")
	}
}
