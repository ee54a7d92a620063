package events

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type workerCalls struct {
	mu                  sync.Mutex
	syncedMarket        bool
	snapshotAccountIDs  []string
	totalRecomputed     bool
	quoteStatesUpdated  bool
	valuationAccountIDs []string
}

func newTestHandlers(calls *workerCalls) Handlers {
	return Handlers{
		SyncMarketData: func(ctx context.Context, assetIDs []string) error {
			calls.mu.Lock()
			defer calls.mu.Unlock()
			calls.syncedMarket = true
			return nil
		},
		RecomputeSnapshots: func(ctx context.Context, accountIDs []string) error {
			calls.mu.Lock()
			defer calls.mu.Unlock()
			calls.snapshotAccountIDs = accountIDs
			return nil
		},
		RecomputeTotalSnapshot: func(ctx context.Context) error {
			calls.mu.Lock()
			defer calls.mu.Unlock()
			calls.totalRecomputed = true
			return nil
		},
		UpdateQuoteSyncStates: func(ctx context.Context) error {
			calls.mu.Lock()
			defer calls.mu.Unlock()
			calls.quoteStatesUpdated = true
			return nil
		},
		RecomputeValuations: func(ctx context.Context, accountIDs []string) error {
			calls.mu.Lock()
			defer calls.mu.Unlock()
			calls.valuationAccountIDs = accountIDs
			return nil
		},
		EnrichAssets: func(ctx context.Context, assetIDs []string) {},
		SyncBroker:   func(ctx context.Context, accountIDs []string) {},
	}
}

func TestWorker_ProcessesBufferedBatchOnClose(t *testing.T) {
	sink := NewSink(zerolog.Nop())
	calls := &workerCalls{}
	worker := NewWorker(sink, newTestHandlers(calls), zerolog.Nop())

	sink.Emit(ActivitySaved{AccountID: "acc1"})
	sink.Close()

	worker.Run(context.Background())
	<-worker.Done()

	calls.mu.Lock()
	defer calls.mu.Unlock()
	assert.True(t, calls.syncedMarket, "ActivitySaved should trigger a market sync before recompute")
	assert.Equal(t, []string{"acc1"}, calls.snapshotAccountIDs)
	assert.True(t, calls.totalRecomputed)
	assert.True(t, calls.quoteStatesUpdated)
	assert.Equal(t, []string{"acc1"}, calls.valuationAccountIDs)
}

func TestWorker_NonTriggeringBatchSkipsPortfolioJob(t *testing.T) {
	sink := NewSink(zerolog.Nop())
	calls := &workerCalls{}
	worker := NewWorker(sink, newTestHandlers(calls), zerolog.Nop())

	sink.Emit(AssetEnrichmentRequested{AssetIDs: []string{"AAPL"}})
	sink.Close()

	worker.Run(context.Background())
	<-worker.Done()

	calls.mu.Lock()
	defer calls.mu.Unlock()
	assert.False(t, calls.syncedMarket)
	assert.False(t, calls.totalRecomputed)
}

func TestSink_DropsOldestWhenFull(t *testing.T) {
	sink := NewSink(zerolog.Nop())
	for i := 0; i < sinkCapacity+5; i++ {
		sink.Emit(ActivitySaved{AccountID: strconv.Itoa(i)})
	}
	sink.Close()

	count := 0
	var first DomainEvent
	for ev := range sink.events() {
		if count == 0 {
			first = ev
		}
		count++
	}
	require.Equal(t, sinkCapacity, count)
	// events 0..4 were the oldest and were dropped; 5 is now at the head
	assert.Equal(t, ActivitySaved{AccountID: "5"}, first)
}
