package fx

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/afadil/wealthfolio-sub004/internal/money"
)

// Repository is the full FxRepository contract SPEC_FULL.md §6 lists. The
// Service only needs HistoricalAll/UpsertRate/EnsureFxAsset to maintain its
// in-memory converter; Latest/LatestBySymbol/HistoricalForPair exist for
// read-side callers (HTTP handlers) that want a narrower query than a full
// reload.
type Repository interface {
	HistoricalAll(ctx context.Context) ([]Rate, error)
	Latest(ctx context.Context) ([]Rate, error)
	LatestBySymbol(ctx context.Context, symbol string) (*Rate, error)
	HistoricalForPair(ctx context.Context, symbol string, start, end time.Time) ([]Rate, error)
	UpsertRate(ctx context.Context, rate Rate) error
	EnsureFxAsset(ctx context.Context, from, to, source string) error
}

// Symbol builds the canonical exchange-rate id "{FROM}{TO}=X".
func Symbol(from, to string) string { return from + to + "=X" }

// Service wraps an in-memory Converter behind a RWMutex, reloading the
// whole table after every rate upsert through AddAndUpdateRate. Reads never block
// on I/O.
type Service struct {
	repo Repository
	log  zerolog.Logger

	mu        sync.RWMutex
	converter *Converter
}

// NewService constructs an uninitialized Service; call Initialize before
// serving reads.
func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "fx_service").Logger()}
}

// Initialize (re)loads the full rate table from the repository and swaps
// it in atomically. Called at startup and by AddAndUpdateRate; an
// FxRatesUpdated event does not trigger a reload.
func (s *Service) Initialize(ctx context.Context) error {
	rates, err := s.repo.HistoricalAll(ctx)
	if err != nil {
		return fmt.Errorf("loading historical fx rates: %w", err)
	}
	converter, err := NewConverter(rates)
	if err != nil {
		return fmt.Errorf("building fx converter: %w", err)
	}

	s.mu.Lock()
	s.converter = converter
	s.mu.Unlock()
	s.log.Info().Int("rates", len(rates)).Msg("fx converter (re)loaded")
	return nil
}

// GetExchangeRateForDate returns the rate from->to on date, falling back to
// the nearest date with data. Logs a warning when no exact match exists.
func (s *Service) GetExchangeRateForDate(from, to string, date time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	converter := s.converter
	s.mu.RUnlock()
	if converter == nil {
		return decimal.Zero, fmt.Errorf("fx service not initialized")
	}
	rate, err := converter.Rate(from, to, date)
	if err != nil {
		return decimal.Zero, err
	}
	if _, exact := converter.byDay[truncateDay(date)]; !exact && money.NormalizeCurrencyCode(from) != money.NormalizeCurrencyCode(to) {
		s.log.Warn().Str("from", from).Str("to", to).Time("date", date).Msg("no fx rate on requested date, using nearest date")
	}
	return rate, nil
}

// ConvertDecimal converts amount from one currency to another on date.
func (s *Service) ConvertDecimal(amount decimal.Decimal, from, to string, date time.Time) (decimal.Decimal, error) {
	rate, err := s.GetExchangeRateForDate(from, to, date)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}

// AddAndUpdateRate upserts a rate through the repository then reloads the
// whole converter so the new rate participates in the transitive closure.
func (s *Service) AddAndUpdateRate(ctx context.Context, rate Rate) error {
	if err := s.repo.EnsureFxAsset(ctx, rate.From, rate.To, rate.Source); err != nil {
		return fmt.Errorf("ensuring fx asset: %w", err)
	}
	if err := s.repo.UpsertRate(ctx, rate); err != nil {
		return fmt.Errorf("upserting fx rate: %w", err)
	}
	return s.Initialize(ctx)
}
