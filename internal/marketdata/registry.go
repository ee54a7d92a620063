package marketdata

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// ErrAllProvidersFailed is returned when every provider in priority order
// fails (or is circuit-open) for a request.
type ErrAllProvidersFailed struct {
	Attempts []error
}

func (e *ErrAllProvidersFailed) Error() string {
	return fmt.Sprintf("all providers failed (%d attempts)", len(e.Attempts))
}

// Registry dispatches quote requests across providers in priority order,
// enforcing the circuit breaker, rate limiter, resolver chain, and
// validator for each.
type Registry struct {
	providers []Provider
	limiters  map[ProviderID]*RateLimiter
	breaker   *CircuitBreaker
	chain     *Chain
	validator *Validator
	log       zerolog.Logger
}

// NewRegistry wires a set of providers behind one shared chain/breaker/validator.
func NewRegistry(providers []Provider, chain *Chain, breaker *CircuitBreaker, validator *Validator, log zerolog.Logger) *Registry {
	sorted := append([]Provider(nil), providers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Priority() < sorted[j].Priority() })

	limiters := make(map[ProviderID]*RateLimiter, len(sorted))
	for _, p := range sorted {
		limiters[p.ID()] = NewRateLimiter(p.RateLimit())
	}

	return &Registry{
		providers: sorted,
		limiters:  limiters,
		breaker:   breaker,
		chain:     chain,
		validator: validator,
		log:       log.With().Str("component", "marketdata_registry").Logger(),
	}
}

// GetLatestQuote tries each provider in priority order until one succeeds.
func (r *Registry) GetLatestQuote(ctx context.Context, instrument InstrumentID) (Quote, error) {
	var attempts []error
	for _, p := range r.providers {
		quote, err := r.tryLatest(ctx, p, instrument)
		if err != nil {
			attempts = append(attempts, err)
			continue
		}
		return quote, nil
	}
	return Quote{}, &ErrAllProvidersFailed{Attempts: attempts}
}

func (r *Registry) tryLatest(ctx context.Context, p Provider, instrument InstrumentID) (Quote, error) {
	if !r.breaker.IsAllowed(p.ID()) {
		return Quote{}, fmt.Errorf("provider %s: circuit open", p.ID())
	}

	providerInstrument, ok := r.chain.Resolve(instrument, p.ID())
	if !ok {
		return Quote{}, fmt.Errorf("provider %s: unresolved instrument", p.ID())
	}

	limiter := r.limiters[p.ID()]
	if err := limiter.Acquire(ctx); err != nil {
		return Quote{}, fmt.Errorf("provider %s: rate limiter: %w", p.ID(), err)
	}
	defer limiter.Release()

	quote, err := p.GetLatestQuote(ctx, providerInstrument)
	if err != nil {
		r.breaker.RecordFailure(p.ID())
		return Quote{}, fmt.Errorf("provider %s: %w", p.ID(), err)
	}

	issues, err := r.validator.Validate(quote)
	if err != nil {
		r.breaker.RecordFailure(p.ID())
		return Quote{}, fmt.Errorf("provider %s: %w", p.ID(), err)
	}
	for _, issue := range issues {
		r.log.Warn().Str("provider", string(p.ID())).Str("message", issue.Message).Msg("quote validation warning")
	}

	r.breaker.RecordSuccess(p.ID())
	return quote, nil
}

// GetHistoricalQuotes tries each provider in priority order for a date
// range, returning the first successful, validated batch.
func (r *Registry) GetHistoricalQuotes(ctx context.Context, instrument InstrumentID, start, end int64) ([]Quote, error) {
	var attempts []error
	for _, p := range r.providers {
		quotes, err := r.tryHistorical(ctx, p, instrument, start, end)
		if err != nil {
			attempts = append(attempts, err)
			continue
		}
		return quotes, nil
	}
	return nil, &ErrAllProvidersFailed{Attempts: attempts}
}

func (r *Registry) tryHistorical(ctx context.Context, p Provider, instrument InstrumentID, start, end int64) ([]Quote, error) {
	if !r.breaker.IsAllowed(p.ID()) {
		return nil, fmt.Errorf("provider %s: circuit open", p.ID())
	}
	providerInstrument, ok := r.chain.Resolve(instrument, p.ID())
	if !ok {
		return nil, fmt.Errorf("provider %s: unresolved instrument", p.ID())
	}

	limiter := r.limiters[p.ID()]
	if err := limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("provider %s: rate limiter: %w", p.ID(), err)
	}
	defer limiter.Release()

	quotes, err := p.GetHistoricalQuotes(ctx, providerInstrument, start, end)
	if err != nil {
		r.breaker.RecordFailure(p.ID())
		return nil, fmt.Errorf("provider %s: %w", p.ID(), err)
	}

	valid := make([]Quote, 0, len(quotes))
	for _, q := range quotes {
		issues, verr := r.validator.Validate(q)
		if verr != nil {
			r.log.Warn().Str("provider", string(p.ID())).Err(verr).Msg("quote hard-rejected, dropped from batch")
			continue
		}
		for _, issue := range issues {
			r.log.Warn().Str("provider", string(p.ID())).Str("message", issue.Message).Msg("quote validation warning")
		}
		valid = append(valid, q)
	}

	r.breaker.RecordSuccess(p.ID())
	return valid, nil
}
