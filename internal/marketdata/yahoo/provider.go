// Package yahoo implements marketdata.Provider against the public Yahoo
// Finance chart endpoint, in the http.Client-with-timeout-and-logger shape
// used throughout this codebase's provider clients.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/afadil/wealthfolio-sub004/internal/marketdata"
)

// Provider is a Yahoo Finance quote source.
type Provider struct {
	client *http.Client
	log    zerolog.Logger
}

// NewProvider builds a Yahoo provider with a 30s HTTP timeout.
func NewProvider(log zerolog.Logger) *Provider {
	return &Provider{
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log.With().Str("provider", "yahoo").Logger(),
	}
}

func (p *Provider) ID() marketdata.ProviderID { return marketdata.ProviderYahoo }
func (p *Provider) Priority() uint8           { return 10 }

func (p *Provider) Capabilities() marketdata.Capabilities {
	return marketdata.Capabilities{
		InstrumentKinds:    []marketdata.InstrumentKind{marketdata.KindEquity, marketdata.KindCrypto, marketdata.KindFx, marketdata.KindMetal},
		SupportsLatest:     true,
		SupportsHistorical: true,
		SupportsSearch:     false,
	}
}

func (p *Provider) RateLimit() marketdata.RateLimit {
	return marketdata.RateLimit{RequestsPerMinute: 60, MaxConcurrency: 4, MinDelayMillis: 200}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency string  `json:"currency"`
				Symbol   string  `json:"symbol"`
				Price    float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

func (p *Provider) fetchChart(ctx context.Context, symbol string, start, end int64) (chartResponse, error) {
	base := fmt.Sprintf("https://query1.finance.yahoo.com/v8/finance/chart/%s", url.PathEscape(symbol))
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", start))
	params.Set("period2", fmt.Sprintf("%d", end))
	params.Set("interval", "1d")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return chartResponse{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	resp, err := p.client.Do(req)
	if err != nil {
		return chartResponse{}, fmt.Errorf("yahoo chart request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return chartResponse{}, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return chartResponse{}, fmt.Errorf("yahoo chart returned status %d: %s", resp.StatusCode, string(body))
	}

	var out chartResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return chartResponse{}, fmt.Errorf("parsing response: %w", err)
	}
	if out.Chart.Error != nil {
		return chartResponse{}, fmt.Errorf("yahoo chart error: %v", out.Chart.Error)
	}
	if len(out.Chart.Result) == 0 {
		return chartResponse{}, fmt.Errorf("no chart data for symbol %s", symbol)
	}
	return out, nil
}

// GetLatestQuote fetches the last seven days of daily bars ending now and
// returns the most recent one.
func (p *Provider) GetLatestQuote(ctx context.Context, instrument marketdata.ProviderInstrument) (marketdata.Quote, error) {
	now := time.Now().Unix()
	quotes, err := p.GetHistoricalQuotes(ctx, instrument, now-7*24*3600, now)
	if err != nil {
		return marketdata.Quote{}, err
	}
	if len(quotes) == 0 {
		return marketdata.Quote{}, fmt.Errorf("no quotes returned for %s", instrument)
	}
	return quotes[len(quotes)-1], nil
}

// GetHistoricalQuotes fetches daily OHLCV data for the given range.
func (p *Provider) GetHistoricalQuotes(ctx context.Context, instrument marketdata.ProviderInstrument, start, end int64) ([]marketdata.Quote, error) {
	chart, err := p.fetchChart(ctx, string(instrument), start, end)
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	currency := result.Meta.Currency
	if currency == "" {
		currency = "USD"
	}
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no OHLCV indicators for %s", instrument)
	}
	ohlcv := result.Indicators.Quote[0]

	quotes := make([]marketdata.Quote, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(ohlcv.Close) || ohlcv.Close[i] == nil {
			continue
		}
		q := marketdata.Quote{
			AssetID:   string(instrument),
			Timestamp: ts,
			Close:     *ohlcv.Close[i],
			Currency:  currency,
			Source:    marketdata.ProviderYahoo,
		}
		if i < len(ohlcv.Open) {
			q.Open = ohlcv.Open[i]
		}
		if i < len(ohlcv.High) {
			q.High = ohlcv.High[i]
		}
		if i < len(ohlcv.Low) {
			q.Low = ohlcv.Low[i]
		}
		if i < len(ohlcv.Volume) {
			q.Volume = ohlcv.Volume[i]
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}
