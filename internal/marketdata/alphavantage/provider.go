// Package alphavantage implements marketdata.Provider against Alpha
// Vantage's TIME_SERIES_DAILY endpoint.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/afadil/wealthfolio-sub004/internal/marketdata"
)

// SecretStore is the subset of portfolio.SecretStore this provider needs to
// look up its API key.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
}

const secretKey = "ALPHA_VANTAGE_API_KEY"

// Provider is an Alpha Vantage quote source.
type Provider struct {
	client  *http.Client
	secrets SecretStore
	log     zerolog.Logger
}

// NewProvider builds an Alpha Vantage provider; the API key is resolved
// lazily per call from secrets so it can be rotated without a restart.
func NewProvider(secrets SecretStore, log zerolog.Logger) *Provider {
	return &Provider{
		client:  &http.Client{Timeout: 30 * time.Second},
		secrets: secrets,
		log:     log.With().Str("provider", "alpha_vantage").Logger(),
	}
}

func (p *Provider) ID() marketdata.ProviderID { return marketdata.ProviderAlphaVantage }
func (p *Provider) Priority() uint8           { return 20 }

func (p *Provider) Capabilities() marketdata.Capabilities {
	return marketdata.Capabilities{
		InstrumentKinds:    []marketdata.InstrumentKind{marketdata.KindEquity, marketdata.KindFx},
		SupportsLatest:     true,
		SupportsHistorical: true,
		SupportsSearch:     false,
	}
}

func (p *Provider) RateLimit() marketdata.RateLimit {
	// Alpha Vantage's free tier is heavily throttled.
	return marketdata.RateLimit{RequestsPerMinute: 5, MaxConcurrency: 1, MinDelayMillis: 1000}
}

type dailySeriesResponse struct {
	TimeSeries map[string]struct {
		Open   string `json:"1. open"`
		High   string `json:"2. high"`
		Low    string `json:"3. low"`
		Close  string `json:"4. close"`
		Volume string `json:"5. volume"`
	} `json:"Time Series (Daily)"`
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
}

func (p *Provider) apiKey(ctx context.Context) (string, error) {
	key, err := p.secrets.Get(ctx, secretKey)
	if err != nil {
		return "", fmt.Errorf("loading alpha vantage api key: %w", err)
	}
	if key == "" {
		return "", fmt.Errorf("alpha vantage api key not configured")
	}
	return key, nil
}

// GetHistoricalQuotes fetches daily OHLCV data and filters to [start, end].
func (p *Provider) GetHistoricalQuotes(ctx context.Context, instrument marketdata.ProviderInstrument, start, end int64) ([]marketdata.Quote, error) {
	key, err := p.apiKey(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", string(instrument))
	params.Set("outputsize", "full")
	params.Set("apikey", key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.alphavantage.co/query?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alpha vantage request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var parsed dailySeriesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if parsed.ErrorMessage != "" {
		return nil, fmt.Errorf("alpha vantage error: %s", parsed.ErrorMessage)
	}
	if parsed.Note != "" {
		return nil, fmt.Errorf("alpha vantage rate limited: %s", parsed.Note)
	}

	quotes := make([]marketdata.Quote, 0, len(parsed.TimeSeries))
	for dateStr, ohlcv := range parsed.TimeSeries {
		ts, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		unix := ts.Unix()
		if unix < start || unix > end {
			continue
		}
		closeVal, err := strconv.ParseFloat(ohlcv.Close, 64)
		if err != nil {
			continue
		}
		q := marketdata.Quote{
			AssetID:   string(instrument),
			Timestamp: unix,
			Close:     closeVal,
			Currency:  "USD",
			Source:    marketdata.ProviderAlphaVantage,
		}
		if o, err := strconv.ParseFloat(ohlcv.Open, 64); err == nil {
			q.Open = &o
		}
		if h, err := strconv.ParseFloat(ohlcv.High, 64); err == nil {
			q.High = &h
		}
		if l, err := strconv.ParseFloat(ohlcv.Low, 64); err == nil {
			q.Low = &l
		}
		if v, err := strconv.ParseFloat(ohlcv.Volume, 64); err == nil {
			q.Volume = &v
		}
		quotes = append(quotes, q)
	}

	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Timestamp < quotes[j].Timestamp })
	return quotes, nil
}

// GetLatestQuote returns the most recent daily bar.
func (p *Provider) GetLatestQuote(ctx context.Context, instrument marketdata.ProviderInstrument) (marketdata.Quote, error) {
	now := time.Now().Unix()
	quotes, err := p.GetHistoricalQuotes(ctx, instrument, now-14*24*3600, now)
	if err != nil {
		return marketdata.Quote{}, err
	}
	if len(quotes) == 0 {
		return marketdata.Quote{}, fmt.Errorf("no quotes returned for %s", instrument)
	}
	return quotes[len(quotes)-1], nil
}
