package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stock-oracle/internal/domain"
)

const twelveDataBaseURL = "https://api.twelvedata.com"

// ErrNoData is returned when the provider answers without any bars.
var ErrNoData = errors.New("no price data returned")

// periodBars maps a lookback period to a count of daily bars.
var periodBars = map[string]int{
	"1mo": 21,
	"3mo": 63,
	"6mo": 126,
	"1y":  252,
	"2y":  504,
	"5y":  1260,
	"10y": 2520,
	"max": 5000,
}

// OutputSize resolves a lookback period such as "5y" to a number of daily bars.
func OutputSize(period string) (int, error) {
	n, ok := periodBars[strings.ToLower(strings.TrimSpace(period))]
	if !ok {
		return 0, fmt.Errorf("unsupported period %q", period)
	}
	return n, nil
}

type TwelveDataConfig struct {
	APIKey     string
	BaseURL    string
	RatePerMin int
	Timeout    time.Duration
}

// TwelveDataProvider fetches daily OHLCV bars from the Twelve Data time_series API.
type TwelveDataProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
	limiter *RateLimiter
	breaker *gobreaker.CircuitBreaker
}

func NewTwelveDataProvider(tracer trace.Tracer, cfg TwelveDataConfig) *TwelveDataProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = twelveDataBaseURL
	}
	if cfg.RatePerMin <= 0 {
		cfg.RatePerMin = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &TwelveDataProvider{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		tracer:  tracer,
		limiter: NewRateLimiter(cfg.RatePerMin, time.Minute),
		breaker: newBreaker("twelvedata"),
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	st := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
	}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= 3 {
			return true
		}
		if counts.Requests < 20 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
	}
	// an empty answer is a data problem, not an outage
	st.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrNoData)
	}
	return gobreaker.NewCircuitBreaker(st)
}

type timeSeriesResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Meta    struct {
		Symbol string `json:"symbol"`
	} `json:"meta"`
	Values []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
}

// FetchBars returns daily bars for ticker over period in ascending date order.
// One call per invocation, no retry.
func (p *TwelveDataProvider) FetchBars(ctx context.Context, ticker, period string) ([]domain.PriceBar, error) {
	ctx, span := p.tracer.Start(ctx, "twelvedata.fetch-bars")
	defer span.End()
	span.SetAttributes(attribute.String("ticker", ticker), attribute.String("period", period))

	size, err := OutputSize(period)
	if err != nil {
		return nil, err
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	out, err := p.breaker.Execute(func() (any, error) {
		return p.fetch(ctx, ticker, size)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch bars for %s: %w", ticker, err)
	}
	bars := out.([]domain.PriceBar)
	span.SetAttributes(attribute.Int("bars", len(bars)))
	return bars, nil
}

func (p *TwelveDataProvider) fetch(ctx context.Context, ticker string, size int) ([]domain.PriceBar, error) {
	q := url.Values{}
	q.Set("symbol", strings.ToUpper(ticker))
	q.Set("interval", "1day")
	q.Set("outputsize", strconv.Itoa(size))
	q.Set("order", "ASC")
	q.Set("apikey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/time_series?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("twelvedata http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var body timeSeriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode time series: %w", err)
	}
	if body.Status == "error" {
		// unknown symbols come back as status=error with code 400 in the body
		if strings.Contains(strings.ToLower(body.Message), "symbol") {
			return nil, fmt.Errorf("%w: %s", ErrNoData, body.Message)
		}
		return nil, fmt.Errorf("twelvedata: %s", body.Message)
	}
	if len(body.Values) == 0 {
		return nil, ErrNoData
	}

	bars := make([]domain.PriceBar, 0, len(body.Values))
	for _, v := range body.Values {
		date, err := parseBarDate(v.Datetime)
		if err != nil {
			return nil, err
		}
		bar := domain.PriceBar{Date: date}
		fields := []struct {
			name string
			raw  string
			dst  *float64
		}{
			{"open", v.Open, &bar.Open},
			{"high", v.High, &bar.High},
			{"low", v.Low, &bar.Low},
			{"close", v.Close, &bar.Close},
		}
		for _, f := range fields {
			n, err := strconv.ParseFloat(f.raw, 64)
			if err != nil {
				return nil, fmt.Errorf("parse %s %q: %w", f.name, f.raw, err)
			}
			*f.dst = n
		}
		if v.Volume != "" {
			vol, err := strconv.ParseFloat(v.Volume, 64)
			if err != nil {
				return nil, fmt.Errorf("parse volume %q: %w", v.Volume, err)
			}
			bar.Volume = vol
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseBarDate(v string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time %q", v)
}
