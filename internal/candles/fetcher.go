package candles

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// HTTPFetcher is a reference Fetcher implementation against a generic
// chart-data HTTP endpoint (teacher's getHistory handler shape: a JSON
// response of parallel timestamp/OHLCV arrays). It is not part of the
// core contract — swap it for a real broker/vendor client by satisfying
// Fetcher directly. Retries transient failures with go-retryablehttp,
// matching the pack's (dbn-go) preference for a retrying HTTP client
// over a bare net/http.Client for flaky vendor endpoints.
type HTTPFetcher struct {
	BaseURL string
	Client  *retryablehttp.Client
}

// NewHTTPFetcher builds an HTTPFetcher against baseURL (e.g.
// "https://example-quote-vendor/v1/chart"). If baseURL is empty, it is
// read from the CANDLE_FEED_URL environment variable.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	if baseURL == "" {
		baseURL = os.Getenv("CANDLE_FEED_URL")
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = nil
	return &HTTPFetcher{BaseURL: baseURL, Client: client}
}

type chartResponse struct {
	Timestamp []int64 `json:"timestamp"`
	Open      []float64 `json:"open"`
	High      []float64 `json:"high"`
	Low       []float64 `json:"low"`
	Close     []float64 `json:"close"`
	Volume    []float64 `json:"volume"`
}

// FetchCandles fetches the most recent numCandles bars for symbol at tf.
func (f *HTTPFetcher) FetchCandles(ctx context.Context, symbol string, tf Timeframe, numCandles int) ([]Candle, error) {
	if f.BaseURL == "" {
		return nil, fmt.Errorf("candles: HTTPFetcher has no base URL configured")
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", string(tf))
	q.Set("count", fmt.Sprintf("%d", numCandles))

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("candles: feed returned status %d for %s", resp.StatusCode, symbol)
	}

	var cr chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("candles: decode feed response: %w", err)
	}

	bars := make([]Candle, 0, len(cr.Timestamp))
	for i, ts := range cr.Timestamp {
		if i >= len(cr.Close) || cr.Close[i] <= 0 {
			continue
		}
		c := Candle{Timestamp: ts, Close: cr.Close[i]}
		if i < len(cr.Open) {
			c.Open = cr.Open[i]
		}
		if i < len(cr.High) {
			c.High = cr.High[i]
		}
		if i < len(cr.Low) {
			c.Low = cr.Low[i]
		}
		if i < len(cr.Volume) {
			c.Volume = cr.Volume[i]
		}
		bars = append(bars, c)
	}
	return bars, nil
}
