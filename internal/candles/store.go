package candles

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// Fetcher is the external collaborator that supplies raw bars for a
// symbol. The core never assumes a specific data vendor; HTTPFetcher
// below is a reference implementation, not part of the core contract.
type Fetcher interface {
	FetchCandles(ctx context.Context, symbol string, tf Timeframe, numCandles int) ([]Candle, error)
}

// Cache is the external collaborator that persists bars across process
// restarts. Writes must be idempotent: merging on conflict keeps the
// latest observation per timestamp. gormcache.Cache is the reference
// implementation.
type Cache interface {
	Load(symbol string, tf Timeframe) ([]Candle, error)
	Upsert(symbol string, tf Timeframe, bars []Candle) error
}

// Store is the Price Series Store (component A): it supplies per-symbol
// time-ordered bar sequences and, on demand, an aligned close matrix.
// The store is logically append-only — successive calls may append new
// bars but never rewrite closed ones.
type Store struct {
	fetcher Fetcher
	cache   Cache
}

// NewStore builds a Store backed by the given fetcher and cache.
func NewStore(fetcher Fetcher, cache Cache) *Store {
	return &Store{fetcher: fetcher, cache: cache}
}

// GetCandles returns the most recent numCandles bars for symbol at tf,
// consulting the cache first and falling back to the fetcher on a
// shortfall. If tf cannot be satisfied directly, it falls back to
// resampling from a finer base timeframe (spec.md §4.A: "resampling
// from finer bars is permitted"). Fails with ErrDataUnavailable if
// fewer than numCandles are obtainable even after fetching and
// resampling.
func (s *Store) GetCandles(ctx context.Context, symbol string, tf Timeframe, numCandles int) ([]Candle, error) {
	bars, err := s.getCandlesDirect(ctx, symbol, tf, numCandles)
	if err == nil {
		return bars, nil
	}
	if derived, ok := s.getCandlesDerived(ctx, symbol, tf, numCandles); ok {
		return derived, nil
	}
	return nil, err
}

// getCandlesDirect is the store's original cache-then-fetch path for a
// timeframe the cache/fetcher can serve directly.
func (s *Store) getCandlesDirect(ctx context.Context, symbol string, tf Timeframe, numCandles int) ([]Candle, error) {
	var bars []Candle
	if s.cache != nil {
		cached, err := s.cache.Load(symbol, tf)
		if err == nil {
			bars = cached
		}
	}

	if len(bars) < numCandles && s.fetcher != nil {
		fetched, err := s.fetcher.FetchCandles(ctx, symbol, tf, numCandles)
		if err != nil {
			if len(bars) == 0 {
				return nil, fmt.Errorf("%w: %s %s: %v", ErrDataUnavailable, symbol, tf, err)
			}
		} else {
			bars = mergeByTimestamp(bars, fetched)
			if s.cache != nil {
				_ = s.cache.Upsert(symbol, tf, bars)
			}
		}
	}

	if len(bars) < numCandles {
		return nil, fmt.Errorf("%w: %s %s: have %d, need %d", ErrDataUnavailable, symbol, tf, len(bars), numCandles)
	}
	return tail(bars, numCandles), nil
}

// mergeByTimestamp merges two ascending-by-timestamp bar slices, keeping
// the latest observation per timestamp (b wins ties over a) — the
// idempotent-upsert merge policy of §6.
func mergeByTimestamp(a, b []Candle) []Candle {
	byTS := make(map[int64]Candle, len(a)+len(b))
	for _, c := range a {
		byTS[c.Timestamp] = c
	}
	for _, c := range b {
		byTS[c.Timestamp] = c
	}
	out := make([]Candle, 0, len(byTS))
	for _, c := range byTS {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// timeframeFactor reports the finer base timeframe and aggregation
// factor a coarser intraday tf resamples from (spec.md §4.A: "standard
// aggregation, open=first, high=max, low=min, close=last, volume=sum").
// Daily/weekly are handled separately since a trading-calendar bars-per-
// day count doesn't reduce to a fixed minute factor.
func timeframeFactor(tf Timeframe) (base Timeframe, factor int, ok bool) {
	switch tf {
	case TF5Min:
		return TF1Min, 5, true
	case TF15Min:
		return TF1Min, 15, true
	case TF30Min:
		return TF1Min, 30, true
	case TF60Min:
		return TF1Min, 60, true
	case TF240Min:
		return TF1Min, 240, true
	default:
		return "", 0, false
	}
}

// getCandlesDerived resamples tf from a finer base timeframe when the
// cache/fetcher cannot serve it directly: weekly bars anchor on the
// last trading day of the week from daily bars (WeeklyAnchor), and
// intraday timeframes aggregate up from 1-minute bars (AggregateCandles).
func (s *Store) getCandlesDerived(ctx context.Context, symbol string, tf Timeframe, numCandles int) ([]Candle, bool) {
	if tf == TFWeekly {
		daily, err := s.GetCandles(ctx, symbol, TFDaily, numCandles*7)
		if err != nil {
			return nil, false
		}
		weekly := WeeklyAnchor(daily)
		if len(weekly) < numCandles {
			return nil, false
		}
		return tail(weekly, numCandles), true
	}

	base, factor, ok := timeframeFactor(tf)
	if !ok {
		return nil, false
	}
	baseBars, err := s.GetCandles(ctx, symbol, base, numCandles*factor)
	if err != nil {
		return nil, false
	}
	agg := AggregateCandles(baseBars, factor)
	if len(agg) < numCandles {
		return nil, false
	}
	return tail(agg, numCandles), true
}

func tail(bars []Candle, n int) []Candle {
	if n >= len(bars) {
		return bars
	}
	return bars[len(bars)-n:]
}

// AlignClose builds an AlignedCloseMatrix for the given symbols by
// inner-joining their PriceTables on timestamp and dropping any row
// where any symbol is missing a bar. Fails with ErrInsufficientAlignment
// if the resulting aligned length is shorter than tailLength.
func (s *Store) AlignClose(ctx context.Context, symbols []string, tf Timeframe, tailLength int) (AlignedCloseMatrix, error) {
	// Fetch tailLength bars per symbol; a symbol whose fetch fails is
	// dropped, and any timestamp missing from a kept symbol drops that row.
	perSymbol := make(map[string][]Candle, len(symbols))
	for _, sym := range symbols {
		bars, err := s.GetCandles(ctx, sym, tf, tailLength)
		if err != nil {
			continue // DataUnavailable for this symbol: drop it, keep going.
		}
		perSymbol[sym] = bars
	}

	return alignClose(perSymbol, tailLength)
}

// alignClose is the pure inner-join at the heart of AlignClose, split out
// for unit testing without a Fetcher/Cache.
func alignClose(perSymbol map[string][]Candle, tailLength int) (AlignedCloseMatrix, error) {
	if len(perSymbol) == 0 {
		return AlignedCloseMatrix{}, fmt.Errorf("%w: no symbols with data", ErrInsufficientAlignment)
	}

	// Count occurrences of each timestamp across symbols; a row is kept
	// only if every symbol has a bar at that timestamp (inner join).
	counts := make(map[int64]int)
	closeAt := make(map[int64]map[string]float64)
	openAt := make(map[int64]map[string]float64)
	for sym, bars := range perSymbol {
		for _, c := range bars {
			if closeAt[c.Timestamp] == nil {
				closeAt[c.Timestamp] = make(map[string]float64)
				openAt[c.Timestamp] = make(map[string]float64)
			}
			closeAt[c.Timestamp][sym] = c.Close
			openAt[c.Timestamp][sym] = c.Open
			counts[c.Timestamp]++
		}
	}

	symbols := make([]string, 0, len(perSymbol))
	for sym := range perSymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var rows []int64
	for ts, n := range counts {
		if n == len(symbols) {
			rows = append(rows, ts)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i] < rows[j] })

	if len(rows) < tailLength {
		return AlignedCloseMatrix{}, fmt.Errorf("%w: aligned length %d < required %d", ErrInsufficientAlignment, len(rows), tailLength)
	}

	m := AlignedCloseMatrix{
		Symbols: symbols,
		Rows:    rows,
		Closes:  make(map[string][]float64, len(symbols)),
		Opens:   make(map[string][]float64, len(symbols)),
	}
	for _, sym := range symbols {
		closeCol := make([]float64, len(rows))
		openCol := make([]float64, len(rows))
		for i, ts := range rows {
			closeCol[i] = closeAt[ts][sym]
			openCol[i] = openAt[ts][sym]
		}
		m.Closes[sym] = closeCol
		m.Opens[sym] = openCol
	}
	if tailLength > 0 {
		return m.Tail(tailLength), nil
	}
	return m, nil
}

// LogPrices returns the natural log of a close-price column. NaN/Inf
// guard: non-positive prices produce math.NaN(), which downstream
// statistical kernels treat as a numeric-instability failure.
func LogPrices(closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i, c := range closes {
		if c <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Log(c)
	}
	return out
}
