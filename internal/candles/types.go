// Package candles implements the price series store: aligned, time-indexed
// OHLCV history per symbol, and the inner-joined close matrix the pair
// finder and signal engine operate on.
package candles

import (
	"errors"
	"fmt"
)

// ErrDataUnavailable is returned when fewer bars are obtainable than requested.
var ErrDataUnavailable = errors.New("candles: data unavailable")

// ErrInsufficientAlignment is returned when the aligned matrix is shorter
// than the caller's required tail length.
var ErrInsufficientAlignment = errors.New("candles: insufficient alignment")

// Timeframe is a bar period recognized by the store.
type Timeframe string

const (
	TF1Min    Timeframe = "1m"
	TF5Min    Timeframe = "5m"
	TF15Min   Timeframe = "15m"
	TF30Min   Timeframe = "30m"
	TF60Min   Timeframe = "60m"
	TF240Min  Timeframe = "240m"
	TFDaily   Timeframe = "1d"
	TFWeekly  Timeframe = "1wk"
)

// Candle is one OHLCV bar. Timestamp is a Unix second in the exchange's
// trading zone, matching the teacher's OHLCV.Time convention.
type Candle struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// PriceTable is one symbol's ordered bar sequence at a fixed timeframe.
// Invariant: Bars is strictly increasing by Timestamp with no duplicates.
type PriceTable struct {
	Symbol    string
	Timeframe Timeframe
	Bars      []Candle
}

// Validate checks the PriceTable's monotone-timestamp invariant.
func (pt PriceTable) Validate() error {
	for i := 1; i < len(pt.Bars); i++ {
		if pt.Bars[i].Timestamp <= pt.Bars[i-1].Timestamp {
			return fmt.Errorf("candles: %s non-monotone at index %d (ts %d <= %d)",
				pt.Symbol, i, pt.Bars[i].Timestamp, pt.Bars[i-1].Timestamp)
		}
	}
	return nil
}

// AlignedCloseMatrix is a table keyed by timestamp (Rows, ascending) and
// symbol (Columns), containing close prices plus each row's open prices
// (Opens) for next-bar-open execution. It is formed by inner-joining
// per-symbol PriceTables and dropping any row where any symbol is missing.
type AlignedCloseMatrix struct {
	Symbols []string
	Rows    []int64              // timestamps, ascending
	Closes  map[string][]float64 // symbol -> close, same length/order as Rows
	Opens   map[string][]float64 // symbol -> open, same length/order as Rows
}

// Len returns the number of aligned rows.
func (m AlignedCloseMatrix) Len() int { return len(m.Rows) }

// Column returns the close-price series for a symbol, or nil if absent.
func (m AlignedCloseMatrix) Column(symbol string) []float64 {
	return m.Closes[symbol]
}

// OpenColumn returns the open-price series for a symbol, or nil if absent.
func (m AlignedCloseMatrix) OpenColumn(symbol string) []float64 {
	return m.Opens[symbol]
}

// Slice returns rows [start,end) of the matrix.
func (m AlignedCloseMatrix) Slice(start, end int) AlignedCloseMatrix {
	if start < 0 {
		start = 0
	}
	if end > len(m.Rows) {
		end = len(m.Rows)
	}
	out := AlignedCloseMatrix{
		Symbols: m.Symbols,
		Rows:    append([]int64(nil), m.Rows[start:end]...),
		Closes:  make(map[string][]float64, len(m.Closes)),
		Opens:   make(map[string][]float64, len(m.Opens)),
	}
	for sym, col := range m.Closes {
		out.Closes[sym] = append([]float64(nil), col[start:end]...)
	}
	for sym, col := range m.Opens {
		out.Opens[sym] = append([]float64(nil), col[start:end]...)
	}
	return out
}

// Tail returns the last n rows of the matrix, or the whole matrix if n >= Len().
func (m AlignedCloseMatrix) Tail(n int) AlignedCloseMatrix {
	if n <= 0 || n >= len(m.Rows) {
		return m
	}
	start := len(m.Rows) - n
	out := AlignedCloseMatrix{
		Symbols: m.Symbols,
		Rows:    append([]int64(nil), m.Rows[start:]...),
		Closes:  make(map[string][]float64, len(m.Closes)),
		Opens:   make(map[string][]float64, len(m.Opens)),
	}
	for sym, col := range m.Closes {
		out.Closes[sym] = append([]float64(nil), col[start:]...)
	}
	for sym, col := range m.Opens {
		out.Opens[sym] = append([]float64(nil), col[start:]...)
	}
	return out
}
