// Package backtest implements the backtest driver (component G): a
// bar-by-bar historical replay maintaining a realistic (capacity-capped)
// and theoretical (uncapped) portfolio, grounded on the teacher's
// runArenaBacktest bar-by-bar loop structure and
// original_source/strategy_logic/stat_arb.py's sizing/cost model.
package backtest

import (
	"math"

	"statarb/internal/pairfinder"
	"statarb/internal/signal"
)

// Trade is one closed round-trip, one row of the CSV trade log.
type Trade struct {
	SerialNumber int
	Pair         string // "S1_S2"
	Direction    string // LONG | SHORT
	EntryBar     int
	ExitBar      int
	DaysHeld     int
	ZScoreEntry  float64
	ZScoreExit   float64
	ExitReason   string

	S1Symbol string
	S1Pos    string // LONG | SHORT
	S1Entry  float64
	S1Qty    int

	S2Symbol string
	S2Pos    string
	S2Entry  float64
	S2Qty    int

	GrossPnL         float64
	TransactionCosts float64
	BorrowCosts      float64
	NetPnL           float64
	HedgeRatio       float64
	HalfLife         float64
}

// OpenTrade is an in-flight position carried by one portfolio.
type OpenTrade struct {
	Pair        string
	Direction   signal.Direction
	EntryBar    int
	BarsHeld    int
	ZScoreEntry float64
	Alpha, Beta float64
	HalfLife    float64

	S1Symbol string
	S2Symbol string
	S1Entry  float64
	S1Qty    int
	S2Entry  float64
	S2Qty    int
}

// Params configures sizing and the cost model (spec.md §4.G, §6).
type Params struct {
	InitialCapital           float64
	MaxConcurrentPairs       int
	TradeNotionalPerPair     float64
	FixedTheoreticalNotional float64
	TransactionCostBps       float64
	AnnualBorrowCostPct      float64
}

// Portfolio tracks capital and open/closed trades for one side of the
// dual-portfolio model (realistic or theoretical).
type Portfolio struct {
	Name      string
	Capped    bool
	MaxOpen   int
	Notional  float64
	Capital   float64
	Open      map[string]*OpenTrade // keyed by Pair
	Closed    []Trade
	SkippedForCapacity int
}

// NewPortfolio builds a fresh portfolio with the given sizing.
func NewPortfolio(name string, capped bool, maxOpen int, notional, initialCapital float64) *Portfolio {
	return &Portfolio{
		Name: name, Capped: capped, MaxOpen: maxOpen, Notional: notional,
		Capital: initialCapital, Open: make(map[string]*OpenTrade),
	}
}

// HasCapacity reports whether this portfolio can open a new position.
func (p *Portfolio) HasCapacity() bool {
	if !p.Capped {
		return true
	}
	return len(p.Open) < p.MaxOpen
}

// sizeLegs computes integer share quantities for both legs from a
// fixed notional K and hedge ratio beta (spec.md §4.G step 5):
//
//	notional_s1 = K/(1+|beta|), notional_s2 = K*|beta|/(1+|beta|)
//
// Returns ok=false if either computed quantity is zero.
func sizeLegs(notional, beta, price1, price2 float64) (qty1, qty2 int, ok bool) {
	absBeta := math.Abs(beta)
	notional1 := notional / (1 + absBeta)
	notional2 := notional * absBeta / (1 + absBeta)
	q1 := int(notional1 / price1)
	q2 := int(notional2 / price2)
	if q1 == 0 || q2 == 0 {
		return 0, 0, false
	}
	return q1, q2, true
}

// open attempts to open a new position for pair on the ENTER signal,
// at execution prices p1Exec/p2Exec (next-bar open, per spec.md §4.G
// step 4). Returns false if capacity is full or sizing is degenerate.
func (p *Portfolio) open(pairKey string, pi pairfinder.PairInfo, sig signal.PairSignal, barIdx int, p1Exec, p2Exec float64, params Params) bool {
	if !p.HasCapacity() {
		p.SkippedForCapacity++
		return false
	}

	qty1, qty2, ok := sizeLegs(p.Notional, sig.Beta, p1Exec, p2Exec)
	if !ok {
		return false
	}

	dir := signal.Long
	if sig.Type == signal.EnterShort {
		dir = signal.Short
	}

	p.Open[pairKey] = &OpenTrade{
		Pair: pairKey, Direction: dir, EntryBar: barIdx, ZScoreEntry: sig.ZScore,
		Alpha: sig.Alpha, Beta: sig.Beta, HalfLife: pi.HalfLife,
		S1Symbol: pi.S1, S2Symbol: pi.S2,
		S1Entry: p1Exec, S1Qty: qty1, S2Entry: p2Exec, S2Qty: qty2,
	}
	return true
}

// close closes an open position at execution prices, applying the
// transaction/borrow cost model (spec.md §4.G step 6), and appends the
// resulting Trade to Closed.
func (p *Portfolio) close(ot *OpenTrade, barIdx int, exitZ float64, reason string, p1Exec, p2Exec float64, daysPerBar float64, params Params, serial int) Trade {
	var s1Dir, s2Dir float64 = 1, -1
	s1Pos, s2Pos := "LONG", "SHORT"
	if ot.Direction == signal.Short {
		s1Dir, s2Dir = -1, 1
		s1Pos, s2Pos = "SHORT", "LONG"
	}

	legPnL1 := s1Dir * (p1Exec - ot.S1Entry) * float64(ot.S1Qty)
	legPnL2 := s2Dir * (p2Exec - ot.S2Entry) * float64(ot.S2Qty)
	gross := legPnL1 + legPnL2

	turnover := ot.S1Entry*float64(ot.S1Qty) + p1Exec*float64(ot.S1Qty) +
		ot.S2Entry*float64(ot.S2Qty) + p2Exec*float64(ot.S2Qty)
	txCost := turnover * params.TransactionCostBps / 10000.0

	daysHeld := float64(barIdx-ot.EntryBar) * daysPerBar
	shortLegNotional := ot.S2Entry * float64(ot.S2Qty)
	if ot.Direction == signal.Short {
		shortLegNotional = ot.S1Entry * float64(ot.S1Qty)
	}
	borrowCost := shortLegNotional * (params.AnnualBorrowCostPct / 100.0) * daysHeld / 365.0

	net := gross - txCost - borrowCost
	p.Capital += net

	trade := Trade{
		SerialNumber: serial,
		Pair:         ot.S1Symbol + "_" + ot.S2Symbol,
		Direction:    ot.Direction.String(),
		EntryBar:     ot.EntryBar, ExitBar: barIdx, DaysHeld: int(math.Round(daysHeld)),
		ZScoreEntry: ot.ZScoreEntry, ZScoreExit: exitZ, ExitReason: reason,
		S1Symbol: ot.S1Symbol, S1Pos: s1Pos, S1Entry: ot.S1Entry, S1Qty: ot.S1Qty,
		S2Symbol: ot.S2Symbol, S2Pos: s2Pos, S2Entry: ot.S2Entry, S2Qty: ot.S2Qty,
		GrossPnL: gross, TransactionCosts: txCost, BorrowCosts: borrowCost, NetPnL: net,
		HedgeRatio: ot.Beta, HalfLife: ot.HalfLife,
	}
	p.Closed = append(p.Closed, trade)
	delete(p.Open, ot.Pair)
	return trade
}

// MechanicalWinRate is spec.md §4.G / §8's TP_hits / (TP_hits + SL_hits),
// counting only profit-target and stop-loss exits (time stops excluded).
func MechanicalWinRate(trades []Trade) float64 {
	var tp, sl int
	for _, t := range trades {
		switch t.ExitReason {
		case signal.ReasonProfitTarget:
			tp++
		case signal.ReasonStatisticalStop:
			sl++
		}
	}
	if tp+sl == 0 {
		return 0
	}
	return float64(tp) / float64(tp+sl)
}
