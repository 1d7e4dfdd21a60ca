// Package gormcache persists backtest run summaries and trade rows to
// a GORM/SQLite ledger (spec component I), grounded on the same
// WAL-pragma/AutoMigrate setup as internal/candles/gormcache and the
// teacher's main() SQLite initialization.
package gormcache

import (
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"statarb/internal/backtest"
)

// RunRow is one backtest run's summary, one row per portfolio.
type RunRow struct {
	ID             uint   `gorm:"primaryKey"`
	RunID          string `gorm:"index;not null"`
	Portfolio      string `gorm:"not null"`
	InitialCapital float64
	FinalCapital   float64
	NetPnL         float64
	TradeCount     int
	MechanicalWinRate float64
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (RunRow) TableName() string { return "backtest_runs" }

// TradeRow is one closed trade belonging to a run, mirroring
// backtest.Trade for durable storage alongside the CSV trade log.
type TradeRow struct {
	ID           uint   `gorm:"primaryKey"`
	RunID        string `gorm:"index;not null"`
	Portfolio    string `gorm:"index;not null"`
	SerialNumber int
	Pair         string
	Direction    string
	EntryBar     int
	ExitBar      int
	DaysHeld     int
	ZScoreEntry  float64
	ZScoreExit   float64
	ExitReason   string
	S1Symbol     string
	S1Pos        string
	S1Entry      float64
	S1Qty        int
	S2Symbol     string
	S2Pos        string
	S2Entry      float64
	S2Qty        int
	GrossPnL     float64
	TransactionCosts float64
	BorrowCosts  float64
	NetPnL       float64
	HedgeRatio   float64
	HalfLife     float64
}

func (TradeRow) TableName() string { return "backtest_trades" }

// Ledger is the GORM-backed backtest-run store.
type Ledger struct {
	db *gorm.DB
}

// Open opens (creating if necessary) a SQLite-backed Ledger at dbPath.
func Open(dbPath string) (*Ledger, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA synchronous=NORMAL")

	if err := db.AutoMigrate(&RunRow{}, &TradeRow{}); err != nil {
		return nil, err
	}
	return &Ledger{db: db}, nil
}

// RecordRun persists one portfolio's run summary and trade rows.
func (l *Ledger) RecordRun(runID string, p *backtest.Portfolio, initialCapital float64) error {
	run := RunRow{
		RunID: runID, Portfolio: p.Name,
		InitialCapital: initialCapital, FinalCapital: p.Capital,
		NetPnL: p.Capital - initialCapital, TradeCount: len(p.Closed),
		MechanicalWinRate: backtest.MechanicalWinRate(p.Closed),
	}
	if err := l.db.Create(&run).Error; err != nil {
		return err
	}

	if len(p.Closed) == 0 {
		return nil
	}
	rows := make([]TradeRow, len(p.Closed))
	for i, t := range p.Closed {
		rows[i] = TradeRow{
			RunID: runID, Portfolio: p.Name,
			SerialNumber: t.SerialNumber, Pair: t.Pair, Direction: t.Direction,
			EntryBar: t.EntryBar, ExitBar: t.ExitBar, DaysHeld: t.DaysHeld,
			ZScoreEntry: t.ZScoreEntry, ZScoreExit: t.ZScoreExit, ExitReason: t.ExitReason,
			S1Symbol: t.S1Symbol, S1Pos: t.S1Pos, S1Entry: t.S1Entry, S1Qty: t.S1Qty,
			S2Symbol: t.S2Symbol, S2Pos: t.S2Pos, S2Entry: t.S2Entry, S2Qty: t.S2Qty,
			GrossPnL: t.GrossPnL, TransactionCosts: t.TransactionCosts, BorrowCosts: t.BorrowCosts,
			NetPnL: t.NetPnL, HedgeRatio: t.HedgeRatio, HalfLife: t.HalfLife,
		}
	}
	return l.db.CreateInBatches(rows, 500).Error
}
