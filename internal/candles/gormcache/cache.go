// Package gormcache is the persistent candle cache (spec §6): one row per
// (symbol, timeframe, timestamp) in a GORM/SQLite table, with idempotent
// upserts that keep the latest observation per timestamp. Grounded on the
// teacher's OHLCVCache model and its WAL-mode SQLite setup in main().
package gormcache

import (
	"log"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"statarb/internal/candles"
)

// Row is the GORM model backing the cache. Unlike the teacher's
// OHLCVCache (one JSON blob per symbol+interval), this is columnar —
// one row per bar — so a conflicting write is a row-level upsert rather
// than a whole-blob overwrite.
type Row struct {
	ID        uint      `gorm:"primaryKey"`
	Symbol    string    `gorm:"uniqueIndex:idx_candle_row;not null"`
	Timeframe string    `gorm:"uniqueIndex:idx_candle_row;not null"`
	Timestamp int64     `gorm:"uniqueIndex:idx_candle_row;not null"`
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Row) TableName() string { return "candle_rows" }

// Cache is the GORM-backed implementation of candles.Cache.
type Cache struct {
	db *gorm.DB
}

// Open opens (creating if necessary) a SQLite-backed Cache at dbPath,
// applying the same WAL/busy-timeout pragmas as the teacher's main().
func Open(dbPath string) (*Cache, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")
	db.Exec("PRAGMA synchronous=NORMAL")

	if err := db.AutoMigrate(&Row{}); err != nil {
		return nil, err
	}
	log.Printf("[CandleCache] ready at %s", dbPath)
	return &Cache{db: db}, nil
}

// Load returns all cached bars for (symbol, tf) in ascending timestamp order.
func (c *Cache) Load(symbol string, tf candles.Timeframe) ([]candles.Candle, error) {
	var rows []Row
	if err := c.db.Where("symbol = ? AND timeframe = ?", symbol, string(tf)).
		Order("timestamp asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]candles.Candle, len(rows))
	for i, r := range rows {
		out[i] = candles.Candle{
			Timestamp: r.Timestamp, Open: r.Open, High: r.High,
			Low: r.Low, Close: r.Close, Volume: r.Volume,
		}
	}
	return out, nil
}

// Upsert writes bars, keeping the latest observation per timestamp
// (ON CONFLICT DO UPDATE on the unique (symbol, timeframe, timestamp) index).
func (c *Cache) Upsert(symbol string, tf candles.Timeframe, bars []candles.Candle) error {
	if len(bars) == 0 {
		return nil
	}
	rows := make([]Row, len(bars))
	for i, b := range bars {
		rows[i] = Row{
			Symbol: symbol, Timeframe: string(tf), Timestamp: b.Timestamp,
			Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume,
		}
	}
	return c.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "timeframe"}, {Name: "timestamp"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "updated_at"}),
	}).CreateInBatches(rows, 500).Error
}
