// Package config loads the engine's tunables from the environment,
// teacher-pack style: small getEnv*/def helpers, no external config
// library (grounded on chidi150c-coinbase's env.go). Symbol universes
// are too large to carry comfortably in env vars, so those load from
// an optional JSON file instead of being hardcoded (the original
// Python inlines SYMBOLS_TO_TRACK directly in main.py).
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"statarb/internal/candles"
)

// Config holds every tunable named in the external-interfaces table:
// timeframe, symbol universe, pair-finder gates, signal-engine
// thresholds, backtest sizing/cost model, and output paths.
type Config struct {
	Timeframe candles.Timeframe
	Symbols   []string

	FormationPeriodDays  int
	PairRecalcPeriodDays int
	RollingWindow        int

	CorrThreshold float64
	ADFP          float64
	MinHalfLife   float64
	MaxHalfLife   float64

	ZEntry          float64
	ZExit           float64
	ZStop           float64
	TimeStopFactor  float64

	InitialCapital           float64
	MaxConcurrentPairs       int
	TradeNotionalPerPair     float64
	FixedTheoreticalNotional float64

	TransactionCostBps     float64
	AnnualBorrowCostPct    float64

	OutputFileName string

	CycleInterval int // live driver cycle sleep, in seconds

	CandleFeedURL   string
	CandleCachePath string

	BrokerClientID     string
	BrokerAccessToken  string

	ReportAddr string
	MetricsAddr string
}

// Load builds a Config from the environment, falling back to the
// spec's documented defaults. symbolsFile, if non-empty, is a JSON
// file containing a top-level array of symbol strings; it overrides
// SYMBOLS_TO_TEST.
func Load(symbolsFile string) (Config, error) {
	cfg := Config{
		Timeframe:            candles.Timeframe(getEnv("TIMEFRAME", string(candles.TF60Min))),
		Symbols:              splitCSV(getEnv("SYMBOLS_TO_TEST", "")),
		FormationPeriodDays:  getEnvInt("FORMATION_PERIOD_DAYS", 252),
		PairRecalcPeriodDays: getEnvInt("PAIR_RECALC_PERIOD_DAYS", 21),
		RollingWindow:        getEnvInt("ROLLING_WINDOW", 60),

		CorrThreshold: getEnvFloat("CORR_THRESHOLD", 0.90),
		ADFP:          getEnvFloat("ADF_P", 0.01),
		MinHalfLife:   getEnvFloat("MIN_HALF_LIFE", 5.0),
		MaxHalfLife:   getEnvFloat("MAX_HALF_LIFE", 100.0),

		ZEntry:         getEnvFloat("Z_ENTRY", 2.5),
		ZExit:          getEnvFloat("Z_EXIT", 0.5),
		ZStop:          getEnvFloat("Z_STOP", 3.0),
		TimeStopFactor: getEnvFloat("TIME_STOP_FACTOR", 2.5),

		InitialCapital:           getEnvFloat("INITIAL_CAPITAL", 100000.0),
		MaxConcurrentPairs:       getEnvInt("MAX_CONCURRENT_PAIRS", 10),
		TradeNotionalPerPair:     getEnvFloat("TRADE_NOTIONAL_PER_PAIR", 10000.0),
		FixedTheoreticalNotional: getEnvFloat("FIXED_THEORETICAL_NOTIONAL", 1000.0),

		TransactionCostBps:  getEnvFloat("TRANSACTION_COST_BPS", 2.0),
		AnnualBorrowCostPct: getEnvFloat("ANNUAL_BORROW_COST_PERCENT", 3.0),

		OutputFileName: getEnv("OUTPUT_FILE_NAME", "trades.csv"),
		CycleInterval:  getEnvInt("CYCLE_INTERVAL_SECONDS", 60),

		CandleFeedURL:   getEnv("CANDLE_FEED_URL", ""),
		CandleCachePath: getEnv("CANDLE_CACHE_PATH", "statarb_candles.db"),

		BrokerClientID:    getEnv("CLIENT_ID", getEnv("BROKER_CLIENT_ID", "")),
		BrokerAccessToken: getEnv("ACCESS_TOKEN", getEnv("BROKER_ACCESS_TOKEN", "")),

		ReportAddr:  getEnv("REPORT_ADDR", ":8090"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
	}

	if symbolsFile != "" {
		symbols, err := loadSymbolsFile(symbolsFile)
		if err != nil {
			return Config{}, err
		}
		cfg.Symbols = symbols
	}

	return cfg, nil
}

func loadSymbolsFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var symbols []string
	if err := json.Unmarshal(raw, &symbols); err != nil {
		return nil, err
	}
	return symbols, nil
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
