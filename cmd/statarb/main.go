// Command statarb runs the pairs-trading engine: either the live
// signal-reporting loop or a historical backtest. Grounded on
// NimbleMarkets-dbn-go's cmd/dbn-go-hist cobra layout (package-level
// flag vars bound per-subcommand, rootCmd.Execute() in main).
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"statarb/internal/backtest"
	btgormcache "statarb/internal/backtest/gormcache"
	"statarb/internal/cache"
	"statarb/internal/candles"
	"statarb/internal/candles/gormcache"
	"statarb/internal/config"
	"statarb/internal/live"
	"statarb/internal/pairfinder"
	"statarb/internal/report"
	"statarb/internal/signal"
)

func notifyContext() (context.Context, context.CancelFunc) {
	return ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

var (
	symbolsFile string
	tailBars    int
	csvOutDir   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "statarb",
		Short: "Statistical arbitrage pairs-trading engine",
	}
	rootCmd.PersistentFlags().StringVarP(&symbolsFile, "symbols-file", "f", "", "JSON file with the symbol universe (overrides SYMBOLS_TO_TEST)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "Run the live signal cycle loop",
		RunE:  runLive,
	}

	backtestCmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay historical bars through the dual-portfolio backtest driver",
		RunE:  runBacktest,
	}
	backtestCmd.Flags().IntVarP(&tailBars, "bars", "n", 2000, "number of aligned bars to replay")
	backtestCmd.Flags().StringVarP(&csvOutDir, "out", "o", ".", "directory to write trade-log CSVs to")

	rootCmd.AddCommand(liveCmd, backtestCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func loadConfigAndStore() (config.Config, *candles.Store, error) {
	cfg, err := config.Load(symbolsFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("loading config: %w", err)
	}
	if len(cfg.Symbols) == 0 {
		return config.Config{}, nil, fmt.Errorf("no symbols configured: set SYMBOLS_TO_TEST or pass --symbols-file")
	}

	log.Printf("[Config] %d symbols, timeframe=%s, formation=%dd, recalc=%dd",
		len(cfg.Symbols), cfg.Timeframe, cfg.FormationPeriodDays, cfg.PairRecalcPeriodDays)

	var fetchCache candles.Cache
	if cfg.CandleCachePath != "" {
		gc, err := gormcache.Open(cfg.CandleCachePath)
		if err != nil {
			log.Printf("[OHLCVCache] unavailable, continuing without it: %v", err)
		} else {
			fetchCache = gc
			log.Printf("[OHLCVCache] opened %s", cfg.CandleCachePath)
		}
	}

	fetcher := candles.NewHTTPFetcher(cfg.CandleFeedURL)
	store := candles.NewStore(fetcher, fetchCache)
	return cfg, store, nil
}

func pairParamsFrom(cfg config.Config) pairfinder.Params {
	p := pairfinder.DefaultParams()
	p.CorrThreshold = cfg.CorrThreshold
	p.ADFP = cfg.ADFP
	p.MinHalfLife = cfg.MinHalfLife
	p.MaxHalfLife = cfg.MaxHalfLife
	p.FormationLength = cfg.FormationPeriodDays
	return p
}

func signalParamsFrom(cfg config.Config) signal.Params {
	return signal.Params{
		RollingWindow:  cfg.RollingWindow,
		ZEntry:         cfg.ZEntry,
		ZExit:          cfg.ZExit,
		ZStop:          cfg.ZStop,
		TimeStopFactor: cfg.TimeStopFactor,
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, store, err := loadConfigAndStore()
	if err != nil {
		return err
	}

	strategyCache := cache.New()
	reporter := report.NewServer(strategyCache, &backtestRunner{cfg: cfg, store: store})

	log.Printf("[LiveTrading] starting cycle loop, interval=%ds", cfg.CycleInterval)
	go serveMetrics(cfg.MetricsAddr)
	go serveReportAPI(cfg.ReportAddr, reporter)

	driver := &live.Driver{
		Store: store, Cache: strategyCache, Cfg: cfg, Report: reporter,
		PairParams: pairParamsFrom(cfg), SignalParams: signalParamsFrom(cfg),
	}

	ctx, stop := notifyContext()
	defer stop()
	return driver.Run(ctx)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, store, err := loadConfigAndStore()
	if err != nil {
		return err
	}

	ctx, stop := notifyContext()
	defer stop()

	matrix, err := store.AlignClose(ctx, cfg.Symbols, cfg.Timeframe, tailBars)
	if err != nil {
		return fmt.Errorf("aligning close prices: %w", err)
	}

	btCfg := backtest.Config{
		PairParams:   pairParamsFrom(cfg),
		SignalParams: signalParamsFrom(cfg),
		PortParams: backtest.Params{
			InitialCapital:           cfg.InitialCapital,
			MaxConcurrentPairs:       cfg.MaxConcurrentPairs,
			TradeNotionalPerPair:     cfg.TradeNotionalPerPair,
			FixedTheoreticalNotional: cfg.FixedTheoreticalNotional,
			TransactionCostBps:       cfg.TransactionCostBps,
			AnnualBorrowCostPct:      cfg.AnnualBorrowCostPct,
		},
		FormationPeriod: cfg.FormationPeriodDays,
		RecalcPeriod:    cfg.PairRecalcPeriodDays,
		DaysPerBar:      1.0,
	}

	result := backtest.Run(matrix, btCfg)

	var ledger *btgormcache.Ledger
	if cfg.CandleCachePath != "" {
		l, err := btgormcache.Open("backtest_" + cfg.CandleCachePath)
		if err != nil {
			log.Printf("[BacktestLab] ledger unavailable, continuing without it: %v", err)
		} else {
			ledger = l
			log.Printf("[BacktestLab] ledger opened backtest_%s", cfg.CandleCachePath)
		}
	}

	runID := backtest.RunID()
	for _, p := range []*backtest.Portfolio{result.Realistic, result.Theoretical} {
		fmt.Println(backtest.Summary(p.Name, p, cfg.InitialCapital))
		path := csvOutDir + "/" + backtest.OutputFileName(cfg.OutputFileName, runID, p.Name)
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		if err := backtest.WriteCSV(f, p.Closed); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", path, err)
		}
		f.Close()

		if ledger != nil {
			if err := ledger.RecordRun(runID, p, cfg.InitialCapital); err != nil {
				log.Printf("[BacktestLab] failed to persist %s run to ledger: %v", p.Name, err)
			}
		}
	}
	return nil
}

// backtestRunner adapts the backtest package to report.BacktestRunner
// for the API's POST /backtest trigger.
type backtestRunner struct {
	cfg   config.Config
	store *candles.Store
}

func (r *backtestRunner) RunBacktest() (any, error) {
	ctx := context.Background()
	matrix, err := r.store.AlignClose(ctx, r.cfg.Symbols, r.cfg.Timeframe, 2000)
	if err != nil {
		return nil, err
	}
	btCfg := backtest.Config{
		PairParams:   pairParamsFrom(r.cfg),
		SignalParams: signalParamsFrom(r.cfg),
		PortParams: backtest.Params{
			InitialCapital:           r.cfg.InitialCapital,
			MaxConcurrentPairs:       r.cfg.MaxConcurrentPairs,
			TradeNotionalPerPair:     r.cfg.TradeNotionalPerPair,
			FixedTheoreticalNotional: r.cfg.FixedTheoreticalNotional,
			TransactionCostBps:       r.cfg.TransactionCostBps,
			AnnualBorrowCostPct:      r.cfg.AnnualBorrowCostPct,
		},
		FormationPeriod: r.cfg.FormationPeriodDays,
		RecalcPeriod:    r.cfg.PairRecalcPeriodDays,
		DaysPerBar:      1.0,
	}
	result := backtest.Run(matrix, btCfg)
	return map[string]any{
		"realistic_trades":   len(result.Realistic.Closed),
		"theoretical_trades": len(result.Theoretical.Closed),
		"realistic_win_rate": backtest.MechanicalWinRate(result.Realistic.Closed),
	}, nil
}

func serveMetrics(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("metrics server stopped: %v", err)
	}
}

func serveReportAPI(addr string, reporter *report.Server) {
	if addr == "" {
		return
	}
	r := gin.Default()
	reporter.Routes(r)
	if err := r.Run(addr); err != nil {
		log.Printf("report server stopped: %v", err)
	}
}
