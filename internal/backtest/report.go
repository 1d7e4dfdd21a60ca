package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// csvHeader is the trade-log column order. Entry and exit are recorded
// as bar indices into the aligned matrix (entry_bar, exit_bar), not as
// timestamps.
var csvHeader = []string{
	"serial_number", "pair", "direction", "entry_bar", "exit_bar", "days_held",
	"z_score_entry", "z_score_exit", "exit_reason",
	"s1_symbol", "s1_pos", "s1_entry", "s1_qty",
	"s2_symbol", "s2_pos", "s2_entry", "s2_qty",
	"gross_pnl", "transaction_costs", "borrow_costs", "net_pnl",
	"hedge_ratio", "half_life",
}

// WriteCSV renders a portfolio's closed trades as a CSV trade log.
func WriteCSV(w io.Writer, trades []Trade) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range trades {
		row := []string{
			strconv.Itoa(t.SerialNumber), t.Pair, t.Direction,
			strconv.Itoa(t.EntryBar), strconv.Itoa(t.ExitBar), strconv.Itoa(t.DaysHeld),
			formatFloat(t.ZScoreEntry), formatFloat(t.ZScoreExit), t.ExitReason,
			t.S1Symbol, t.S1Pos, formatFloat(t.S1Entry), strconv.Itoa(t.S1Qty),
			t.S2Symbol, t.S2Pos, formatFloat(t.S2Entry), strconv.Itoa(t.S2Qty),
			formatFloat(t.GrossPnL), formatFloat(t.TransactionCosts), formatFloat(t.BorrowCosts), formatFloat(t.NetPnL),
			formatFloat(t.HedgeRatio), formatFloat(t.HalfLife),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}

// RunID mints a fresh run identifier for tagging output filenames,
// grounded on the teacher's use of google/uuid for arena/run IDs.
func RunID() string {
	return uuid.NewString()
}

// OutputFileName builds "<base>_<runID>_<portfolio>.csv".
func OutputFileName(base, runID, portfolio string) string {
	return fmt.Sprintf("%s_%s_%s.csv", base, runID, portfolio)
}

// Summary renders a human-readable summary line for one portfolio, in the
// teacher's style of using go-humanize for money/commas in CLI output.
func Summary(name string, p *Portfolio, initialCapital float64) string {
	net := p.Capital - initialCapital
	return fmt.Sprintf(
		"%s: capital=%s net_pnl=%s trades=%d skipped_for_capacity=%d win_rate=%.1f%%",
		name,
		humanize.FormatFloat("#,###.##", p.Capital),
		humanize.FormatFloat("#,###.##", net),
		len(p.Closed),
		p.SkippedForCapacity,
		MechanicalWinRate(p.Closed)*100,
	)
}
