package candles

// AggregateCandles combines consecutive candles by the given factor.
// Open=first.Open, High=max(High), Low=min(Low), Close=last.Close,
// Volume=sum(Volume). Grounded on the teacher's aggregateOHLCV.
func AggregateCandles(bars []Candle, factor int) []Candle {
	if factor <= 1 || len(bars) == 0 {
		return bars
	}
	out := make([]Candle, 0, len(bars)/factor+1)
	for i := 0; i < len(bars); i += factor {
		end := i + factor
		if end > len(bars) {
			end = len(bars)
		}
		chunk := bars[i:end]
		agg := Candle{
			Timestamp: chunk[0].Timestamp,
			Open:      chunk[0].Open,
			High:      chunk[0].High,
			Low:       chunk[0].Low,
			Close:     chunk[len(chunk)-1].Close,
		}
		for _, bar := range chunk {
			if bar.High > agg.High {
				agg.High = bar.High
			}
			if bar.Low < agg.Low {
				agg.Low = bar.Low
			}
			agg.Volume += bar.Volume
		}
		out = append(out, agg)
	}
	return out
}

// WeeklyAnchor aggregates daily bars into weekly ones, one per run of
// consecutive bars in the same ISO week. Each weekly bar carries the
// timestamp of its week's last trading day rather than a fixed weekday
// (calendar weeks can be short around holidays), with the same
// open/high/low/close/volume rules as AggregateCandles.
func WeeklyAnchor(bars []Candle) []Candle {
	if len(bars) == 0 {
		return bars
	}
	var out []Candle
	start := 0
	_, startWeek := isoWeek(bars[0].Timestamp)
	for i := 1; i <= len(bars); i++ {
		var sameWeek bool
		if i < len(bars) {
			_, w := isoWeek(bars[i].Timestamp)
			sameWeek = w == startWeek
		}
		if !sameWeek {
			chunk := bars[start:i]
			agg := Candle{
				Timestamp: chunk[len(chunk)-1].Timestamp,
				Open:      chunk[0].Open,
				High:      chunk[0].High,
				Low:       chunk[0].Low,
				Close:     chunk[len(chunk)-1].Close,
			}
			for _, bar := range chunk {
				if bar.High > agg.High {
					agg.High = bar.High
				}
				if bar.Low < agg.Low {
					agg.Low = bar.Low
				}
				agg.Volume += bar.Volume
			}
			out = append(out, agg)
			if i < len(bars) {
				start = i
				_, startWeek = isoWeek(bars[i].Timestamp)
			}
		}
	}
	return out
}

func isoWeek(unixSec int64) (year, week int) {
	t := unixSecToTime(unixSec)
	return t.ISOWeek()
}
