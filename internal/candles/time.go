package candles

import "time"

func unixSecToTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
