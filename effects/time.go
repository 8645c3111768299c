package effects

import (
	"time"

	"github.com/rickb777/date/v2/timespan"
)

type TimeSpan = timespan.TimeSpan

// Since is the span from start to now.
func Since(start time.Time) TimeSpan {
	return timespan.BetweenTimes(start, time.Now())
}
