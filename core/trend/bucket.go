package trend

import (
	"time"

	"github.com/siherrmann/newsgraph/model"
)

// BucketStart returns the start of the calendar bucket containing t in UTC.
// Days start at midnight, weeks on Monday and months on the 1st.
func BucketStart(t time.Time, period model.Period) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	switch period {
	case model.PeriodWeek:
		sinceMonday := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -sinceMonday)
	case model.PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

// AddBuckets moves a bucket start by n buckets
func AddBuckets(start time.Time, period model.Period, n int) time.Time {
	switch period {
	case model.PeriodWeek:
		return start.AddDate(0, 0, 7*n)
	case model.PeriodMonth:
		return start.AddDate(0, n, 0)
	default:
		return start.AddDate(0, 0, n)
	}
}
