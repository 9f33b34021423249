// Package pgtypes provides conversions between PostgreSQL-specific types
// and their Go representations.
package pgtypes

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const (
	microsPerDay   = int64(24) * 60 * 60 * 1000000
	microsPerMonth = 30 * microsPerDay // approximate, fine for sync schedules
)

// IntervalToDuration converts a pgtype.Interval to a time.Duration.
// Days and months are converted to approximate durations; sync intervals
// are expected to be minutes or hours, so the approximation never matters
// in practice.
func IntervalToDuration(i pgtype.Interval) time.Duration {
	if !i.Valid {
		return 0
	}
	micros := i.Microseconds
	micros += int64(i.Days) * microsPerDay
	micros += int64(i.Months) * microsPerMonth
	return time.Duration(micros) * time.Microsecond
}

// DurationToInterval converts a time.Duration to a pgtype.Interval.
func DurationToInterval(d time.Duration) pgtype.Interval {
	return pgtype.Interval{
		Microseconds: d.Microseconds(),
		Valid:        true,
	}
}
