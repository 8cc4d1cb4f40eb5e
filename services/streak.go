// services/streak.go
package services

import (
	"log"
	"os"
	"sort"
	"strconv"
	"time"
)

// Streak holds the derived consecutive-day counters.
type Streak struct {
	Current int `json:"current"`
	Best    int `json:"best"`
}

// DefaultStreakGraceDays: a streak survives this many missed days before the
// current counter drops to zero. The exact boundary is a product decision
// ("tu n'as pas validé aujourd'hui, garde ta série"), so it is a single
// parameter rather than baked into the scan.
const DefaultStreakGraceDays = 1

// ComputeStreak rebuilds current/best streaks from the full validation
// history. Pure and deterministic: backfills and corrections stay consistent
// because nothing is maintained incrementally.
//
// Timestamps are bucketed by calendar day in loc. Current is the length of
// the run ending at today or within graceDays before it; Best is the longest
// run ever observed.
func ComputeStreak(timestamps []time.Time, today time.Time, loc *time.Location, graceDays int) Streak {
	if loc == nil {
		loc = time.UTC
	}
	if graceDays < 0 {
		graceDays = 0
	}

	daySet := make(map[int64]struct{}, len(timestamps))
	for _, ts := range timestamps {
		daySet[dayNumber(ts, loc)] = struct{}{}
	}
	if len(daySet) == 0 {
		return Streak{}
	}

	days := make([]int64, 0, len(daySet))
	for d := range daySet {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	best, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i] == days[i-1]+1 {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}

	current := 1
	for i := len(days) - 1; i > 0; i-- {
		if days[i] == days[i-1]+1 {
			current++
		} else {
			break
		}
	}
	if dayNumber(today, loc)-days[len(days)-1] > int64(graceDays) {
		current = 0
	}

	return Streak{Current: current, Best: best}
}

// dayNumber buckets a timestamp into days since epoch, in the given location.
func dayNumber(ts time.Time, loc *time.Location) int64 {
	y, m, d := ts.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// StreakLocation loads the timezone all streak math is bucketed in. One fixed
// zone for everyone keeps streaks consistent across devices.
func StreakLocation() *time.Location {
	name := os.Getenv("STREAK_TIMEZONE")
	if name == "" {
		name = "Europe/Paris"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("⚠️ [STREAK] invalid STREAK_TIMEZONE %q, falling back to UTC: %v", name, err)
		return time.UTC
	}
	return loc
}

// StreakGraceDays reads the configurable grace window.
func StreakGraceDays() int {
	v := os.Getenv("STREAK_GRACE_DAYS")
	if v == "" {
		return DefaultStreakGraceDays
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("⚠️ [STREAK] invalid STREAK_GRACE_DAYS %q, using default %d", v, DefaultStreakGraceDays)
		return DefaultStreakGraceDays
	}
	return n
}
