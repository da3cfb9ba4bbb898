package scenario

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrEmptySchedule is returned when no session is scheduled.
	ErrEmptySchedule = errors.New("schedule is empty")
	// ErrScheduleLength is returned when durations and interarrivals differ in length.
	ErrScheduleLength = errors.New("durations and interarrivals must have the same length")
	// ErrNegativeValue is returned for a negative or non-finite entry.
	ErrNegativeValue = errors.New("schedule values must be non-negative")
	// ErrValueOutOfRange is returned for an entry too large for a time.Duration.
	ErrValueOutOfRange = errors.New("schedule value out of range")
)

// maxSeconds is the largest whole number of seconds a time.Duration holds.
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

// Entry is one scheduled session: how long it runs and how long to idle
// after its browser is closed.
type Entry struct {
	Duration     time.Duration
	Interarrival time.Duration
}

// Schedule is consumed in order, one browser session per entry.
type Schedule []Entry

// ParseSchedule pairs two comma-separated lists of seconds, e.g. "30,15" and
// "2,2".
func ParseSchedule(durations, interarrivals string) (Schedule, error) {
	ds, err := parseSeconds("durations", durations)
	if err != nil {
		return nil, err
	}
	is, err := parseSeconds("interarrivals", interarrivals)
	if err != nil {
		return nil, err
	}
	if len(ds) != len(is) {
		return nil, fmt.Errorf("%w: %d durations, %d interarrivals", ErrScheduleLength, len(ds), len(is))
	}

	s := make(Schedule, len(ds))
	for i := range ds {
		s[i] = Entry{Duration: ds[i], Interarrival: is[i]}
	}
	return s, nil
}

// Total is the nominal wall time of the schedule, saturating at the largest
// time.Duration.
func (s Schedule) Total() time.Duration {
	var total time.Duration
	for _, e := range s {
		for _, d := range [...]time.Duration{e.Duration, e.Interarrival} {
			if total > math.MaxInt64-d {
				return math.MaxInt64
			}
			total += d
		}
	}
	return total
}

func parseSeconds(name, list string) ([]time.Duration, error) {
	if strings.TrimSpace(list) == "" {
		return nil, fmt.Errorf("%w: no %s given", ErrEmptySchedule, name)
	}
	fields := strings.Split(list, ",")
	out := make([]time.Duration, 0, len(fields))
	for _, f := range fields {
		tok := strings.TrimSpace(f)
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s value %q: %w", name, tok, err)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s value %q", ErrNegativeValue, name, tok)
		}
		if v > maxSeconds {
			return nil, fmt.Errorf("%w: %s value %q exceeds %.0f seconds", ErrValueOutOfRange, name, tok, maxSeconds)
		}
		out = append(out, time.Duration(v*float64(time.Second)))
	}
	return out, nil
}
