package generic

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// MINUTE - Minute-granularity instant (this IS a minute-based allocation system)
// =============================================================================

// Minute is an instant expressed as whole minutes since a reference origin.
// The API uses the business day's midnight as origin; the engine does not care.
type Minute int

// ParseClock parses "HH:MM" into minutes since midnight.
// Hours may exceed 23 so that past-midnight closes ("25:30") stay ordered.
func ParseClock(s string) (Minute, error) {
	s = strings.TrimSpace(s)
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock %q: expected HH:MM", s)
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("invalid clock %q: bad hours", s)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil || minutes < 0 || minutes > 59 || len(m) != 2 {
		return 0, fmt.Errorf("invalid clock %q: bad minutes", s)
	}
	return Minute(hours*60 + minutes), nil
}

// MustParseClock is ParseClock for literals in tests and scenarios.
func MustParseClock(s string) Minute {
	m, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Clock formats the minute as "HH:MM".
func (m Minute) Clock() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%02d:%02d", sign, int(m)/60, int(m)%60)
}

func (m Minute) String() string { return m.Clock() }

func (m Minute) Before(other Minute) bool { return m < other }
func (m Minute) After(other Minute) bool  { return m > other }

// Add returns m shifted by n minutes.
func (m Minute) Add(n int) Minute { return m + Minute(n) }
