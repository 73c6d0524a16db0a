package duration

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is returned for any duration string that cannot be parsed.
var ErrInvalid = errors.New("invalid duration")

// MaxSeconds is the parse ceiling, one hundred years. Totals above it are
// rejected so downstream expiry math can never overflow.
const MaxSeconds int64 = 3_155_760_000

const (
	secondsPerMinute int64 = 60
	secondsPerHour   int64 = 3600
	secondsPerDay    int64 = 86400
)

// Parse converts a compact duration such as "1d2h10m5s" into total seconds.
// Units are d, h, m and s, in any order; repeated units sum. The empty
// string is an error: callers represent "no duration given" by not calling
// Parse at all.
func Parse(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalid)
	}

	var total int64
	var count int64
	haveDigits := false

	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			count = count*10 + int64(r-'0')
			if count > MaxSeconds {
				return 0, fmt.Errorf("%w: %q exceeds %d seconds", ErrInvalid, s, MaxSeconds)
			}
			haveDigits = true
		case r == 'd' || r == 'h' || r == 'm' || r == 's':
			if !haveDigits {
				return 0, fmt.Errorf("%w: unit %q has no count in %q", ErrInvalid, string(r), s)
			}
			total += count * unitSeconds(r)
			if total > MaxSeconds {
				return 0, fmt.Errorf("%w: %q exceeds %d seconds", ErrInvalid, s, MaxSeconds)
			}
			count = 0
			haveDigits = false
		default:
			return 0, fmt.Errorf("%w: unexpected %q in %q", ErrInvalid, string(r), s)
		}
	}

	if haveDigits {
		return 0, fmt.Errorf("%w: trailing count without unit in %q", ErrInvalid, s)
	}

	return total, nil
}

func unitSeconds(r rune) int64 {
	switch r {
	case 'd':
		return secondsPerDay
	case 'h':
		return secondsPerHour
	case 'm':
		return secondsPerMinute
	default:
		return 1
	}
}

// Format renders seconds in the canonical form Parse accepts, omitting zero
// components. Format and Parse round-trip: Parse(Format(n)) == n.
func Format(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}

	var b strings.Builder
	if d := seconds / secondsPerDay; d > 0 {
		fmt.Fprintf(&b, "%dd", d)
		seconds -= d * secondsPerDay
	}
	if h := seconds / secondsPerHour; h > 0 {
		fmt.Fprintf(&b, "%dh", h)
		seconds -= h * secondsPerHour
	}
	if m := seconds / secondsPerMinute; m > 0 {
		fmt.Fprintf(&b, "%dm", m)
		seconds -= m * secondsPerMinute
	}
	if seconds > 0 {
		fmt.Fprintf(&b, "%ds", seconds)
	}
	return b.String()
}
