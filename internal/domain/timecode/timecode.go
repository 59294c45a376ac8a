// Package timecode converts between millisecond offsets and HH:MM:SS.mmm strings.
package timecode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrNegative = errors.New("timecode: value must be non-negative")

// FromMillis formats ms as zero-padded HH:MM:SS.mmm. Hours grow past two digits
// instead of wrapping.
func FromMillis(ms int64) (string, error) {
	if ms < 0 {
		return "", fmt.Errorf("%w: %d", ErrNegative, ms)
	}
	totalSec, milli := ms/1000, ms%1000
	mins, sec := totalSec/60, totalSec%60
	hours, mins := mins/60, mins%60
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, mins, sec, milli), nil
}

// FromSeconds rounds to the nearest millisecond first.
func FromSeconds(sec float64) (string, error) {
	return FromMillis(int64(math.Round(sec * 1000)))
}

// ToMillis parses the output of FromMillis.
func ToMillis(tc string) (int64, error) {
	hms, frac, ok := strings.Cut(tc, ".")
	if !ok || len(frac) != 3 {
		return 0, fmt.Errorf("timecode %q: want HH:MM:SS.mmm", tc)
	}
	parts := strings.Split(hms, ":")
	if len(parts) != 3 || len(parts[0]) < 2 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return 0, fmt.Errorf("timecode %q: want HH:MM:SS.mmm", tc)
	}
	h, err := parseDigits(parts[0])
	if err != nil {
		return 0, fmt.Errorf("timecode %q: hours: %w", tc, err)
	}
	m, err := parseDigits(parts[1])
	if err != nil || m > 59 {
		return 0, fmt.Errorf("timecode %q: bad minutes", tc)
	}
	s, err := parseDigits(parts[2])
	if err != nil || s > 59 {
		return 0, fmt.Errorf("timecode %q: bad seconds", tc)
	}
	ms, err := parseDigits(frac)
	if err != nil {
		return 0, fmt.Errorf("timecode %q: milliseconds: %w", tc, err)
	}
	return ((h*60+m)*60+s)*1000 + ms, nil
}

func parseDigits(s string) (int64, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit %q", r)
		}
	}
	return strconv.ParseInt(s, 10, 64)
}
