package config

import (
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultLockoutDuration = 15 * time.Minute

var lockoutUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
}

// ParseLockoutDuration parses "<int><s|m|h|d>" such as "30s" or "15m".
// Anything else, including zero, yields DefaultLockoutDuration.
func ParseLockoutDuration(s string) time.Duration {
	d, ok := parseLockout(s)
	if !ok {
		log.Warn().Str("value", s).Dur("fallback", DefaultLockoutDuration).Msg("invalid lockout duration, using default")
		return DefaultLockoutDuration
	}

	return d
}

func parseLockout(s string) (time.Duration, bool) {
	if len(s) < 2 {
		return 0, false
	}

	unit, ok := lockoutUnits[s[len(s)-1]]
	if !ok {
		return 0, false
	}

	digits := s[:len(s)-1]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 || n > int64(1<<62)/int64(unit) {
		return 0, false
	}

	return time.Duration(n) * unit, true
}
