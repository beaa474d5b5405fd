// Package utils provides small helper functions shared across the limiter.
//
// This package currently covers window-duration parsing and formatting.
// Window strings arrive from environment configuration and are parsed once
// at startup; everything downstream works with time.Duration.
package utils

import (
	"fmt"
	"strconv"
	"time"
)

// ParseWindow parses a rate-limit window specification.
//
// Accepted forms:
//   - Standard Go durations: "30s", "1m", "2h", "1.5m", "1h30m"
//   - Days: "1d", "7d" (converted to hours)
//   - Weeks: "1w", "4w" (converted to hours)
//   - A bare integer, taken as milliseconds: "60000" is one minute
//
// Anything else, including an unrecognized unit suffix, is a format error.
//
// Examples:
//
//	ParseWindow("30s")   // 30 * time.Second
//	ParseWindow("1.5m")  // 90 * time.Second
//	ParseWindow("500")   // 500 * time.Millisecond
//	ParseWindow("1d")    // 24 * time.Hour
func ParseWindow(s string) (time.Duration, error) {
	// Bare integers are millisecond counts
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}

	// Standard Go duration parsing
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	// Support for days
	var days int
	if n, err := fmt.Sscanf(s, "%dd", &days); err == nil && n == 1 {
		return time.Duration(days) * 24 * time.Hour, nil
	}

	// Support for weeks
	var weeks int
	if n, err := fmt.Sscanf(s, "%dw", &weeks); err == nil && n == 1 {
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	return 0, fmt.Errorf("invalid duration: %s", s)
}

// FormatDuration formats a duration in a human-readable way.
//
// Automatically selects the most appropriate unit based on the duration magnitude:
//   - < 1 minute: seconds with no decimal places
//   - < 1 hour: minutes with no decimal places
//   - < 24 hours: hours with 1 decimal place
//   - >= 24 hours: days with 1 decimal place
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%.1fh", d.Hours())
	}
	return fmt.Sprintf("%.1fd", d.Hours()/24)
}
