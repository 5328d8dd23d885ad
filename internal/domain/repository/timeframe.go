package repository

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedGranularity = errors.New("unsupported period/interval")

// approximate span of each period in days; 0 means unbounded
var periodDays = map[string]int{
	"1d": 1, "5d": 5, "1mo": 31, "3mo": 92, "6mo": 183, "ytd": 366,
	"1y": 366, "2y": 730, "5y": 1827, "10y": 3653, "max": 0,
}

// largest period in days each interval accepts; 0 means any period
var intervalLimit = map[string]int{
	"1m": 7, "2m": 60, "5m": 60, "15m": 60, "30m": 60, "90m": 60,
	"60m": 730, "1h": 730,
	"1d": 0, "5d": 0, "1wk": 0, "1mo": 0, "3mo": 0,
}

// IsValidPeriod returns true if p is a period the provider understands.
func IsValidPeriod(p string) bool {
	_, ok := periodDays[p]
	return ok
}

// IsValidInterval returns true if i is an interval the provider understands.
func IsValidInterval(i string) bool {
	_, ok := intervalLimit[i]
	return ok
}

// ValidateGranularity checks that the provider serves interval over period.
func ValidateGranularity(period, interval string) error {
	days, ok := periodDays[period]
	if !ok {
		return fmt.Errorf("%w: unknown period %q", ErrUnsupportedGranularity, period)
	}
	limit, ok := intervalLimit[interval]
	if !ok {
		return fmt.Errorf("%w: unknown interval %q", ErrUnsupportedGranularity, interval)
	}
	if limit == 0 {
		return nil
	}
	if days == 0 || days > limit {
		return fmt.Errorf("%w: interval %s only covers %d days, period %s is longer", ErrUnsupportedGranularity, interval, limit, period)
	}
	return nil
}

// NormalizeGranularity trims and lower-cases user input, falling back to defaults when empty.
func NormalizeGranularity(period, interval, defPeriod, defInterval string) (string, string) {
	period = strings.ToLower(strings.TrimSpace(period))
	interval = strings.ToLower(strings.TrimSpace(interval))
	if period == "" {
		period = defPeriod
	}
	if interval == "" {
		interval = defInterval
	}
	return period, interval
}
