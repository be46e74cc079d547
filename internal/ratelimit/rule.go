// Package ratelimit enforces windowed request limits keyed by client identity.
package ratelimit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Rule allows Limit hits per Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

// String renders the rule as "N/unit" where possible.
func (r Rule) String() string {
	for _, u := range units {
		if r.Window == u.d {
			return fmt.Sprintf("%d/%s", r.Limit, u.name)
		}
	}
	return fmt.Sprintf("%d/%s", r.Limit, r.Window)
}

var units = []struct {
	name string
	d    time.Duration
}{
	{"second", time.Second},
	{"minute", time.Minute},
	{"hour", time.Hour},
	{"day", 24 * time.Hour},
}

// ParseRules parses a comma-separated list such as "200/day,50/hour".
// Units are second, minute, hour and day; a plural "s" is accepted.
func ParseRules(list string) ([]Rule, error) {
	var rules []Rule

	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		count, unit, ok := strings.Cut(part, "/")
		if !ok {
			return nil, fmt.Errorf("invalid rate limit %q: expected N/unit", part)
		}

		limit, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("invalid rate limit %q: count must be a positive integer", part)
		}

		window, err := parseUnit(strings.TrimSpace(unit))
		if err != nil {
			return nil, fmt.Errorf("invalid rate limit %q: %w", part, err)
		}

		rules = append(rules, Rule{Limit: limit, Window: window})
	}

	return rules, nil
}

func parseUnit(unit string) (time.Duration, error) {
	unit = strings.TrimSuffix(strings.ToLower(unit), "s")
	for _, u := range units {
		if unit == u.name {
			return u.d, nil
		}
	}
	return 0, fmt.Errorf("unknown unit %q", unit)
}
