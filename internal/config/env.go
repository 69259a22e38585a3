package config

import (
	"os"
	"strconv"
	"time"
)

// stringOr returns the named variable, or def if unset or empty.
func stringOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// intOr parses the named variable as a decimal integer. Unset, empty or
// malformed values return def.
func intOr(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// boolOr parses the named variable with strconv.ParseBool.
func boolOr(name string, def bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// durationOr parses the named variable as a time.Duration.
func durationOr(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
