// Package env reads raw environment variables for the few settings needed
// before config parsing runs (the logger bootstraps from it).
package env

import (
	"os"
	"strconv"
)

// Get returns the value of the environment variable or the fallback when unset.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// Bool parses the variable as a boolean, returning the fallback when unset or
// malformed.
func Bool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
