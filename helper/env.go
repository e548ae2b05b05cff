package helper

import (
	"os"
	"strconv"
	"time"
)

// GetEnvString returns the value of key or def if it is unset or empty
func GetEnvString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// GetEnvInt returns the integer value of key or def if it is unset or invalid
func GetEnvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

// GetEnvFloat returns the float value of key or def if it is unset or invalid
func GetEnvFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return v
}

// GetEnvDuration parses values like "10s" or "250ms", falling back to def
func GetEnvDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}
