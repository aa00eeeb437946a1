package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// lookup parses the variable named key, falling back to def when it is unset
// or does not parse.
func lookup[T any](key string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func getEnv(key, defaultVal string) string {
	return lookup(key, defaultVal, func(s string) (string, error) { return s, nil })
}

func getEnvAsInt(key string, defaultVal int) int {
	return lookup(key, defaultVal, strconv.Atoi)
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	return lookup(key, defaultVal, func(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) })
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	return lookup(key, defaultVal, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func getEnvAsBool(key string, defaultVal bool) bool {
	return lookup(key, defaultVal, strconv.ParseBool)
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	return lookup(key, defaultVal, time.ParseDuration)
}

// getEnvAsStringSlice splits a comma separated list, dropping blanks. An
// empty result falls back to defaults.
func getEnvAsStringSlice(key string, defaults []string) []string {
	out := lookup(key, []string(nil), func(s string) ([]string, error) {
		var parts []string
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				parts = append(parts, p)
			}
		}
		return parts, nil
	})
	if len(out) == 0 {
		return append([]string(nil), defaults...)
	}
	return out
}
