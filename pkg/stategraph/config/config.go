package config

import (
	"time"
)

// Config wraps a map[string]any for typed value extraction.
// Accessors return the default when the key is missing or the value has the
// wrong type.
type Config struct {
	data map[string]any
}

// New creates a Config from data. A nil map yields an empty Config.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

func (c Config) String(key, defaultVal string) string {
	if s, ok := c.data[key].(string); ok {
		return s
	}
	return defaultVal
}

// Duration accepts a time.ParseDuration string, a number of seconds, or a
// time.Duration.
func (c Config) Duration(key string, defaultVal time.Duration) time.Duration {
	switch val := c.data[key].(type) {
	case string:
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	case float64:
		return time.Duration(val * float64(time.Second))
	case int:
		return time.Duration(val) * time.Second
	case int64:
		return time.Duration(val) * time.Second
	case time.Duration:
		return val
	}
	return defaultVal
}

func (c Config) Bool(key string, defaultVal bool) bool {
	if b, ok := c.data[key].(bool); ok {
		return b
	}
	return defaultVal
}

// Int accepts int, int64, and float64 values without a fractional part.
func (c Config) Int(key string, defaultVal int) int {
	switch val := c.data[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	}
	return defaultVal
}

// Has reports whether key is present.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Merge returns a Config with other's keys layered over c's.
func (c Config) Merge(other Config) Config {
	out := make(map[string]any, len(c.data)+len(other.data))
	for k, v := range c.data {
		out[k] = v
	}
	for k, v := range other.data {
		out[k] = v
	}
	return Config{data: out}
}
