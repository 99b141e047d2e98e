package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FromFile loads a .yaml, .yml or .json file.
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Config{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return New(m), nil
}

func FromJSON(data []byte) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse json: %w", err)
	}
	return New(m), nil
}

// FromEnv builds a Config from environment variables. keys maps config keys
// to variable names; unset or empty variables are skipped. Values are typed
// the way YAML types a scalar, so "5" is an int and "true" a bool.
func FromEnv(keys map[string]string) Config {
	m := make(map[string]any)
	for key, name := range keys {
		raw, ok := os.LookupEnv(name)
		if !ok || raw == "" {
			continue
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
			v = raw
		}
		if _, isMap := v.(map[string]any); isMap {
			v = raw
		}
		m[key] = v
	}
	return New(m)
}
