package storage

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// Options is the opaque key/value configuration persisted with a backend.
// Each provider parses the keys it understands at upload time.
type Options map[string]any

// String returns the option as text. Absent and null values yield "";
// non-string values are encoded as JSON.
func (o Options) String(key string) string {
	raw, ok := o[key]
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprint(raw)
	}
	return string(data)
}

// Bool reads a boolean option. Strings such as "true" and "1" are accepted.
func (o Options) Bool(key string) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			return true
		}
	case float64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

// Value builds the credential indirection for a pair of keys: the direct
// key wins when it holds a non-empty value, otherwise envKey names an
// environment variable to read at resolution time.
func (o Options) Value(direct, envKey string) ConfigValue {
	if literal := o.String(direct); literal != "" {
		return ConfigValue{Literal: literal}
	}
	if envKey != "" {
		if name := strings.TrimSpace(o.String(envKey)); name != "" {
			return ConfigValue{EnvName: name}
		}
	}
	return ConfigValue{}
}

// ConfigValue is either a literal or the name of an environment variable.
type ConfigValue struct {
	Literal string
	EnvName string
}

// IsZero reports whether neither a literal nor an env name is set.
func (v ConfigValue) IsZero() bool {
	return v.Literal == "" && v.EnvName == ""
}

// Resolve returns the literal, or the env variable's value ("" when unset).
func (v ConfigValue) Resolve(lookup LookupFunc) string {
	if v.Literal != "" {
		return v.Literal
	}
	if v.EnvName == "" {
		return ""
	}
	if lookup == nil {
		lookup = EnvLookup
	}
	val, _ := lookup(v.EnvName)
	return val
}

// CleanKey normalises a logical key and rejects keys that are absolute or
// climb out of the provider root.
func CleanKey(key string) (string, error) {
	key = strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	if key == "" {
		return "", fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q escapes the storage root", ErrInvalidKey, key)
	}
	return cleaned, nil
}
