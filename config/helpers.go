package config

// Behavior blocks are free-form map[string]any decoded from YAML or JSON.
// The helpers below read typed values out of a block without panicking on
// missing keys or mismatched types; indexing a nil map is safe, so callers
// may pass an absent block straight through.

// GetString returns the string at key, or defaultVal when the key is
// missing or holds another type.
func GetString(cfg map[string]any, key string, defaultVal string) string {
	if s, ok := cfg[key].(string); ok {
		return s
	}
	return defaultVal
}

// GetInt returns the integer at key. YAML decodes small numbers as int and
// JSON decodes all numbers as float64, so both shapes coerce here.
func GetInt(cfg map[string]any, key string, defaultVal int) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultVal
}

// GetFloat64 returns the float at key, coercing integer-typed values.
func GetFloat64(cfg map[string]any, key string, defaultVal float64) float64 {
	switch v := cfg[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	}
	return defaultVal
}

// GetBool returns the boolean at key, or defaultVal when absent.
func GetBool(cfg map[string]any, key string, defaultVal bool) bool {
	if b, ok := cfg[key].(bool); ok {
		return b
	}
	return defaultVal
}

// GetStringSlice returns the string slice at key. YAML sequences decode as
// []any, so that shape converts element by element; a single non-string
// element rejects the whole value.
func GetStringSlice(cfg map[string]any, key string, defaultVal []string) []string {
	switch v := cfg[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return defaultVal
			}
			out = append(out, s)
		}
		return out
	}
	return defaultVal
}

// HasKey reports whether the block defines key at all, letting callers
// distinguish "absent" from "set to the zero value".
func HasKey(cfg map[string]any, key string) bool {
	_, ok := cfg[key]
	return ok
}
