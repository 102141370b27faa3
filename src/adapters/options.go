package adapters

// Options is the nested option set passed to every adapter operation.
// Values are resolved by the orchestrator before a call starts; adapters
// never read global configuration directly.
type Options map[string]interface{}

// Merge combines base and override recursively. A key present in override
// replaces the base value, except that a nested map merges key-by-key and
// a nil override value never clobbers a concrete base value.
func Merge(base, override Options) Options {
	merged := make(Options, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		if v == nil {
			continue
		}
		if subOverride, ok := toOptions(v); ok {
			if subBase, ok := toOptions(merged[k]); ok {
				merged[k] = Merge(subBase, subOverride)
				continue
			}
		}
		merged[k] = v
	}
	return merged
}

// MergeAll merges layers in precedence order, lowest first
func MergeAll(layers ...Options) Options {
	merged := Options{}
	for _, layer := range layers {
		merged = Merge(merged, layer)
	}
	return merged
}

func toOptions(v interface{}) (Options, bool) {
	switch m := v.(type) {
	case Options:
		return m, true
	case map[string]interface{}:
		return Options(m), true
	default:
		return nil, false
	}
}

// Clone returns a shallow-nested copy safe to mutate at the top level
func (o Options) Clone() Options {
	return Merge(o, nil)
}

// String returns the string value for key, or fallback when absent or
// empty
func (o Options) String(key, fallback string) string {
	if v, ok := o[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// Int returns the integer value for key, tolerating the numeric types
// YAML and JSON decoding produce
func (o Options) Int(key string, fallback int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// Float returns the float value for key
func (o Options) Float(key string, fallback float64) float64 {
	switch v := o[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

// Bool returns the boolean value for key
func (o Options) Bool(key string, fallback bool) bool {
	if v, ok := o[key].(bool); ok {
		return v
	}
	return fallback
}

// Sub returns the nested Options under key, or an empty set
func (o Options) Sub(key string) Options {
	if sub, ok := toOptions(o[key]); ok {
		return sub
	}
	return Options{}
}
