package entities

// Metadata is the open key/value payload carried by messages, conversations
// and channel configs. Consumers read specific keys through the typed
// accessors below instead of indexing the map directly.
type Metadata map[string]any

func (m Metadata) String(key, def string) string {
	if m == nil {
		return def
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return def
}

func (m Metadata) Int(key string, def int) int {
	if m == nil {
		return def
	}
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		// JSON numbers decode as float64.
		return int(v)
	}
	return def
}

func (m Metadata) Bool(key string, def bool) bool {
	if m == nil {
		return def
	}
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}
