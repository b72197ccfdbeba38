package logger

// WithKV returns a logger carrying a single metadata key/value pair.
func WithKV(l Logger, key string, value interface{}) Logger {
	return l.With(map[string]interface{}{key: value})
}
