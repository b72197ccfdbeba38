package logger

import (
	"fmt"
	"strings"
	"sync"
)

type TestLogEntry struct {
	Severity  string
	Message   string
	Arguments []interface{}
	Metadata  map[string]interface{}
}

// Formatted returns the message with its arguments applied.
func (e TestLogEntry) Formatted() string {
	if len(e.Arguments) == 0 {
		return e.Message
	}
	return fmt.Sprintf(e.Message, e.Arguments...)
}

type testLogStore struct {
	mu      sync.Mutex
	entries []TestLogEntry
}

// TestLogger records every entry in memory. Loggers derived with With or
// WithPrefix share the parent's entries.
type TestLogger struct {
	metadata map[string]interface{}
	store    *testLogStore
	child    Logger
}

var _ Logger = (*TestLogger)(nil)

// NewTestLogger returns a new Logger instance useful for testing
func NewTestLogger() *TestLogger {
	return &TestLogger{store: &testLogStore{}}
}

func (c *TestLogger) With(metadata map[string]interface{}) Logger {
	kv := make(map[string]interface{}, len(c.metadata)+len(metadata))
	for k, v := range c.metadata {
		kv[k] = v
	}
	for k, v := range metadata {
		kv[k] = v
	}
	l := &TestLogger{metadata: kv, store: c.store, child: c.child}
	if l.child != nil {
		l.child = l.child.With(metadata)
	}
	return l
}

func (c *TestLogger) WithPrefix(prefix string) Logger {
	if c.child == nil {
		return c
	}
	return &TestLogger{metadata: c.metadata, store: c.store, child: c.child.WithPrefix(prefix)}
}

// Stack returns a logger recording into the same entries that also logs to next.
func (c *TestLogger) Stack(next Logger) Logger {
	return &TestLogger{metadata: c.metadata, store: c.store, child: next}
}

func (c *TestLogger) IsLevelEnabled(level LogLevel) bool {
	return true
}

func (c *TestLogger) log(severity string, level LogLevel, msg string, args ...interface{}) {
	c.store.mu.Lock()
	c.store.entries = append(c.store.entries, TestLogEntry{severity, msg, args, c.metadata})
	c.store.mu.Unlock()
	forward(c.child, level, msg, args...)
}

func (c *TestLogger) Trace(msg string, args ...interface{}) { c.log("TRACE", LevelTrace, msg, args...) }
func (c *TestLogger) Debug(msg string, args ...interface{}) { c.log("DEBUG", LevelDebug, msg, args...) }
func (c *TestLogger) Info(msg string, args ...interface{})  { c.log("INFO", LevelInfo, msg, args...) }
func (c *TestLogger) Warn(msg string, args ...interface{})  { c.log("WARNING", LevelWarn, msg, args...) }
func (c *TestLogger) Error(msg string, args ...interface{}) { c.log("ERROR", LevelError, msg, args...) }

// Fatal records the entry but does not exit, so tests can assert on it.
func (c *TestLogger) Fatal(msg string, args ...interface{}) { c.log("FATAL", LevelError, msg, args...) }

// Logs returns a copy of the recorded entries.
func (c *TestLogger) Logs() []TestLogEntry {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return append([]TestLogEntry(nil), c.store.entries...)
}

// Find returns the recorded entries of the given severity whose formatted
// message contains substr.
func (c *TestLogger) Find(severity, substr string) []TestLogEntry {
	var found []TestLogEntry
	for _, e := range c.Logs() {
		if e.Severity == severity && strings.Contains(e.Formatted(), substr) {
			found = append(found, e)
		}
	}
	return found
}
