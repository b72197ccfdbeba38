package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, LevelWarn)

	log.Debug("hidden %s", "debug")
	log.Info("hidden info")
	log.Warn("shown %s", "warning")
	log.Error("shown error")

	out := ansiColorStripper.ReplaceAllString(buf.String(), "")
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN]  shown warning")
	assert.Contains(t, out, "[ERROR] shown error")
	assert.True(t, log.IsLevelEnabled(LevelError))
	assert.False(t, log.IsLevelEnabled(LevelInfo))
}

func TestConsoleLoggerNone(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, LevelNone)
	log.Error("nothing")
	assert.Empty(t, buf.String())
	assert.False(t, log.IsLevelEnabled(LevelError))
}

func TestConsoleLoggerPrefixAndMetadata(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriterLogger(&buf, LevelTrace).WithPrefix("[memoize]").WithPrefix("[memoize]")
	log = WithKV(log, "key", "abc")
	log.Info("hello")

	out := ansiColorStripper.ReplaceAllString(buf.String(), "")
	assert.Contains(t, out, "[INFO]  [memoize] hello {\"key\":\"abc\"}")
}

func TestConsoleLoggerSink(t *testing.T) {
	var buf, sink bytes.Buffer
	log := NewWriterLogger(&buf, LevelInfo).(*consoleLogger)
	log.SetSink(&sink)
	log.Info("to sink")
	assert.Contains(t, sink.String(), "[INFO]  to sink")
	assert.NotContains(t, sink.String(), "\x1b[")
}
