package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "none"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestKeyCommand(t *testing.T) {
	t.Setenv("MEMOIZE_SITE_DOMAIN", "example.com")
	out, err := run(t, "key", "home page")
	require.NoError(t, err)
	assert.Equal(t, "example.com:home%20page\n", out)
}

func TestPutGetInvalidate(t *testing.T) {
	backend := "sqlite://" + filepath.Join(t.TempDir(), "cache.db")

	_, err := run(t, "--backend", backend, "put", "greeting", "hello")
	require.NoError(t, err)
	_, err = run(t, "--backend", backend, "put", "--large", "--ttl", "1h", "report", strings.Repeat("r", 100))
	require.NoError(t, err)

	out, err := run(t, "--backend", backend, "get", "greeting")
	require.NoError(t, err)
	assert.Equal(t, "\"hello\"\n", out)

	out, err = run(t, "--backend", backend, "get", "--large", "report")
	require.NoError(t, err)
	assert.Contains(t, out, strings.Repeat("r", 100))

	out, err = run(t, "--backend", backend, "invalidate", "greeting")
	require.NoError(t, err)
	assert.Equal(t, "invalidated greeting\n", out)

	out, err = run(t, "--backend", backend, "invalidate", "greeting")
	require.NoError(t, err)
	assert.Equal(t, "greeting was not cached\n", out)

	_, err = run(t, "--backend", backend, "get", "greeting")
	assert.ErrorContains(t, err, "not cached")
}

func TestUnknownBackend(t *testing.T) {
	_, err := run(t, "--backend", "postgres://localhost", "get", "k")
	assert.Error(t, err)
}

func TestSerialCommand(t *testing.T) {
	static := t.TempDir()
	locale := t.TempDir()
	mtime := time.Unix(1_700_000_000, 0)
	for _, path := range []string{filepath.Join(static, "app.css"), filepath.Join(locale, "app.mo")} {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
	t.Setenv("MEMOIZE_STATIC_ROOT", static)
	t.Setenv("MEMOIZE_TEMPLATE_DIRS", t.TempDir())

	out, err := run(t, "serial", "--locale", locale)
	require.NoError(t, err)
	assert.Equal(t, "media=1700000000\ntemplates=0\nlocale=1700000000\n", out)
}

func TestTelemetryExported(t *testing.T) {
	var traces, logs atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/traces":
			traces.Add(1)
		case "/v1/logs":
			logs.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := run(t, "--otlp-url", server.URL, "put", "traced", "value")
	require.NoError(t, err)
	assert.Equal(t, int32(1), traces.Load())
	assert.Equal(t, int32(1), logs.Load())

	_, err = run(t, "--otlp-url", server.URL, "--otlp-log-level", "error", "put", "traced", "value")
	require.NoError(t, err)
	assert.Equal(t, int32(1), logs.Load())
}
