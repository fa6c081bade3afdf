package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseLevel verifies level names map to slog levels
func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"trace":   LevelTrace,
		"DEBUG":   LevelDebug,
		"":        LevelInfo,
		"warning": LevelWarning,
		"Error":   LevelError,
		"FATAL":   LevelFatal,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	got, err := ParseLevel("loud")
	assert.Error(t, err)
	assert.Equal(t, LevelInfo, got)
}

// TestSetup_JSON verifies JSON output honours the configured level
func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Setup(context.Background(), Options{Level: LevelWarning, SampleRate: 1, Output: &buf}))
	t.Cleanup(func() { _ = Setup(context.Background(), Options{Level: LevelInfo}) })

	Info("hidden")
	Warn("shown", "table", "DiscountRules")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "DiscountRules", entry["table"])
	assert.Equal(t, LevelWarning, GetLevel())
}

// TestRequestLogger verifies response statuses reach the counters
func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Setup(context.Background(), Options{Level: LevelInfo, SampleRate: 1, Output: &buf}))
	t.Cleanup(func() { _ = Setup(context.Background(), Options{Level: LevelInfo}) })

	before404 := Total404Errors.Load()
	before4xx := Total4xxErrors.Load()
	before5xx := Total5xxErrors.Load()
	beforeErrors := TotalErrors.Load()
	beforeWarnings := TotalWarnings.Load()

	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte("ok"))
		}
	}))

	for _, path := range []string{"/missing", "/broken", "/fine"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, before404+1, Total404Errors.Load())
	assert.Equal(t, before4xx+1, Total4xxErrors.Load())
	assert.Equal(t, before5xx+1, Total5xxErrors.Load())
	assert.Equal(t, beforeErrors+1, TotalErrors.Load(), "a 5xx counts as one error")
	assert.Equal(t, beforeWarnings, TotalWarnings.Load(), "a fast 4xx is not a warning")
	assert.Contains(t, buf.String(), `"path":"/fine"`)
	assert.Contains(t, buf.String(), `"msg":"request failed"`)
}

// TestRequestLogger_SlowClientError verifies a slow 4xx counts as one warning
func TestRequestLogger_SlowClientError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Setup(context.Background(), Options{Level: LevelInfo, SampleRate: 1, Output: &buf}))
	threshold := SlowRequestThreshold
	SlowRequestThreshold = -1
	t.Cleanup(func() {
		SlowRequestThreshold = threshold
		_ = Setup(context.Background(), Options{Level: LevelInfo})
	})

	before400 := Total400Errors.Load()
	beforeErrors := TotalErrors.Load()
	beforeWarnings := TotalWarnings.Load()

	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/bad", nil))

	assert.Equal(t, before400+1, Total400Errors.Load())
	assert.Equal(t, beforeWarnings+1, TotalWarnings.Load())
	assert.Equal(t, beforeErrors, TotalErrors.Load())
	assert.Contains(t, buf.String(), `"msg":"slow request"`)
}
