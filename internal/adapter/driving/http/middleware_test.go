package httphandler

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_RecoversPanics(t *testing.T) {
	h := Wrap(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestWrap_PassesFlusherThrough(t *testing.T) {
	var flushed bool
	h := Wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		f, ok := w.(http.Flusher)
		require.True(t, ok)
		_, _ = w.Write([]byte("data"))
		f.Flush()
		flushed = true
	}), slog.New(slog.DiscardHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))

	assert.True(t, flushed)
	assert.True(t, rec.Flushed)
	assert.Equal(t, "data", rec.Body.String())
}

func TestStatusWriter_CountsBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec, status: http.StatusOK}

	sw.WriteHeader(http.StatusTeapot)
	_, _ = sw.Write([]byte("hello"))
	_, _ = sw.Write([]byte(" world"))

	assert.Equal(t, http.StatusTeapot, sw.status)
	assert.Equal(t, 11, sw.bytes)
	assert.Equal(t, rec, sw.Unwrap())
}
