package main

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddr(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", "127.0.0.1:8080"},
		{"bind all", "0.0.0.0:9090", "127.0.0.1:9090"},
		{"port only", ":7000", "127.0.0.1:7000"},
		{"ipv6 any", "[::]:7000", "127.0.0.1:7000"},
		{"explicit host", "10.0.0.5:8080", "10.0.0.5:8080"},
		{"garbage", "not-an-addr", "127.0.0.1:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeAddr(tt.raw))
		})
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   int
	}{
		{"healthy", http.StatusOK, `{"status":"ok","projects":0}`, 0},
		{"degraded status", http.StatusOK, `{"status":"starting"}`, 1},
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/health", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			assert.Equal(t, tt.want, check(srv.Listener.Addr().String()))
		})
	}
}

func TestCheck_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	assert.Equal(t, 1, check(addr))
}
