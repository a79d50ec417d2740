// Command healthcheck checks a running mytaskpanel server and exits non-zero
// unless it reports status "ok". It is the container HEALTHCHECK.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/ericfisherdev/mytaskpanel/pkg/client"
)

const timeout = 2 * time.Second

func main() {
	os.Exit(check(os.Getenv("MYTASKPANEL_LISTEN_ADDR")))
}

func check(listenAddr string) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c := client.New("http://"+normalizeAddr(listenAddr), client.WithHTTPClient(&http.Client{Timeout: timeout}))
	health, err := c.Health(ctx)
	if err != nil || health.Status != "ok" {
		return 1
	}
	return 0
}

// normalizeAddr dials loopback instead of the bind-all address; the check
// runs inside the same container as the server.
func normalizeAddr(raw string) string {
	const fallback = "127.0.0.1:8080"

	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return fallback
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
