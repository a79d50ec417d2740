package notion

import (
	"net/http"

	"github.com/gregjones/httpcache"
	"golang.org/x/time/rate"
)

// DefaultRateLimit is Notion's documented average request rate per
// integration token, in requests per second.
const DefaultRateLimit = 3

// throttledTransport waits on a token bucket before every outgoing request.
type throttledTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *throttledTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// newTransport builds the per-token transport stack:
//  1. httpcache (ETag-based conditional request caching of schema reads)
//  2. rate limiter (requests per second, shared by everything using the token)
//  3. base transport
//
// Each token gets its own stack so cached responses never cross tokens.
func newTransport(base http.RoundTripper, perSecond float64) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if perSecond <= 0 {
		perSecond = DefaultRateLimit
	}

	throttled := &throttledTransport{
		base:    base,
		limiter: rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond))),
	}

	cache := httpcache.NewTransport(httpcache.NewMemoryCache())
	cache.Transport = throttled
	return cache
}
