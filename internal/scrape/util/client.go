package util

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const userAgent = "jobscout/1.0 (+local)"

// Doer lets tests swap the transport out.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the shared outbound HTTP client. Every request waits on a
// per-host token bucket so one run never hammers a board, no matter how many
// adapters or title variants are in flight.
type Client struct {
	hc Doer

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	b        int
}

func NewClient(reqPerSec float64, burst int) *Client {
	return NewClientWith(&http.Client{Timeout: 20 * time.Second}, reqPerSec, burst)
}

func NewClientWith(doer Doer, reqPerSec float64, burst int) *Client {
	return &Client{
		hc:       doer,
		limiters: make(map[string]*rate.Limiter),
		r:        rate.Limit(reqPerSec),
		b:        burst,
	}
}

func (c *Client) limiterFor(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lim, ok := c.limiters[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(c.r, c.b)
	c.limiters[host] = lim
	return lim
}

// Get fetches rawURL after the host's rate slot frees up. Non-2xx statuses
// are returned as errors with the body already closed.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	host := "_"
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	if err := c.limiterFor(host).Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		res.Body.Close()
		return nil, fmt.Errorf("GET %s: status %d", rawURL, res.StatusCode)
	}
	return res, nil
}
