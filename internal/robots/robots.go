// Package robots decides whether a site may be visited according to its
// robots.txt.
package robots

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const DefaultUserAgent = "job-scout/1.0"

// Gate caches one robots.txt per origin. Failing to fetch or parse it allows
// the visit.
type Gate struct {
	client    *http.Client
	userAgent string

	mu    sync.RWMutex
	cache map[string]*robotstxt.RobotsData
}

func NewGate(client *http.Client, userAgent string) *Gate {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Gate{client: client, userAgent: userAgent, cache: make(map[string]*robotstxt.RobotsData)}
}

func (g *Gate) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	origin := u.Scheme + "://" + u.Host

	g.mu.RLock()
	data, ok := g.cache[origin]
	g.mu.RUnlock()

	if !ok {
		data, err = g.fetch(ctx, origin)
		if err != nil {
			return true
		}
		g.mu.Lock()
		g.cache[origin] = data
		g.mu.Unlock()
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, g.userAgent)
}

func (g *Gate) fetch(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.userAgent)
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return robotstxt.FromResponse(resp)
}
