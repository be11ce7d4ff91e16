package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
)

const robotsTTL = time.Hour

// RobotsChecker answers robots.txt questions per host, caching each host's
// rules for an hour
type RobotsChecker struct {
	rules      *gocache.Cache
	httpClient *http.Client
	agent      string
}

// NewRobotsChecker creates a checker matching rules against the product token of userAgent
func NewRobotsChecker(userAgent string, timeout time.Duration) *RobotsChecker {
	return &RobotsChecker{
		rules:      gocache.New(robotsTTL, 2*robotsTTL),
		httpClient: &http.Client{Timeout: timeout},
		agent:      NormalizeUserAgent(userAgent),
	}
}

// IsAllowed reports whether rawURL may be fetched. An unreachable or
// unparseable robots.txt allows the fetch.
func (r *RobotsChecker) IsAllowed(ctx context.Context, rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return true
	}
	data, err := r.rulesFor(ctx, parsed)
	if err != nil {
		return true
	}
	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, r.agent)
}

func (r *RobotsChecker) rulesFor(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	host := u.Scheme + "://" + u.Host
	if v, ok := r.rules.Get(host); ok {
		return v.(*robotstxt.RobotsData), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", r.agent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	r.rules.SetDefault(host, data)
	return data, nil
}

// NormalizeUserAgent reduces a user agent to its product name, e.g.
// "cram/0.1 (+https://...)" becomes "cram"
func NormalizeUserAgent(ua string) string {
	parts := strings.Fields(ua)
	if len(parts) == 0 {
		return ua
	}
	return strings.Split(parts[0], "/")[0]
}
