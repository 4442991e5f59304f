package scan

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	netproxy "golang.org/x/net/proxy"
)

// Target is one endpoint a validated proxy must be able to reach.
type Target struct {
	ID  string
	URL string
}

// TargetID derives a stable identifier from a target URL: host plus path,
// which is how groups are keyed in the report.
func TargetID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host + u.Path
}

// ParseTargets builds the target list from configured URLs, assigning IDs.
func ParseTargets(urls []string) []Target {
	targets := make([]Target, 0, len(urls))
	for _, raw := range urls {
		targets = append(targets, Target{ID: TargetID(raw), URL: raw})
	}
	return targets
}

// ReachabilityChecker tunnels an HTTP request to each configured target
// through the proxy under test. Checks are independent: one failing target
// never aborts the rest, and every target always gets a map entry.
type ReachabilityChecker struct {
	targets   []Target
	timeout   time.Duration
	userAgent string
	username  string
	password  string
}

// ReachabilityConfig configures a ReachabilityChecker.
type ReachabilityConfig struct {
	Targets   []Target
	Timeout   time.Duration
	UserAgent string
	Username  string
	Password  string
}

func NewReachabilityChecker(cfg ReachabilityConfig) *ReachabilityChecker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &ReachabilityChecker{
		targets:   cfg.Targets,
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		username:  cfg.Username,
		password:  cfg.Password,
	}
}

// Targets returns the configured target list.
func (c *ReachabilityChecker) Targets() []Target {
	return c.targets
}

// Check fetches every configured target through the proxy. The returned map
// always has exactly one entry per target; an unreached target is recorded
// with Reached=false rather than omitted.
func (c *ReachabilityChecker) Check(ctx context.Context, cand Candidate) map[string]TargetResult {
	results := make(map[string]TargetResult, len(c.targets))

	for _, target := range c.targets {
		start := time.Now()
		err := c.fetch(ctx, cand, target.URL)
		results[target.ID] = TargetResult{
			Reached: err == nil,
			Latency: time.Since(start),
		}
	}

	return results
}

func (c *ReachabilityChecker) fetch(ctx context.Context, cand Candidate, targetURL string) error {
	var auth *netproxy.Auth
	if c.username != "" {
		auth = &netproxy.Auth{User: c.username, Password: c.password}
	}

	dialer, err := netproxy.SOCKS5("tcp", cand.Address(), auth, &net.Dialer{Timeout: c.timeout})
	if err != nil {
		return fmt.Errorf("failed to create SOCKS dialer: %w", err)
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.(netproxy.ContextDialer).DialContext(ctx, network, addr)
		},
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true,
		},
		DisableKeepAlives:     true,
		DisableCompression:    true,
		MaxIdleConns:          0,
		IdleConnTimeout:       1 * time.Second,
		TLSHandshakeTimeout:   c.timeout / 2,
		ResponseHeaderTimeout: c.timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	defer transport.CloseIdleConnections()

	client := &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, targetURL, nil)
	if err != nil {
		return err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Connection", "close")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 2xx and 3xx both count: redirects prove the tunnel carried traffic.
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return nil
	}
	return fmt.Errorf("HTTP %d for %s", resp.StatusCode, strings.TrimPrefix(targetURL, "http://"))
}
