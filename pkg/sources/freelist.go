package sources

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"socksweep/internal/logger"
	"socksweep/pkg/scan"
)

// FreeListSource fetches a plain-text proxy list (one host:port per line,
// optionally scheme-prefixed) from a public feed URL.
type FreeListSource struct {
	name      string
	url       string
	client    *http.Client
	userAgent string
	logger    *logger.Logger
}

// NewFreeListSources builds one source per configured feed URL.
func NewFreeListSources(cfg Config) []Source {
	sources := make([]Source, 0, len(cfg.FreeLists))
	for _, feedURL := range cfg.FreeLists {
		sources = append(sources, NewFreeListSource(feedURL, cfg))
	}
	return sources
}

func NewFreeListSource(feedURL string, cfg Config) *FreeListSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	name := feedName(feedURL)
	return &FreeListSource{
		name:      name,
		url:       feedURL,
		client:    &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
		logger:    logger.New("freelist"),
	}
}

func (s *FreeListSource) Name() string {
	return s.name
}

func (s *FreeListSource) Fetch(ctx context.Context) ([]scan.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("free list fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	candidates, err := ParseCandidates(resp.Body, s.name)
	if err != nil {
		return nil, err
	}

	s.logger.Info("feed collected", "source", s.name, "candidates", len(candidates))
	return candidates, nil
}

// ParseCandidates reads host:port lines from a feed body. Blank lines,
// comments and malformed entries are skipped; a "socks5://" style prefix is
// tolerated since some feeds emit full URLs.
func ParseCandidates(reader io.Reader, source string) ([]scan.Candidate, error) {
	var candidates []scan.Candidate
	scanner := bufio.NewScanner(reader)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if idx := strings.Index(line, "://"); idx != -1 {
			line = line[idx+3:]
		}

		host, portStr, err := net.SplitHostPort(line)
		if err != nil {
			continue
		}
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			continue
		}
		if net.ParseIP(host) == nil {
			continue
		}

		candidates = append(candidates, scan.Candidate{
			Host:   host,
			Port:   port,
			Source: source,
		})
	}

	return candidates, scanner.Err()
}

// feedName derives a short source tag from the feed URL.
func feedName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return feedURL
	}
	host := u.Host
	if host == "raw.githubusercontent.com" {
		// Use the repo owner instead: the raw host says nothing.
		parts := strings.Split(strings.TrimPrefix(u.Path, "/"), "/")
		if len(parts) > 0 && parts[0] != "" {
			return "github/" + parts[0]
		}
	}
	return strings.TrimPrefix(host, "www.")
}
