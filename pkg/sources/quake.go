package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"socksweep/internal/logger"
	"socksweep/pkg/scan"
)

const defaultQuakeURL = "https://quake.360.net/api/v3/search/quake_service"

// QuakeSource queries the 360 Quake service-search API for SOCKS5 endpoints,
// optionally filtered by province and carrier. The API key comes from the
// caller (read from the environment in cmd), never from this package.
type QuakeSource struct {
	apiKey    string
	apiURL    string
	pageSize  int
	provinces []string
	operators []string
	client    *http.Client
	logger    *logger.Logger
}

type quakeQuery struct {
	Query string `json:"query"`
	Start int    `json:"start"`
	Size  int    `json:"size"`
}

type quakeResponse struct {
	Code    interface{} `json:"code"`
	Message string      `json:"message"`
	Data    []quakeItem `json:"data"`
	Meta    struct {
		Pagination struct {
			Total int `json:"total"`
		} `json:"pagination"`
	} `json:"meta"`
}

type quakeItem struct {
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Location struct {
		ProvinceCn string `json:"province_cn"`
		Isp        string `json:"isp"`
	} `json:"location"`
}

func NewQuakeSource(apiKey string, cfg Config) *QuakeSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	apiURL := cfg.QuakeURL
	if apiURL == "" {
		apiURL = defaultQuakeURL
	}
	pageSize := cfg.QuakeSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &QuakeSource{
		apiKey:    apiKey,
		apiURL:    apiURL,
		pageSize:  pageSize,
		provinces: cfg.Provinces,
		operators: cfg.Operators,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.New("quake"),
	}
}

func (s *QuakeSource) Name() string {
	return "quake"
}

func (s *QuakeSource) Fetch(ctx context.Context) ([]scan.Candidate, error) {
	if s.apiKey == "" {
		s.logger.Warn("QUAKE_API_KEY not set, skipping quake search")
		return nil, nil
	}

	body, err := json.Marshal(quakeQuery{
		Query: s.buildQuery(),
		Start: 0,
		Size:  s.pageSize,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-QuakeToken", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quake search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var quakeResp quakeResponse
	if err := json.NewDecoder(resp.Body).Decode(&quakeResp); err != nil {
		return nil, fmt.Errorf("failed to decode quake response: %w", err)
	}

	candidates := make([]scan.Candidate, 0, len(quakeResp.Data))
	for _, item := range quakeResp.Data {
		if item.IP == "" || item.Port < 1 || item.Port > 65535 {
			continue
		}
		candidates = append(candidates, scan.Candidate{
			Host:   item.IP,
			Port:   item.Port,
			Source: "quake",
		})
	}

	s.logger.Info("quake search collected", "candidates", len(candidates),
		"total", quakeResp.Meta.Pagination.Total)
	return candidates, nil
}

// buildQuery assembles the Quake search expression from the configured
// service filter plus optional province/operator clauses.
func (s *QuakeSource) buildQuery() string {
	clauses := []string{`service:"socks5"`, `country:"China"`}
	if clause := orClause("province_cn", s.provinces); clause != "" {
		clauses = append(clauses, clause)
	}
	if clause := orClause("isp", s.operators); clause != "" {
		clauses = append(clauses, clause)
	}
	return strings.Join(clauses, " AND ")
}

func orClause(field string, values []string) string {
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, 0, len(values))
	for _, value := range values {
		parts = append(parts, fmt.Sprintf("%s:%q", field, value))
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}
