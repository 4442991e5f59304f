package sources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"socksweep/pkg/scan"
)

func TestParseCandidates(t *testing.T) {
	feed := `
# free socks5 list
1.2.3.4:1080
socks5://5.6.7.8:9050

not-a-proxy
10.0.0.1:99999
256.1.1.1:1080
example.com:1080
10.0.0.2:0
  9.9.9.9:1081
`
	candidates, err := ParseCandidates(strings.NewReader(feed), "test")
	if err != nil {
		t.Fatalf("ParseCandidates returned error: %v", err)
	}

	want := []scan.Candidate{
		{Host: "1.2.3.4", Port: 1080, Source: "test"},
		{Host: "5.6.7.8", Port: 9050, Source: "test"},
		{Host: "9.9.9.9", Port: 1081, Source: "test"},
	}
	if len(candidates) != len(want) {
		t.Fatalf("got %d candidates %v, want %d", len(candidates), candidates, len(want))
	}
	for i, cand := range candidates {
		if cand != want[i] {
			t.Errorf("candidate %d = %+v, want %+v", i, cand, want[i])
		}
	}
}

func TestFeedName(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://raw.githubusercontent.com/hookzof/socks5_list/master/proxy.txt", "github/hookzof"},
		{"https://www.proxy-list.download/api/v1/get?type=socks5", "proxy-list.download"},
		{"https://api.openproxylist.xyz/socks5.txt", "api.openproxylist.xyz"},
		{"not a url", "not a url"},
	}
	for _, tc := range cases {
		if got := feedName(tc.url); got != tc.want {
			t.Errorf("feedName(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestFreeListFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("1.2.3.4:1080\n5.6.7.8:1080\n"))
	}))
	defer srv.Close()

	src := NewFreeListSource(srv.URL, Config{})
	candidates, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
}

func TestFreeListFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	src := NewFreeListSource(srv.URL, Config{})
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for HTTP 403")
	}
}

func TestQuakeFetch(t *testing.T) {
	var gotToken, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-QuakeToken")
		var q quakeQuery
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		gotQuery = q.Query
		w.Write([]byte(`{
			"code": 0, "message": "Successful.",
			"data": [
				{"ip": "1.2.3.4", "port": 1080, "location": {"province_cn": "广东", "isp": "中国电信"}},
				{"ip": "", "port": 1080},
				{"ip": "5.6.7.8", "port": 0}
			],
			"meta": {"pagination": {"total": 42}}
		}`))
	}))
	defer srv.Close()

	src := NewQuakeSource("test-key", Config{
		QuakeURL:  srv.URL,
		Provinces: []string{"广东"},
		Operators: []string{"中国电信", "中国联通"},
	})
	candidates, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if gotToken != "test-key" {
		t.Fatalf("token header was %q", gotToken)
	}
	wantQuery := `service:"socks5" AND country:"China" AND province_cn:"广东" AND (isp:"中国电信" OR isp:"中国联通")`
	if gotQuery != wantQuery {
		t.Fatalf("query was %q, want %q", gotQuery, wantQuery)
	}
	if len(candidates) != 1 {
		t.Fatalf("got %d candidates %v, want 1 (malformed items skipped)", len(candidates), candidates)
	}
	if candidates[0] != (scan.Candidate{Host: "1.2.3.4", Port: 1080, Source: "quake"}) {
		t.Fatalf("candidate = %+v", candidates[0])
	}
}

func TestQuakeFetchWithoutKey(t *testing.T) {
	src := NewQuakeSource("", Config{})
	candidates, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if candidates != nil {
		t.Fatalf("got candidates %v without an API key", candidates)
	}
}

// stubSource yields a fixed candidate set or error.
type stubSource struct {
	name       string
	candidates []scan.Candidate
	err        error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context) ([]scan.Candidate, error) {
	return s.candidates, s.err
}

func TestMultiFetchAllDeduplicates(t *testing.T) {
	multi := NewMulti([]Source{
		&stubSource{name: "a", candidates: []scan.Candidate{
			{Host: "1.1.1.1", Port: 1080, Source: "a"},
			{Host: "2.2.2.2", Port: 1080, Source: "a"},
		}},
		&stubSource{name: "b", candidates: []scan.Candidate{
			{Host: "2.2.2.2", Port: 1080, Source: "b"},
			{Host: "3.3.3.3", Port: 1080, Source: "b"},
		}},
		&stubSource{name: "broken", err: errors.New("feed unavailable")},
	})

	all := multi.FetchAll(context.Background())

	if len(all) != 3 {
		t.Fatalf("got %d candidates %v, want 3 unique", len(all), all)
	}
	seen := make(map[string]bool)
	for _, cand := range all {
		if seen[cand.Address()] {
			t.Fatalf("duplicate candidate %s", cand.Address())
		}
		seen[cand.Address()] = true
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	if err := os.WriteFile(path, []byte("# retest\n1.2.3.4:1080\n"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	candidates, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile returned error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Source != "file" {
		t.Fatalf("candidates = %v", candidates)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
