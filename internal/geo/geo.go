// Package geo resolves the province and carrier of proxy IPs. It prefers
// local MaxMind databases and can fall back to the ip-api.com JSON endpoint.
// The engine treats the resulting strings as opaque metadata.
package geo

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oschwald/geoip2-golang"
	"golang.org/x/sync/singleflight"

	"socksweep/internal/logger"
	"socksweep/pkg/scan"
)

// Info is the lookup result for one IP. Empty fields mean the dimension
// could not be resolved; the classifier maps those to its unknown sentinel.
type Info struct {
	Province string
	Carrier  string
}

// Config configures a Resolver.
type Config struct {
	CityDBPath   string
	ASNDBPath    string
	HTTPFallback bool
	APITimeout   time.Duration
	CacheTTL     time.Duration
}

type cacheEntry struct {
	info    Info
	expires time.Time
}

// Resolver performs cached geo lookups. Lookups for the same IP are
// deduplicated through singleflight so a scan over many proxies from one
// subnet does not hammer the fallback API.
type Resolver struct {
	cityDB       *geoip2.Reader
	asnDB        *geoip2.Reader
	httpFallback bool
	client       *http.Client
	cache        sync.Map
	group        singleflight.Group
	ttl          time.Duration
	log          *logger.Logger
}

var carrierPatterns = []struct {
	re   *regexp.Regexp
	name string
}{
	{regexp.MustCompile(`(?i)(china ?mobile|cmcc|中国移动)`), "中国移动"},
	{regexp.MustCompile(`(?i)(china ?telecom|chinanet|中国电信)`), "中国电信"},
	{regexp.MustCompile(`(?i)(china ?unicom|cncgroup|china169|中国联通)`), "中国联通"},
}

// NewResolver opens the configured MaxMind databases. Missing database paths
// are not an error: the resolver degrades to the HTTP fallback, or to empty
// results when that is disabled too.
func NewResolver(cfg Config) (*Resolver, error) {
	if cfg.APITimeout <= 0 {
		cfg.APITimeout = 5 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 12 * time.Hour
	}

	r := &Resolver{
		httpFallback: cfg.HTTPFallback,
		client:       &http.Client{Timeout: cfg.APITimeout},
		ttl:          cfg.CacheTTL,
		log:          logger.New("geo"),
	}

	if cfg.CityDBPath != "" {
		db, err := geoip2.Open(cfg.CityDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open city database: %w", err)
		}
		r.cityDB = db
	}
	if cfg.ASNDBPath != "" {
		db, err := geoip2.Open(cfg.ASNDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open ASN database: %w", err)
		}
		r.asnDB = db
	}

	return r, nil
}

// Close releases the MaxMind readers.
func (r *Resolver) Close() {
	if r.cityDB != nil {
		r.cityDB.Close()
	}
	if r.asnDB != nil {
		r.asnDB.Close()
	}
}

// EnrichRecords fills province/carrier on every valid record in place.
// Invalid records are skipped: there is nothing to resolve for an endpoint
// that never answered a handshake, and the classifier ignores them in the
// geo dimensions anyway.
func (r *Resolver) EnrichRecords(records []scan.Record) {
	for i := range records {
		if !records[i].Valid {
			continue
		}
		info := r.Lookup(records[i].Host)
		records[i].Province = info.Province
		records[i].Carrier = info.Carrier
	}
}

// Lookup resolves one IP, serving repeated queries from the cache.
func (r *Resolver) Lookup(ip string) Info {
	now := time.Now()
	if entry, ok := r.cache.Load(ip); ok {
		cached := entry.(cacheEntry)
		if now.Before(cached.expires) {
			return cached.info
		}
	}

	result, _, _ := r.group.Do(ip, func() (interface{}, error) {
		return r.resolve(ip), nil
	})

	info := result.(Info)
	r.cache.Store(ip, cacheEntry{info: info, expires: now.Add(r.ttl)})
	return info
}

func (r *Resolver) resolve(ipStr string) Info {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return Info{}
	}

	var info Info

	if r.cityDB != nil {
		if record, err := r.cityDB.City(ip); err == nil {
			info.Province = provinceFromSubdivisions(record)
		}
	}
	if r.asnDB != nil {
		if record, err := r.asnDB.ASN(ip); err == nil {
			info.Carrier = CarrierFromOrg(record.AutonomousSystemOrganization)
		}
	}

	if (info.Province == "" || info.Carrier == "") && r.httpFallback {
		r.fillFromAPI(ipStr, &info)
	}

	return info
}

func provinceFromSubdivisions(record *geoip2.City) string {
	if len(record.Subdivisions) == 0 {
		return ""
	}
	names := record.Subdivisions[0].Names
	if name, ok := names["zh-CN"]; ok {
		return NormalizeProvince(name)
	}
	return NormalizeProvince(names["en"])
}

// geoAPIResponse is the shape of the ip-api.com JSON answer.
type geoAPIResponse struct {
	Status     string `json:"status"`
	RegionName string `json:"regionName"`
	ISP        string `json:"isp"`
	Org        string `json:"org"`
}

func (r *Resolver) fillFromAPI(ip string, info *Info) {
	apiURL := fmt.Sprintf("http://ip-api.com/json/%s?fields=status,regionName,isp,org&lang=zh-CN", ip)

	resp, err := r.client.Get(apiURL)
	if err != nil {
		r.log.Debug("geo api request failed", "ip", ip, "error", err)
		return
	}
	defer resp.Body.Close()

	var apiResp geoAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		r.log.Debug("geo api decode failed", "ip", ip, "error", err)
		return
	}
	if apiResp.Status != "success" {
		return
	}

	if info.Province == "" {
		info.Province = NormalizeProvince(apiResp.RegionName)
	}
	if info.Carrier == "" {
		org := apiResp.ISP
		if org == "" {
			org = apiResp.Org
		}
		info.Carrier = CarrierFromOrg(org)
	}
}

// CarrierFromOrg maps an ASN/ISP organisation string to one of the national
// carriers when it matches, or returns the organisation verbatim otherwise.
func CarrierFromOrg(org string) string {
	org = strings.TrimSpace(org)
	if org == "" {
		return ""
	}
	for _, pattern := range carrierPatterns {
		if pattern.re.MatchString(org) {
			return pattern.name
		}
	}
	return org
}

// NormalizeProvince strips administrative suffixes so that "北京市" and
// "广东省" group with feeds that report the bare name.
func NormalizeProvince(region string) string {
	region = strings.TrimSpace(region)
	for _, suffix := range []string{"省", "市", "维吾尔自治区", "壮族自治区", "回族自治区", "自治区", " Sheng", " Shi"} {
		region = strings.TrimSuffix(region, suffix)
	}
	return region
}
