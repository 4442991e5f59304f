package sources

import (
	"context"
	"time"

	"socksweep/pkg/scan"
)

// Source produces candidate proxies from one feed.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]scan.Candidate, error)
}

// Config is shared source configuration.
type Config struct {
	Timeout   time.Duration
	UserAgent string
	FreeLists []string

	// Quake search filters; empty slices mean no filter.
	Provinces []string
	Operators []string
	QuakeURL  string
	QuakeSize int
}
