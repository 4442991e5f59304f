package sources

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"socksweep/internal/logger"
	"socksweep/pkg/scan"
)

// Multi fans out over all configured sources concurrently and merges their
// candidates, deduplicated by host:port. Individual source failures are
// logged and skipped; the scan proceeds on whatever the rest produced.
type Multi struct {
	sources []Source
	logger  *logger.Logger
}

func NewMulti(srcs []Source) *Multi {
	return &Multi{
		sources: srcs,
		logger:  logger.New("sources"),
	}
}

// FetchAll collects candidates from every source. The result keeps one entry
// per unique host:port, in the order sources finished reporting them.
func (m *Multi) FetchAll(ctx context.Context) []scan.Candidate {
	var (
		mu       sync.Mutex
		all      []scan.Candidate
		seen     = make(map[string]bool)
		group, _ = errgroup.WithContext(ctx)
	)

	for _, src := range m.sources {
		src := src
		group.Go(func() error {
			candidates, err := src.Fetch(ctx)
			if err != nil {
				m.logger.Warn("source failed", "source", src.Name(), "error", err)
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			unique := 0
			for _, cand := range candidates {
				key := cand.Address()
				if seen[key] {
					continue
				}
				seen[key] = true
				all = append(all, cand)
				unique++
			}
			m.logger.Info("source merged", "source", src.Name(),
				"total", len(candidates), "unique", unique)
			return nil
		})
	}

	group.Wait()
	m.logger.Info("candidate collection finished", "unique", len(all))
	return all
}
