// Package manager wires the scan pipeline together: candidate acquisition,
// the validation pool, geo enrichment, classification, aggregation, and the
// persistence/output sinks.
package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"socksweep/internal/config"
	"socksweep/internal/database"
	"socksweep/internal/geo"
	"socksweep/internal/logger"
	"socksweep/internal/output"
	"socksweep/pkg/scan"
	"socksweep/pkg/sources"
)

// Pipeline runs complete scans. All collaborators besides the pool are
// optional: a nil geo resolver skips enrichment, a nil store skips history,
// a nil writer skips files.
type Pipeline struct {
	cfg    *config.Config
	multi  *sources.Multi
	pool   *scan.Pool
	geo    *geo.Resolver
	store  *database.Service
	writer *output.Writer

	mu          sync.Mutex
	lastScanID  int32
	updateTick  *time.Ticker
	lifecycleWG sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc

	log *logger.Logger
}

// Options carries the optional collaborators for a Pipeline.
type Options struct {
	Sources *sources.Multi
	Geo     *geo.Resolver
	Store   *database.Service
	Writer  *output.Writer
}

// New builds a pipeline from validated configuration.
func New(cfg *config.Config, opts Options) *Pipeline {
	prober := scan.NewHandshakeProber(scan.ProberConfig{
		Timeout:       cfg.Scanner.ProbeTimeout,
		Mode:          scan.ProbeMode(cfg.Scanner.ProbeMode),
		ConnectTarget: cfg.Scanner.ConnectTarget,
		Username:      cfg.Scanner.Username,
		Password:      cfg.Scanner.Password,
	})

	var checker scan.TargetChecker
	if len(cfg.Reachability.Targets) > 0 {
		checker = scan.NewReachabilityChecker(scan.ReachabilityConfig{
			Targets:   scan.ParseTargets(cfg.Reachability.Targets),
			Timeout:   cfg.Reachability.Timeout,
			UserAgent: cfg.Reachability.UserAgent,
			Username:  cfg.Scanner.Username,
			Password:  cfg.Scanner.Password,
		})
	}

	pool := scan.NewPool(prober, checker, scan.PoolConfig{
		Concurrency: cfg.Scanner.Concurrency,
		TaskTimeout: cfg.Scanner.TaskTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())

	return &Pipeline{
		cfg:    cfg,
		multi:  opts.Sources,
		pool:   pool,
		geo:    opts.Geo,
		store:  opts.Store,
		writer: opts.Writer,
		ctx:    ctx,
		cancel: cancel,
		log:    logger.New("pipeline"),
	}
}

// RunOnce fetches candidates from the configured sources and scans them.
func (p *Pipeline) RunOnce(ctx context.Context) (*scan.Report, error) {
	if p.multi == nil {
		return nil, fmt.Errorf("no candidate sources configured")
	}

	candidates := p.multi.FetchAll(ctx)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no candidates collected from any source")
	}

	return p.Scan(ctx, candidates)
}

// Scan runs the validation pipeline over an explicit candidate list. This is
// also the retest entrypoint: the caller may hand back a previous run's
// invalid records as fresh candidates.
func (p *Pipeline) Scan(ctx context.Context, candidates []scan.Candidate) (*scan.Report, error) {
	started := time.Now()
	p.log.Info("scan starting", "candidates", len(candidates),
		"concurrency", p.cfg.Scanner.Concurrency, "mode", p.cfg.Scanner.ProbeMode)

	var scanID int32
	if p.store != nil {
		id, err := p.store.CreateScan(ctx, p.cfg.Sources.Mode, started)
		if err != nil {
			p.log.Warn("scan history disabled for this run", "error", err)
		} else {
			scanID = id
		}
	}

	records := p.pool.Run(ctx, candidates)

	if p.geo != nil {
		p.geo.EnrichRecords(records)
	}

	views := scan.Classify(records)
	report, err := scan.BuildReport(records, views)
	if err != nil {
		// A count mismatch is a pipeline bug, not a scan failure.
		return nil, err
	}

	if p.store != nil && scanID != 0 {
		if err := p.store.SaveReport(ctx, scanID, report); err != nil {
			p.log.Warn("failed to persist scan", "scan_id", scanID, "error", err)
		} else {
			p.mu.Lock()
			p.lastScanID = scanID
			p.mu.Unlock()
		}
	}

	if p.writer != nil {
		timestamp := started.Format("20060102_150405")
		if _, err := p.writer.Write(report, timestamp); err != nil {
			p.log.Warn("failed to write report files", "error", err)
		}
	}

	p.logSummary(report, time.Since(started))
	return report, nil
}

// Retest reloads the previous scan's invalid records from the store and runs
// only the validation pipeline on them.
func (p *Pipeline) Retest(ctx context.Context, scanID int32) (*scan.Report, error) {
	if p.store == nil {
		return nil, fmt.Errorf("retest requires the scan history database")
	}

	candidates, err := p.store.LoadInvalidCandidates(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no invalid records to retest")
	}

	p.log.Info("retesting previous invalid records", "candidates", len(candidates))
	return p.Scan(ctx, candidates)
}

// Start begins periodic scanning in the background.
func (p *Pipeline) Start(interval time.Duration) error {
	if _, err := p.RunOnce(p.ctx); err != nil {
		return fmt.Errorf("initial scan failed: %w", err)
	}

	p.updateTick = time.NewTicker(interval)
	p.lifecycleWG.Add(1)
	go p.loop()

	p.log.Info("periodic scanning started", "interval", interval)
	return nil
}

// Stop cancels in-flight work and waits for the background loop to exit.
func (p *Pipeline) Stop() {
	if p.updateTick != nil {
		p.updateTick.Stop()
	}
	p.cancel()
	p.lifecycleWG.Wait()
	p.log.Info("pipeline stopped")
}

func (p *Pipeline) loop() {
	defer p.lifecycleWG.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.updateTick.C:
			if _, err := p.RunOnce(p.ctx); err != nil {
				p.log.Error("scheduled scan failed", "error", err)
			}
		}
	}
}

func (p *Pipeline) logSummary(report *scan.Report, elapsed time.Duration) {
	p.log.Info("scan finished",
		"total", report.Summary.TotalScanned,
		"valid", report.Summary.TotalValid,
		"working", report.Summary.TotalWorking,
		"elapsed", elapsed.Round(time.Millisecond),
	)
	for _, key := range report.Views.Province.Keys() {
		p.log.Debug("province group", "province", key, "count", len(report.Views.Province[key]))
	}
	for _, key := range report.Views.Carrier.Keys() {
		p.log.Debug("carrier group", "carrier", key, "count", len(report.Views.Carrier[key]))
	}
}
