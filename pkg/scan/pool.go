package scan

import (
	"context"
	"time"

	"socksweep/internal/logger"
)

// Pool fans candidates out over a fixed number of worker goroutines. Each
// worker owns one candidate at a time, runs the probe and (when valid) the
// reachability checks, and publishes exactly one Record. Publication through
// the results channel is the single synchronization point; records are never
// mutated after they are sent.
type Pool struct {
	prober      Prober
	checker     TargetChecker
	concurrency int
	taskTimeout time.Duration
	log         *logger.Logger
}

// PoolConfig configures a Pool.
type PoolConfig struct {
	Concurrency int
	TaskTimeout time.Duration
}

// NewPool creates a worker pool. checker may be nil when no reachability
// targets are configured.
func NewPool(prober Prober, checker TargetChecker, cfg PoolConfig) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 15 * time.Second
	}
	return &Pool{
		prober:      prober,
		checker:     checker,
		concurrency: cfg.Concurrency,
		taskTimeout: cfg.TaskTimeout,
		log:         logger.New("pool"),
	}
}

// Run tests every candidate and blocks until all results are published.
// Every input candidate yields exactly one Record, in finalization order.
// Cancelling ctx stops new work; candidates still queued at that point are
// drained and recorded as invalid timeouts so none is left in limbo.
func (p *Pool) Run(ctx context.Context, candidates []Candidate) []Record {
	if len(candidates) == 0 {
		return nil
	}

	workers := p.concurrency
	if workers > len(candidates) {
		workers = len(candidates)
	}

	queue := make(chan Candidate, len(candidates))
	results := make(chan Record, len(candidates))

	for i := 0; i < workers; i++ {
		go p.work(ctx, queue, results)
	}

	for _, cand := range candidates {
		queue <- cand
	}
	close(queue)

	// Each candidate is owned by exactly one worker and publishes exactly
	// one record, so receiving len(candidates) results is the completion
	// signal; no separate WaitGroup is needed.
	records := make([]Record, 0, len(candidates))
	for range candidates {
		records = append(records, <-results)
	}

	valid := 0
	for i := range records {
		if records[i].Valid {
			valid++
		}
	}
	p.log.Info("scan finished", "candidates", len(candidates), "valid", valid)

	return records
}

func (p *Pool) work(ctx context.Context, queue <-chan Candidate, results chan<- Record) {
	for cand := range queue {
		if ctx.Err() != nil {
			results <- p.cancelledRecord(cand)
			continue
		}
		results <- p.runTask(ctx, cand)
	}
}

// runTask executes the two probe stages under the per-task timeout. A task
// that overruns is force-cancelled through the context; the prober and
// checker observe the cancellation on their next I/O.
func (p *Pool) runTask(ctx context.Context, cand Candidate) Record {
	taskCtx, cancel := context.WithTimeout(ctx, p.taskTimeout)
	defer cancel()

	rec := Record{
		Host:     cand.Host,
		Port:     cand.Port,
		Source:   cand.Source,
		TestedAt: time.Now(),
	}

	probe := p.prober.Probe(taskCtx, cand.Host, cand.Port)
	rec.Valid = probe.Valid
	rec.Latency = probe.Latency
	rec.Failure = probe.Failure

	if !rec.Valid && taskCtx.Err() != nil {
		// Timeout or caller cancellation ended the probe early; both are
		// terminal timeout states for the record.
		rec.Failure = FailureTimeout
	}

	if rec.Valid && p.checker != nil {
		rec.Reachability = p.checker.Check(taskCtx, cand)
	}

	return rec
}

func (p *Pool) cancelledRecord(cand Candidate) Record {
	return Record{
		Host:     cand.Host,
		Port:     cand.Port,
		Source:   cand.Source,
		Failure:  FailureTimeout,
		TestedAt: time.Now(),
	}
}
