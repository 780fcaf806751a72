// Package scan runs the similarity engine over a set of candidate names in
// parallel and checkpoints the accumulated results to durable storage.
//
// Each candidate is one unit of work scored against the whole corpus by a
// fixed pool of workers. Workers never touch shared state: they send their
// outcome to a single collector that owns the accumulator, merges results
// as they arrive, and flushes every CheckpointInterval completed units.
// The accumulator is only reset after a flush succeeds.
package scan

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tsukumogami/typoscan/internal/log"
	"github.com/tsukumogami/typoscan/internal/similarity"
)

// DefaultCheckpointInterval is the number of completed candidates between flushes.
const DefaultCheckpointInterval = 100

// Checkpointer persists a batch of results. Flush must either write the
// whole batch or return an error; it is never called concurrently.
type Checkpointer interface {
	Flush(similarity.ResultSet) error
}

// Options configures a Run.
type Options struct {
	Candidates []string
	Corpus     []string
	Threshold  float64

	// CheckpointInterval defaults to DefaultCheckpointInterval.
	CheckpointInterval int

	// Workers defaults to runtime.NumCPU(). Scoring is CPU bound, so more
	// workers than cores only adds scheduling overhead.
	Workers int

	Store  Checkpointer
	Logger log.Logger

	// OnProgress is called from the collector after each completed unit.
	OnProgress func(done, total int)
}

// Summary describes a finished (or interrupted) run.
type Summary struct {
	Candidates  int // units scheduled
	Completed   int // units finished, scored or failed
	Failed      int // units skipped after an error
	Matched     int // candidates with at least one match
	Matches     int // total matches
	Checkpoints int // successful flushes
	Duration    time.Duration
}

// Scored returns the number of candidates that produced output.
func (s *Summary) Scored() int {
	return s.Completed - s.Failed
}

// AllFailed reports whether units ran but none of them produced output.
// This is distinct from a clean run that simply found no matches.
func (s *Summary) AllFailed() bool {
	return s.Completed > 0 && s.Failed == s.Completed
}

// outcome is what a worker reports to the collector.
type outcome struct {
	candidate string
	matches   []similarity.Match
	err       error
}

// Run scores every candidate against the corpus and checkpoints results
// through opts.Store.
//
// Cancelling ctx stops new units from starting; units already running are
// finished, merged and flushed before Run returns ctx.Err(). A flush failure
// stops the run and is returned as a KindPersistence *Error holding the
// unwritten results.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	if len(opts.Corpus) == 0 {
		return nil, configError("cannot scan", ErrEmptyCorpus)
	}
	if len(opts.Candidates) == 0 {
		return nil, configError("cannot scan", ErrNoCandidates)
	}
	if opts.Store == nil {
		return nil, configError("cannot scan", ErrNoStore)
	}
	matcher, err := similarity.NewMatcher(opts.Corpus, opts.Threshold)
	if err != nil {
		return nil, configError("cannot scan", err)
	}

	interval := opts.CheckpointInterval
	if interval <= 0 {
		interval = DefaultCheckpointInterval
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	logger.Info("starting scan",
		"candidates", len(opts.Candidates),
		"corpus", matcher.Len(),
		"threshold", opts.Threshold,
		"workers", workers,
		"checkpoint_interval", interval)

	// dispatchCtx is also cancelled when a flush fails.
	dispatchCtx, stopDispatch := context.WithCancel(ctx)
	defer stopDispatch()

	outcomes := make(chan outcome, workers)
	go dispatch(dispatchCtx, matcher, opts.Candidates, workers, outcomes)

	c := &collector{
		store:    opts.Store,
		logger:   logger,
		interval: interval,
		acc:      make(similarity.ResultSet),
		summary:  &Summary{Candidates: len(opts.Candidates)},
	}

	for o := range outcomes {
		c.merge(o)
		if opts.OnProgress != nil {
			opts.OnProgress(c.summary.Completed, c.summary.Candidates)
		}
		if c.flushErr == nil && c.sinceFlush >= interval {
			if err := c.flush(); err != nil {
				stopDispatch()
			}
		}
	}

	if c.flushErr == nil && len(c.acc) > 0 {
		_ = c.flush()
	}

	c.summary.Duration = time.Since(start)
	if c.flushErr != nil {
		return c.summary, &Error{
			Kind:    KindPersistence,
			Message: fmt.Sprintf("write checkpoint %d", c.summary.Checkpoints+1),
			Err:     c.flushErr,
			Pending: c.acc,
		}
	}

	logger.Info("scan finished",
		"completed", c.summary.Completed,
		"failed", c.summary.Failed,
		"matched", c.summary.Matched,
		"checkpoints", c.summary.Checkpoints,
		"duration", c.summary.Duration)

	if err := ctx.Err(); err != nil {
		return c.summary, err
	}
	return c.summary, nil
}

// dispatch schedules one unit per candidate on a bounded pool and closes
// out once every started unit has reported.
func dispatch(ctx context.Context, m *similarity.Matcher, candidates []string, workers int, out chan<- outcome) {
	var g errgroup.Group
	g.SetLimit(workers)

	for _, cand := range candidates {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// A slot may free up after cancellation; don't start new work then.
			if ctx.Err() != nil {
				return nil
			}
			out <- score(m, cand)
			return nil
		})
	}

	_ = g.Wait()
	close(out)
}

// score runs one unit, turning a panic into a per-candidate error.
func score(m *similarity.Matcher, candidate string) (o outcome) {
	o.candidate = candidate
	defer func() {
		if r := recover(); r != nil {
			o.matches = nil
			o.err = fmt.Errorf("panic while scoring: %v", r)
		}
	}()
	o.matches, o.err = m.Match(candidate)
	return o
}

// collector owns the accumulator. Only the Run goroutine touches it.
type collector struct {
	store    Checkpointer
	logger   log.Logger
	interval int

	acc        similarity.ResultSet
	sinceFlush int
	flushErr   error
	summary    *Summary
}

func (c *collector) merge(o outcome) {
	c.summary.Completed++
	c.sinceFlush++

	if o.err != nil {
		c.summary.Failed++
		err := &Error{Kind: KindCandidate, Candidate: o.candidate, Message: "skipped", Err: o.err}
		c.logger.Warn("skipping candidate", "candidate", o.candidate, "error", err)
		return
	}

	c.acc.Add(o.candidate, o.matches...)
	c.summary.Matches += len(o.matches)
	if len(o.matches) > 0 {
		c.summary.Matched++
	}
	c.logger.Debug("scored candidate", "candidate", o.candidate, "matches", len(o.matches))
}

// flush writes the accumulator and resets it only once the write succeeded.
func (c *collector) flush() error {
	c.sinceFlush = 0
	if len(c.acc) == 0 {
		return nil
	}
	if err := c.store.Flush(c.acc); err != nil {
		c.flushErr = err
		c.logger.Error("checkpoint failed, keeping results in memory", "candidates", len(c.acc), "error", err)
		return err
	}
	c.summary.Checkpoints++
	c.acc = make(similarity.ResultSet)
	return nil
}
