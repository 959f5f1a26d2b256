package resolution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jamesbarge/postboxd-sub001/internal/film"
	"github.com/jamesbarge/postboxd-sub001/internal/logging"
	"github.com/jamesbarge/postboxd-sub001/internal/notifications"
)

// Proposer supplies candidates for observations scraped without any.
type Proposer interface {
	Propose(ctx context.Context, obs Observation) ([]film.Candidate, error)
}

// OutcomeStatus is the terminal state of one observation in a batch.
type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeSkipped   OutcomeStatus = "skipped"
)

// Outcome records how one observation finished.
type Outcome struct {
	Index      int
	FilmID     string
	Status     OutcomeStatus
	Resolution Resolution
	Err        error
}

// Summary aggregates a batch run. Outcomes keep input order.
type Summary struct {
	Outcomes  []Outcome
	Succeeded int
	Failed    int
	Skipped   int
	Duration  time.Duration
}

// BatchOptions sizes the worker pool.
type BatchOptions struct {
	Workers int
	// MinDelay is the minimum gap between two Proposer calls made by the same worker.
	MinDelay time.Duration
}

// Batch resolves observations concurrently.
type Batch struct {
	resolver *Resolver
	proposer Proposer
	workers  int
	minDelay time.Duration
	logger   *slog.Logger
}

// NewBatch builds a batch runner. proposer may be nil when every observation
// carries its own candidates.
func NewBatch(resolver *Resolver, proposer Proposer, opts BatchOptions) *Batch {
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	minDelay := opts.MinDelay
	if minDelay < 0 {
		minDelay = 0
	}
	return &Batch{
		resolver: resolver,
		proposer: proposer,
		workers:  workers,
		minDelay: minDelay,
		logger:   resolver.logger.With(logging.String("stage", "batch")),
	}
}

func (b *Batch) newLimiter() *rate.Limiter {
	if b.minDelay == 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(b.minDelay), 1)
}

// Run resolves every observation and never stops on a single failure.
// Cancelling ctx stops handing out new observations; those not yet started
// are reported as skipped. Observations already being applied run to
// completion.
func (b *Batch) Run(ctx context.Context, observations []Observation) Summary {
	started := time.Now()
	outcomes := make([]Outcome, len(observations))
	for i, obs := range observations {
		outcomes[i] = Outcome{Index: i, FilmID: obs.FilmID, Status: OutcomeSkipped}
	}

	jobs := make(chan int)
	var g errgroup.Group
	g.SetLimit(b.workers)
	for w := 0; w < b.workers; w++ {
		limiter := b.newLimiter()
		g.Go(func() error {
			for idx := range jobs {
				outcomes[idx] = b.runOne(ctx, limiter, idx, observations[idx])
			}
			return nil
		})
	}

feed:
	for i := range observations {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	_ = g.Wait()

	summary := Summary{Outcomes: outcomes, Duration: time.Since(started)}
	for i := range outcomes {
		switch outcomes[i].Status {
		case OutcomeSucceeded:
			summary.Succeeded++
		case OutcomeFailed:
			summary.Failed++
		default:
			if outcomes[i].Err == nil {
				outcomes[i].Err = context.Cause(ctx)
			}
			summary.Skipped++
		}
	}

	b.logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_completed"),
		logging.Int("total", len(observations)),
		logging.Int("succeeded", summary.Succeeded),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Duration("duration", summary.Duration))
	if len(observations) > 0 {
		b.resolver.notify(context.WithoutCancel(ctx), b.logger, notifications.EventBatchCompleted, notifications.Payload{
			"total":     len(observations),
			"succeeded": summary.Succeeded,
			"failed":    summary.Failed,
			"skipped":   summary.Skipped,
			"duration":  summary.Duration.Round(time.Millisecond).String(),
		})
	}
	return summary
}

func (b *Batch) runOne(ctx context.Context, limiter *rate.Limiter, idx int, obs Observation) Outcome {
	out := Outcome{Index: idx, FilmID: obs.FilmID, Status: OutcomeSkipped}
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	if len(obs.Candidates) == 0 && b.proposer != nil {
		if err := limiter.Wait(ctx); err != nil {
			out.Err = err
			return out
		}
		candidates, err := b.proposer.Propose(ctx, obs)
		if err != nil {
			return b.failed(out, fmt.Errorf("propose candidates: %w", err))
		}
		obs.Candidates = candidates
	}

	res, err := b.resolver.Resolve(context.WithoutCancel(ctx), obs)
	if err != nil {
		return b.failed(out, err)
	}
	out.Status = OutcomeSucceeded
	out.Resolution = res
	return out
}

func (b *Batch) failed(out Outcome, err error) Outcome {
	out.Status = OutcomeFailed
	out.Err = err
	logging.WarnWithContext(b.logger, "observation failed", "observation_failed",
		logging.Int("index", out.Index),
		logging.String(logging.FieldFilmID, out.FilmID),
		logging.String(logging.FieldErrorHint, "rerun the batch; other observations were not affected"),
		logging.String(logging.FieldImpact, "listing left unresolved"),
		logging.Error(err))
	return out
}
