// Package fuzz drives query generation against a target: a pool of workers,
// each with its own seeded generator session, sends queries through an
// Executor and keeps what the target rejected.
package fuzz

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/orneryd/cypherfuzz/pkg/generator"
	"github.com/orneryd/cypherfuzz/pkg/stats"
	"github.com/orneryd/cypherfuzz/pkg/store"
)

// Dialer opens the executor for one worker.
type Dialer func(ctx context.Context, worker int) (Executor, error)

// Config bounds a run. Zero values mean "no limit" for Queries, Duration and
// Rate, and "no suppression" for DedupCache.
type Config struct {
	Queries    int
	Duration   time.Duration
	Workers    int
	Rate       float64
	DedupCache int
	// Seed is the base seed; worker w uses Seed+w. 0 picks one from the clock.
	Seed      int64
	Generator generator.Options
}

// Summary reports what a run did.
type Summary struct {
	RunID              string
	Seed               int64
	Generated          int64
	Executed           int64
	Duplicates         int64
	Failures           int64
	GenerationFailures int64
	Elapsed            time.Duration
}

// Runner executes one run. Stats, Findings and Log may be nil.
type Runner struct {
	Config   Config
	Catalog  generator.Catalog
	Dial     Dialer
	Stats    stats.Sink
	Findings store.Recorder
	Log      *logrus.Entry

	runID   string
	seed    int64
	claimed atomic.Int64
	limiter *rate.Limiter
	recent  *lru.Cache[string, struct{}]

	generated, executed, duplicates, failures, genFailures atomic.Int64
}

// Run blocks until the query count or duration is reached, ctx is done, or
// a worker fails. Reaching a limit or cancellation is not an error.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if r.Catalog == nil || r.Dial == nil {
		return Summary{}, errors.New("runner needs a catalog and a dialer")
	}
	if err := r.init(); err != nil {
		return Summary{}, err
	}
	if r.Config.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Config.Duration)
		defer cancel()
	}

	log := r.Log.WithField("run_id", r.runID)
	log.WithFields(logrus.Fields{
		"workers": r.Config.Workers,
		"queries": r.Config.Queries,
		"seed":    r.seed,
	}).Info("starting run")

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < r.Config.Workers; w++ {
		w := w
		g.Go(func() error {
			return r.work(gctx, w, log.WithField("worker", w))
		})
	}
	err := g.Wait()

	sum := Summary{
		RunID:              r.runID,
		Seed:               r.seed,
		Generated:          r.generated.Load(),
		Executed:           r.executed.Load(),
		Duplicates:         r.duplicates.Load(),
		Failures:           r.failures.Load(),
		GenerationFailures: r.genFailures.Load(),
		Elapsed:            time.Since(start),
	}
	entry := log.WithFields(logrus.Fields{
		"executed": sum.Executed,
		"failures": sum.Failures,
		"elapsed":  sum.Elapsed.Round(time.Millisecond),
	})
	if err != nil {
		entry.WithError(err).Error("run aborted")
		return sum, err
	}
	entry.Info("run finished")
	return sum, nil
}

func (r *Runner) init() error {
	if r.Config.Workers <= 0 {
		r.Config.Workers = 1
	}
	if r.Stats == nil {
		r.Stats = stats.Discard{}
	}
	if r.Findings == nil {
		r.Findings = store.Discard{}
	}
	if r.Log == nil {
		r.Log = logrus.WithField("component", "fuzz")
	}
	r.runID = uuid.NewString()
	r.seed = r.Config.Seed
	if r.seed == 0 {
		r.seed = time.Now().UnixNano()
	}

	r.limiter = rate.NewLimiter(rate.Inf, 0)
	if r.Config.Rate > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(r.Config.Rate), r.Config.Workers)
	}
	if r.Config.DedupCache > 0 {
		c, err := lru.New[string, struct{}](r.Config.DedupCache)
		if err != nil {
			return fmt.Errorf("failed to create dedup cache: %w", err)
		}
		r.recent = c
	}
	return nil
}

// claim reserves one query slot; false once the query count is used up.
func (r *Runner) claim() bool {
	if r.Config.Queries <= 0 {
		return true
	}
	return r.claimed.Add(1) <= int64(r.Config.Queries)
}

func (r *Runner) work(ctx context.Context, w int, log *logrus.Entry) error {
	exec, err := r.Dial(ctx, w)
	if err != nil {
		return fmt.Errorf("worker %d: failed to open executor: %w", w, err)
	}
	defer func() {
		if err := exec.Close(); err != nil {
			log.WithError(err).Warn("failed to close executor")
		}
	}()

	seed := r.seed + int64(w)
	opts := r.Config.Generator
	opts.Seed = seed
	opts.Rand = nil
	opts.Logger = log
	session := generator.NewSession(r.Catalog, opts)

	for ctx.Err() == nil && r.claim() {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil
		}
		if err := r.one(ctx, session, exec, seed, log); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("worker %d: %w", w, err)
		}
	}
	return nil
}

// one generates, deduplicates, executes and records a single query.
func (r *Runner) one(ctx context.Context, session *generator.Session, exec Executor, seed int64, log *logrus.Entry) error {
	res, err := session.Generate()
	if err != nil {
		var d *generator.Diagnostic
		if errors.As(err, &d) && d.Level == generator.LevelError && !errors.Is(err, generator.ErrRetryLimit) {
			return err
		}
		if generator.IsBug(err) {
			log.WithError(err).Error("generator bug")
		}
		r.genFailures.Add(1)
		obs := stats.Observation{Result: stats.ResultGenerationFailed}
		if d != nil {
			obs.Attempts = d.Attempts
		}
		r.Stats.RecordOutcome(obs)
		return nil
	}
	r.generated.Add(1)

	obs := stats.Observation{
		NodeCount: res.Shape.Nodes,
		Depth:     res.Shape.Depth,
		Attempts:  res.Attempts,
	}
	if r.recent != nil {
		if seen, _ := r.recent.ContainsOrAdd(res.Text, struct{}{}); seen {
			r.duplicates.Add(1)
			obs.Result = stats.ResultDuplicate
			r.Stats.RecordOutcome(obs)
			return nil
		}
	}

	out, err := exec.Execute(ctx, res.Text)
	if err != nil {
		return err
	}
	r.executed.Add(1)
	obs.Result = stats.ResultOK
	if !out.OK() {
		r.failures.Add(1)
		obs.Result = stats.ResultError
		obs.Errors = len(out.Errors)
		f := &store.Finding{
			RunID:     r.runID,
			Seed:      seed,
			Query:     res.Text,
			Errors:    out.Errors,
			NodeCount: res.Shape.Nodes,
			Depth:     res.Shape.Depth,
		}
		if err := r.Findings.Record(ctx, f); err != nil {
			return fmt.Errorf("failed to record finding: %w", err)
		}
		log.WithFields(logrus.Fields{"finding": f.ID, "error": out.Errors[0]}).Debug("query rejected")
	}
	r.Stats.RecordOutcome(obs)
	return nil
}
