package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jonathan/company-directory/internal/mention"
	"github.com/jonathan/company-directory/internal/reconcile"
	"github.com/jonathan/company-directory/internal/store"
	"github.com/jonathan/company-directory/internal/types"
)

// DirectorySource lists and fetches the directory's companies.
type DirectorySource interface {
	FetchDirectoryCompanies(ctx context.Context) ([]types.CompanyRecord, error)
}

// Discoverer finds candidate network-profile URLs from known profiles.
type Discoverer interface {
	DiscoverSimilar(ctx context.Context, profileURLs []string) ([]string, error)
}

// Deps are the collaborators of a Runner. Directory and Discoverer may be
// nil, in which case their stages are reported as skipped.
type Deps struct {
	Store      store.Store
	Profiles   reconcile.ProfileSource
	Classifier *mention.Classifier
	Directory  DirectorySource
	Discoverer Discoverer
	// Lock guards against runs in other processes; optional.
	Lock       *store.RunLock
	Engine     reconcile.Config
	Logger     zerolog.Logger
}

// Runner executes reconciliation runs, one at a time.
type Runner struct {
	deps    Deps
	log     zerolog.Logger
	running atomic.Bool
}

// NewRunner creates a runner.
func NewRunner(deps Deps) *Runner {
	return &Runner{deps: deps, log: deps.Logger}
}

// Running reports whether a run is active in this process.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Dataset returns the canonical (deduplicated) dataset.
func (r *Runner) Dataset(ctx context.Context) ([]types.CompanyRecord, error) {
	return r.deps.Store.Load(ctx, store.DocDeduplicated)
}

// Restore replaces the canonical dataset with its backup.
// It is refused while a run is active in this or another process.
func (r *Runner) Restore(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	defer r.running.Store(false)

	release, err := r.lock("restore", r.log)
	if err != nil {
		return err
	}
	defer release()

	if err := r.deps.Store.Restore(ctx); err != nil {
		return err
	}
	r.log.Info().Msg("restored canonical dataset from backup")
	return nil
}

// lock takes the cross-process run lock when one is configured.
func (r *Runner) lock(holder string, log zerolog.Logger) (func(), error) {
	if r.deps.Lock == nil {
		return func() {}, nil
	}
	if err := r.deps.Lock.Acquire(holder); err != nil {
		if errors.Is(err, store.ErrLocked) {
			return nil, fmt.Errorf("%w: %w", ErrRunInProgress, err)
		}
		return nil, err
	}
	return func() {
		if err := r.deps.Lock.Release(); err != nil {
			log.Warn().Err(err).Msg("failed to release run lock")
		}
	}, nil
}

// Run executes the selected stages in order. Adapter failures are recorded in
// the report and the run continues; data corruption and cancellation abort
// the run and are returned together with the partial report.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	report := &Report{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
		Stages:    make([]StageReport, 0, len(AllStages)),
	}
	log := r.log.With().Str("run_id", report.RunID.String()).Logger()

	release, err := r.lock("run "+report.RunID.String(), log)
	if err != nil {
		return nil, err
	}
	defer release()

	exec := &run{
		Runner: r,
		opts:   opts,
		report: report,
		log:    log,
	}
	exec.engine = reconcile.NewEngine(r.deps.Profiles, r.deps.Classifier, exec.engineConfig())

	log.Info().Msg("reconciliation run started")
	err = exec.execute(ctx)
	report.FinishedAt = time.Now().UTC()

	if err != nil {
		log.Error().Err(err).Msg("reconciliation run aborted")
		return report, err
	}
	log.Info().Bool("ok", report.OK()).Dur("took", report.FinishedAt.Sub(report.StartedAt)).Msg("reconciliation run finished")
	return report, nil
}

// run holds the state of one execution.
type run struct {
	*Runner
	opts       Options
	report     *Report
	log        zerolog.Logger
	engine     *reconcile.Engine
	candidates []string

	progressMu sync.Mutex
}

func (x *run) engineConfig() reconcile.Config {
	cfg := x.deps.Engine
	cfg.Logger = x.log
	user := cfg.OnOutcome
	cfg.OnOutcome = func(o reconcile.Outcome) {
		if user != nil {
			user(o)
		}
		x.emit("", CategoryOutcome, fmt.Sprintf("%s: %s", o.Status, o.URL), o)
	}
	return cfg
}

func (x *run) emit(step Stage, category, message string, content any) {
	if x.opts.OnProgress == nil {
		return
	}
	x.progressMu.Lock()
	defer x.progressMu.Unlock()
	x.opts.OnProgress(ProgressEvent{
		Step:     string(step),
		Category: category,
		Message:  message,
		RunID:    x.report.RunID.String(),
		Content:  content,
	})
}

type stageFunc func(ctx context.Context, sr *StageReport) error

func (x *run) execute(ctx context.Context) error {
	x.candidates = append([]string(nil), x.opts.Candidates...)

	stages := []struct {
		name      Stage
		fn        stageFunc
		available bool
	}{
		{StageDirectory, x.directory, x.deps.Directory != nil},
		{StageEnrich, x.enrich, x.deps.Profiles != nil},
		{StageDiscover, x.discover, x.deps.Discoverer != nil},
		{StageIngest, x.ingest, x.deps.Profiles != nil},
		{StageDedupe, x.dedupe, true},
	}

	for _, st := range stages {
		if !x.opts.runs(st.name) {
			continue
		}
		if !st.available {
			x.skip(st.name, "no source configured")
			continue
		}
		if err := x.stage(ctx, st.name, st.fn); err != nil {
			return err
		}
	}
	return nil
}

func (x *run) skip(name Stage, reason string) {
	x.report.Stages = append(x.report.Stages, StageReport{Name: name, OK: true, Skipped: true, Message: reason})
	x.log.Info().Str("stage", string(name)).Str("reason", reason).Msg("stage skipped")
	x.emit(name, CategorySkipped, reason, nil)
}

// stage runs fn and records its report. It returns an error only when the
// run must abort.
func (x *run) stage(ctx context.Context, name Stage, fn stageFunc) error {
	log := x.log.With().Str("stage", string(name)).Logger()
	log.Info().Msg("stage started")
	x.emit(name, CategoryStarted, fmt.Sprintf("%s stage started", name), nil)

	sr := StageReport{Name: name, Counts: map[string]int{}}
	start := time.Now()
	err := fn(ctx, &sr)
	sr.Duration = time.Since(start)
	sr.DurationMS = sr.Duration.Milliseconds()

	if err != nil {
		sr.OK = false
		sr.Message = err.Error()
		x.report.Stages = append(x.report.Stages, sr)
		x.emit(name, CategoryFailed, sr.Message, sr)

		if fatal(ctx, err) {
			return fmt.Errorf("%s stage: %w", name, err)
		}
		log.Warn().Err(err).Msg("stage failed, continuing")
		return nil
	}

	sr.OK = true
	x.report.Stages = append(x.report.Stages, sr)
	log.Info().Str("result", sr.Message).Dur("took", sr.Duration).Msg("stage completed")
	x.emit(name, CategoryCompleted, sr.Message, sr)
	return nil
}

// fatal reports whether a stage error aborts the run.
func fatal(ctx context.Context, err error) bool {
	return errors.Is(err, store.ErrCorrupt) || ctx.Err() != nil
}

func (x *run) directory(ctx context.Context, sr *StageReport) error {
	existing, err := x.deps.Store.Load(ctx, store.DocRaw)
	if err != nil {
		return err
	}

	fresh, err := x.deps.Directory.FetchDirectoryCompanies(ctx)
	if err != nil {
		return fmt.Errorf("directory scrape failed: %w", err)
	}

	merged, res := reconcile.RefreshDirectory(existing, fresh)
	if err := x.deps.Store.Save(ctx, store.DocRaw, merged); err != nil {
		return err
	}

	sr.Counts["scraped"] = len(fresh)
	sr.Counts["added"] = res.Added
	sr.Counts["updated"] = res.Updated
	sr.Message = fmt.Sprintf("scraped %d companies: %d added, %d updated", len(fresh), res.Added, res.Updated)
	return nil
}

func (x *run) enrich(ctx context.Context, sr *StageReport) error {
	records, err := x.deps.Store.Load(ctx, store.DocRaw)
	if err != nil {
		return err
	}

	updated, res, runErr := x.engine.Enrich(ctx, records)
	if res.Updated > 0 {
		if err := x.deps.Store.Save(ctx, store.DocRaw, updated); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}

	sr.Counts["checked"] = res.Checked
	sr.Counts["updated"] = res.Updated
	sr.Counts["undetermined"] = res.Undetermined
	sr.Message = fmt.Sprintf("checked %d profiles: %d updated, %d undetermined", res.Checked, res.Updated, res.Undetermined)
	return nil
}

func (x *run) discover(ctx context.Context, sr *StageReport) error {
	records, err := x.deps.Store.Load(ctx, store.DocRaw)
	if err != nil {
		return err
	}

	seeds := make([]string, 0, len(records))
	for i := range records {
		if records[i].HasNetworkProfile() {
			seeds = append(seeds, *records[i].LinkedInURL)
		}
	}

	found, err := x.deps.Discoverer.DiscoverSimilar(ctx, seeds)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	x.candidates = append(x.candidates, found...)
	x.report.Discovered = found

	sr.Counts["seeds"] = len(seeds)
	sr.Counts["discovered"] = len(found)
	sr.Message = fmt.Sprintf("discovered %d candidate profiles from %d seeds", len(found), len(seeds))
	return nil
}

func (x *run) ingest(ctx context.Context, sr *StageReport) error {
	existing, err := x.deps.Store.Load(ctx, store.DocRaw)
	if err != nil {
		return err
	}

	records, res, runErr := x.engine.Ingest(ctx, existing, x.candidates)
	if res.Added > 0 {
		if err := x.deps.Store.Save(ctx, store.DocRaw, records); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}

	sr.Counts["candidates"] = len(x.candidates)
	sr.Counts["added"] = res.Added
	sr.Counts["skipped_existing"] = res.SkippedExisting
	sr.Counts["duplicate_in_batch"] = res.DuplicateInBatch
	sr.Counts["rejected"] = res.Rejected
	sr.Counts["undetermined"] = res.Undetermined
	sr.Counts["invalid"] = res.Invalid
	sr.Message = fmt.Sprintf("added %d, skipped %d existing and %d repeated, rejected %d, undetermined %d",
		res.Added, res.SkippedExisting, res.DuplicateInBatch, res.Rejected, res.Undetermined)
	return nil
}

func (x *run) dedupe(ctx context.Context, sr *StageReport) error {
	records, err := x.deps.Store.Load(ctx, store.DocRaw)
	if err != nil {
		return err
	}

	merged, res := x.engine.Dedupe(records)

	if err := x.deps.Store.Backup(ctx); err != nil {
		return fmt.Errorf("failed to back up canonical dataset: %w", err)
	}
	if err := x.deps.Store.Save(ctx, store.DocDeduplicated, merged); err != nil {
		return err
	}

	sr.Counts["input"] = len(records)
	sr.Counts["duplicates_removed"] = res.DuplicatesRemoved
	sr.Counts["records"] = len(merged)
	sr.Message = fmt.Sprintf("removed %d duplicates, %d records remain", res.DuplicatesRemoved, len(merged))
	return nil
}
