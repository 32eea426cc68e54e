package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jonathan/company-directory/internal/mention"
	"github.com/jonathan/company-directory/internal/sources"
	"github.com/jonathan/company-directory/internal/types"
)

// DefaultWorkers is the default number of concurrent profile fetches.
// Pacing still applies per host, so extra workers only overlap latency.
const DefaultWorkers = 4

// ProfileSource fetches network profiles. *sources.LinkedIn implements it.
type ProfileSource interface {
	FetchProfile(ctx context.Context, profileURL string) (*sources.Profile, error)
}

// OutcomeStatus classifies what happened to one candidate or record.
type OutcomeStatus string

// Outcome statuses.
const (
	StatusAdded        OutcomeStatus = "added"
	StatusExisting     OutcomeStatus = "existing"
	StatusDuplicate    OutcomeStatus = "duplicate_in_batch"
	StatusRejected     OutcomeStatus = "rejected"
	StatusUndetermined OutcomeStatus = "undetermined"
	StatusInvalid      OutcomeStatus = "invalid"
	StatusUpdated      OutcomeStatus = "updated"
)

// Outcome reports the handling of one URL.
type Outcome struct {
	URL    string        `json:"url"`
	Status OutcomeStatus `json:"status"`
	Error  string        `json:"error,omitempty"`
}

// Config configures an Engine.
type Config struct {
	Workers int
	Merge   MergeOptions
	Logger  zerolog.Logger
	// OnOutcome, when set, is called once per processed URL. Calls are serialized.
	OnOutcome func(Outcome)
}

// Engine runs the reconciliation passes.
type Engine struct {
	profiles   ProfileSource
	classifier *mention.Classifier
	workers    int
	merge      MergeOptions
	log        zerolog.Logger

	outcomeMu sync.Mutex
	onOutcome func(Outcome)
}

// NewEngine creates an engine fetching profiles from profiles.
func NewEngine(profiles ProfileSource, classifier *mention.Classifier, cfg Config) *Engine {
	workers := cfg.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}
	policy := cfg.Merge.NeitherDirectoryPolicy
	if policy == "" {
		policy = PolicyDiscard
	}
	return &Engine{
		profiles:   profiles,
		classifier: classifier,
		workers:    workers,
		merge:      MergeOptions{NeitherDirectoryPolicy: policy},
		log:        cfg.Logger,
		onOutcome:  cfg.OnOutcome,
	}
}

func (e *Engine) report(o Outcome) {
	if e.onOutcome == nil {
		return
	}
	e.outcomeMu.Lock()
	defer e.outcomeMu.Unlock()
	e.onOutcome(o)
}

// check fetches and classifies one profile. A fetch failure or a panic in the
// adapter yields an undetermined result instead of failing the batch.
func (e *Engine) check(ctx context.Context, profileURL string) (profile *sources.Profile, result mention.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			profile = nil
			result = mention.Result{}
			err = fmt.Errorf("profile check panicked: %v", r)
		}
	}()

	profile, err = e.profiles.FetchProfile(ctx, profileURL)
	if err != nil {
		return nil, e.classifier.ClassifyFetched(nil, err), err
	}
	return profile, e.classifier.Classify(profile.Blocks), nil
}

// Dedupe runs the name merge with the engine's merge options and logs each decision.
func (e *Engine) Dedupe(records []types.CompanyRecord) ([]types.CompanyRecord, MergeResult) {
	merged, result := Merge(records, e.merge)
	for _, d := range result.Decisions {
		e.log.Info().
			Str("key", d.Key).
			Str("kept", d.Kept).
			Str("dropped", d.Dropped).
			Str("action", string(d.Action)).
			Bool("backfilled", d.Backfilled).
			Msg("merged duplicate")
	}
	e.log.Info().Int("duplicates_removed", result.DuplicatesRemoved).Int("records", len(merged)).Msg("deduplication complete")
	return merged, result
}
