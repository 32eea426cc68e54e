// Package pipeline orchestrates a reconciliation run: directory refresh,
// enrichment, discovery, URL ingestion and name deduplication.
package pipeline

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Stage names a pipeline stage.
type Stage string

// Stages in execution order.
const (
	StageDirectory Stage = "directory"
	StageEnrich    Stage = "enrich"
	StageDiscover  Stage = "discover"
	StageIngest    Stage = "ingest"
	StageDedupe    Stage = "dedupe"
)

// AllStages lists every stage in execution order.
var AllStages = []Stage{StageDirectory, StageEnrich, StageDiscover, StageIngest, StageDedupe}

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("a reconciliation run is already in progress")

// ParseStage maps a stage name onto a Stage.
func ParseStage(s string) (Stage, error) {
	for _, stage := range AllStages {
		if string(stage) == s {
			return stage, nil
		}
	}
	return "", errors.New("unknown stage " + s)
}

// Options selects what a run does.
type Options struct {
	// Only restricts the run to these stages; empty means all.
	Only []Stage
	// Adapter stages can be skipped individually.
	SkipDirectory bool
	SkipEnrich    bool
	SkipDiscover  bool
	// Candidates are extra network-profile URLs handed to the ingest stage,
	// ahead of the discovered ones.
	Candidates []string
	OnProgress ProgressCallback
}

func (o *Options) runs(stage Stage) bool {
	if len(o.Only) > 0 && !slices.Contains(o.Only, stage) {
		return false
	}
	switch stage {
	case StageDirectory:
		return !o.SkipDirectory
	case StageEnrich:
		return !o.SkipEnrich
	case StageDiscover:
		return !o.SkipDiscover
	default:
		return true
	}
}

// StageReport is the outcome of one stage.
type StageReport struct {
	Name       Stage          `json:"name"`
	OK         bool           `json:"ok"`
	Skipped    bool           `json:"skipped,omitempty"`
	Message    string         `json:"message"`
	Counts     map[string]int `json:"counts,omitempty"`
	Duration   time.Duration  `json:"-"`
	DurationMS int64          `json:"duration_ms"`
}

// Report is the outcome of a run.
type Report struct {
	RunID      uuid.UUID     `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Stages     []StageReport `json:"stages"`
	// Discovered holds the candidate URLs found by the discover stage.
	Discovered []string `json:"discovered,omitempty"`
}

// OK reports whether every executed stage succeeded.
func (r *Report) OK() bool {
	for _, s := range r.Stages {
		if !s.OK && !s.Skipped {
			return false
		}
	}
	return true
}

// Stage returns the report of the named stage, or nil if it is absent.
func (r *Report) Stage(name Stage) *StageReport {
	for i := range r.Stages {
		if r.Stages[i].Name == name {
			return &r.Stages[i]
		}
	}
	return nil
}

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// Progress categories.
const (
	CategoryStarted   = "started"
	CategoryCompleted = "completed"
	CategoryFailed    = "failed"
	CategorySkipped   = "skipped"
	CategoryOutcome   = "outcome"
)

// ProgressCallback is called when run progress occurs
type ProgressCallback func(event ProgressEvent)
