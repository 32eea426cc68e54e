package reconcile

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/company-directory/internal/mention"
	"github.com/jonathan/company-directory/internal/sources"
	"github.com/jonathan/company-directory/internal/types"
)

// IngestResult summarizes one URL ingestion batch.
type IngestResult struct {
	Added            int       `json:"added"`
	SkippedExisting  int       `json:"skipped_existing"`
	DuplicateInBatch int       `json:"duplicate_in_batch"`
	Rejected         int       `json:"rejected"`
	Undetermined     int       `json:"undetermined"`
	Invalid          int       `json:"invalid"`
	Outcomes         []Outcome `json:"outcomes,omitempty"`
}

type checked struct {
	url     string
	profile *sources.Profile
	result  mention.Result
	err     error
}

// Ingest adds confirmed network-profile candidates to the dataset.
//
// Each candidate URL is normalized and compared with the network URLs of the
// existing records and of the candidates queued earlier in the batch; a
// match is skipped without fetching. The two kinds of skip are counted apart. The remaining candidates are fetched and
// classified, and only those whose profile mentions both tags are appended,
// in candidate order. Rejected and undetermined candidates never enter the
// dataset. A failing candidate never stops the batch; only cancellation of
// ctx returns an error, together with the records added so far.
func (e *Engine) Ingest(ctx context.Context, existing []types.CompanyRecord, candidates []string) ([]types.CompanyRecord, IngestResult, error) {
	var result IngestResult

	known := make(map[string]bool, len(existing))
	for i := range existing {
		if norm := NormalizeURL(existing[i].LinkedInURL); norm != nil {
			known[*norm] = true
		}
	}

	queued := make(map[string]bool, len(candidates))
	pending := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		norm := NormalizeURLString(candidate)
		switch {
		case norm == "":
			result.Invalid++
			e.record(&result, Outcome{URL: candidate, Status: StatusInvalid})
		case known[norm]:
			e.log.Debug().Str("url", candidate).Msg("already exists, skipping")
			result.SkippedExisting++
			e.record(&result, Outcome{URL: candidate, Status: StatusExisting})
		case queued[norm]:
			e.log.Debug().Str("url", candidate).Msg("duplicate in batch, skipping")
			result.DuplicateInBatch++
			e.record(&result, Outcome{URL: candidate, Status: StatusDuplicate})
		default:
			queued[norm] = true
			pending = append(pending, candidate)
		}
	}

	results := make([]checked, len(pending))
	g := new(errgroup.Group)
	g.SetLimit(e.workers)
	for i, candidate := range pending {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			e.log.Debug().Str("url", candidate).Msg("checking candidate")
			profile, res, err := e.check(ctx, candidate)
			results[i] = checked{url: candidate, profile: profile, result: res, err: err}
			e.report(results[i].outcome())
			return nil
		})
	}
	_ = g.Wait()

	out := make([]types.CompanyRecord, len(existing), len(existing)+len(pending))
	copy(out, existing)

	for _, c := range results {
		if c.url == "" {
			// never started because ctx was canceled
			continue
		}
		outcome := c.outcome()
		result.Outcomes = append(result.Outcomes, outcome)
		switch outcome.Status {
		case StatusUndetermined:
			e.log.Warn().Err(c.err).Str("url", c.url).Msg("could not determine mention, skipping")
			result.Undetermined++
		case StatusRejected:
			e.log.Debug().Str("url", c.url).Msg("no accelerator mention, skipping")
			result.Rejected++
		default:
			record := c.profile.Record(c.result)
			out = append(out, record)
			result.Added++
			e.log.Info().Str("url", c.url).Str("name", record.Name).Str("location", c.result.Evidence.Location).Msg("added company")
		}
	}

	e.log.Info().
		Int("added", result.Added).
		Int("skipped_existing", result.SkippedExisting).
		Int("duplicate_in_batch", result.DuplicateInBatch).
		Int("rejected", result.Rejected).
		Int("undetermined", result.Undetermined).
		Msg("ingestion complete")

	return out, result, ctx.Err()
}

func (e *Engine) record(result *IngestResult, o Outcome) {
	result.Outcomes = append(result.Outcomes, o)
	e.report(o)
}

func (c checked) outcome() Outcome {
	switch {
	case c.err != nil || !c.result.Mention.Known():
		return Outcome{URL: c.url, Status: StatusUndetermined, Error: errString(c.err)}
	case !c.result.Matched():
		return Outcome{URL: c.url, Status: StatusRejected}
	default:
		return Outcome{URL: c.url, Status: StatusAdded}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
