package reconcile

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/company-directory/internal/mention"
	"github.com/jonathan/company-directory/internal/types"
)

// EnrichResult summarizes an enrichment pass.
type EnrichResult struct {
	Checked      int       `json:"checked"`
	Updated      int       `json:"updated"`
	Undetermined int       `json:"undetermined"`
	Outcomes     []Outcome `json:"outcomes,omitempty"`
}

// Enrich classifies the network profile of every record that has a network
// URL but no mention result yet. Determined results replace the mention flag
// and evidence; undetermined ones leave the record untouched so the next run
// retries it. Records already determined are not fetched. Order is preserved.
func (e *Engine) Enrich(ctx context.Context, records []types.CompanyRecord) ([]types.CompanyRecord, EnrichResult, error) {
	var result EnrichResult

	out := make([]types.CompanyRecord, len(records))
	copy(out, records)

	targets := make([]int, 0)
	for i := range out {
		if out[i].HasNetworkProfile() && !out[i].LinkedInMentions.Known() {
			targets = append(targets, i)
		}
	}

	results := make([]mention.Result, len(targets))
	errs := make([]error, len(targets))
	started := make([]bool, len(targets))

	g := new(errgroup.Group)
	g.SetLimit(e.workers)
	for j, idx := range targets {
		if ctx.Err() != nil {
			break
		}
		started[j] = true
		profileURL := *out[idx].LinkedInURL
		name := out[idx].Name
		g.Go(func() error {
			e.log.Debug().Str("name", name).Str("url", profileURL).Msg("checking profile")
			_, res, err := e.check(ctx, profileURL)
			results[j], errs[j] = res, err
			status := StatusUpdated
			if err != nil || !res.Mention.Known() {
				status = StatusUndetermined
			}
			e.report(Outcome{URL: profileURL, Status: status, Error: errString(err)})
			return nil
		})
	}
	_ = g.Wait()

	for j, idx := range targets {
		if !started[j] {
			continue
		}
		result.Checked++
		profileURL := *out[idx].LinkedInURL
		res := results[j]
		if errs[j] != nil || !res.Mention.Known() {
			e.log.Warn().Err(errs[j]).Str("name", out[idx].Name).Str("url", profileURL).Msg("could not determine mention")
			result.Undetermined++
			result.Outcomes = append(result.Outcomes, Outcome{URL: profileURL, Status: StatusUndetermined, Error: errString(errs[j])})
			continue
		}

		out[idx].LinkedInMentions = res.Mention
		out[idx].LinkedInMatch = res.Evidence
		result.Updated++
		result.Outcomes = append(result.Outcomes, Outcome{URL: profileURL, Status: StatusUpdated})
		e.log.Info().Str("name", out[idx].Name).Stringer("mention", res.Mention).Msg("enriched company")
	}

	e.log.Info().Int("checked", result.Checked).Int("updated", result.Updated).Int("undetermined", result.Undetermined).Msg("enrichment complete")
	return out, result, ctx.Err()
}
