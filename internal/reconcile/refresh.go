package reconcile

import (
	"github.com/jonathan/company-directory/internal/types"
)

// RefreshResult summarizes a directory refresh.
type RefreshResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
}

// RefreshDirectory upserts freshly scraped directory records into existing,
// matching on the normalized directory URL. A match takes the directory's
// name, description and website, and its network URL only when the existing
// record has none; mention results are kept. Unmatched records are appended.
// Existing order is preserved and existing is not modified.
func RefreshDirectory(existing, fresh []types.CompanyRecord) ([]types.CompanyRecord, RefreshResult) {
	var result RefreshResult

	out := make([]types.CompanyRecord, len(existing), len(existing)+len(fresh))
	copy(out, existing)

	index := make(map[string]int, len(out))
	for i := range out {
		if norm := NormalizeURL(out[i].YCProfileURL); norm != nil {
			if _, dup := index[*norm]; !dup {
				index[*norm] = i
			}
		}
	}

	for _, rec := range fresh {
		norm := NormalizeURL(rec.YCProfileURL)
		if norm == nil {
			out = append(out, rec)
			result.Added++
			continue
		}

		i, ok := index[*norm]
		if !ok {
			index[*norm] = len(out)
			out = append(out, rec)
			result.Added++
			continue
		}

		cur := &out[i]
		cur.Name = rec.Name
		cur.Description = rec.Description
		if rec.Website != nil {
			cur.Website = rec.Website
		}
		if !cur.HasNetworkProfile() && rec.HasNetworkProfile() {
			cur.LinkedInURL = rec.LinkedInURL
			cur.LinkedInMentions = types.MentionUnknown
			cur.LinkedInMatch = nil
		}
		cur.Source = types.SourceYC
		result.Updated++
	}

	return out, result
}
