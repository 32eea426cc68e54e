// Package mention decides whether profile text mentions both an accelerator tag and a cohort tag.
package mention

import (
	"strings"

	"github.com/jonathan/company-directory/internal/types"
)

// Block labels emitted by the profile adapter, in priority order.
const (
	LabelName      = "name"
	LabelShortDesc = "short_desc"
	LabelFullDesc  = "full_desc"
)

// TextBlock is one labeled piece of text extracted from a profile.
type TextBlock struct {
	Label string
	Text  string
}

// Result is the outcome of classifying one profile.
type Result struct {
	Mention  types.Mention
	Evidence *types.MatchEvidence
}

// Matched reports whether the profile mentioned both tags.
func (r Result) Matched() bool {
	return r.Mention == types.MentionTrue
}

// Classifier matches text blocks against fixed tag sets.
type Classifier struct {
	tags Tags
}

// NewClassifier creates a classifier for the given tags.
// Tags are lower-cased so matching is case-insensitive.
func NewClassifier(tags Tags) *Classifier {
	return &Classifier{tags: tags.normalized()}
}

// Classify checks blocks in order. The first block containing an
// accelerator tag and a cohort tag wins. A page without any matching
// block is a definite false, even when it had no blocks at all.
func (c *Classifier) Classify(blocks []TextBlock) Result {
	for _, block := range blocks {
		text := strings.ToLower(strings.TrimSpace(block.Text))
		if text == "" {
			continue
		}
		if containsAny(text, c.tags.Accelerator) && containsAny(text, c.tags.Cohort) {
			return Result{
				Mention:  types.MentionTrue,
				Evidence: &types.MatchEvidence{Location: block.Label, Snippet: text},
			}
		}
	}
	return Result{Mention: types.MentionFalse}
}

// ClassifyFetched classifies the output of a profile fetch.
// A fetch error means nothing could be determined and yields MentionUnknown.
func (c *Classifier) ClassifyFetched(blocks []TextBlock, fetchErr error) Result {
	if fetchErr != nil {
		return Result{Mention: types.MentionUnknown}
	}
	return c.Classify(blocks)
}

func containsAny(text string, tags []string) bool {
	for _, tag := range tags {
		if tag != "" && strings.Contains(text, tag) {
			return true
		}
	}
	return false
}
