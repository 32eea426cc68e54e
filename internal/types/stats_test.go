package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStats(t *testing.T) {
	records := []CompanyRecord{
		{Name: "A", Source: SourceYC, LinkedInMentions: MentionTrue},
		{Name: "B", Source: SourceYC},
		{Name: "C", Source: SourceLinkedIn, LinkedInMentions: MentionTrue},
		{Name: "D", Source: SourceYC, LinkedInMentions: MentionFalse},
	}

	assert.Equal(t, DatasetStats{
		Total:           4,
		FromDirectory:   3,
		FromNetwork:     1,
		MentionsTrue:    2,
		MentionsFalse:   1,
		MentionsUnknown: 1,
	}, ComputeStats(records))

	assert.Equal(t, DatasetStats{}, ComputeStats(nil))
}
