package mention

import (
	"errors"
	"testing"

	"github.com/jonathan/company-directory/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_NameBlockWins(t *testing.T) {
	c := NewClassifier(DefaultTags())

	result := c.Classify([]TextBlock{
		{Label: LabelName, Text: "acme (yc s25)"},
		{Label: LabelFullDesc, Text: "we build widgets"},
	})

	assert.True(t, result.Matched())
	require.NotNil(t, result.Evidence)
	assert.Equal(t, "name", result.Evidence.Location)
	assert.Equal(t, "acme (yc s25)", result.Evidence.Snippet)
}

func TestClassify_FirstMatchingBlockWins(t *testing.T) {
	c := NewClassifier(DefaultTags())

	result := c.Classify([]TextBlock{
		{Label: LabelName, Text: "acme"},
		{Label: LabelShortDesc, Text: "backed by y combinator, summer 2025"},
		{Label: LabelFullDesc, Text: "yc s25 company"},
	})

	require.True(t, result.Matched())
	assert.Equal(t, LabelShortDesc, result.Evidence.Location)
}

func TestClassify_BothTagsMustBeInSameBlock(t *testing.T) {
	c := NewClassifier(DefaultTags())

	result := c.Classify([]TextBlock{
		{Label: LabelName, Text: "acme (yc)"},
		{Label: LabelFullDesc, Text: "launched in summer 2025"},
	})

	assert.Equal(t, types.MentionFalse, result.Mention)
	assert.Nil(t, result.Evidence)
}

func TestClassify_TagVariants(t *testing.T) {
	c := NewClassifier(DefaultTags())

	tests := []struct {
		text string
		want types.Mention
	}{
		{"ycombinator summer2025", types.MentionTrue},
		{"y combinator 2025 summer batch", types.MentionTrue},
		{"yc 2025summer", types.MentionTrue},
		{"YC S25", types.MentionTrue},
		{"yc w25", types.MentionFalse},
		{"s25 only", types.MentionFalse},
		{"", types.MentionFalse},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			result := c.Classify([]TextBlock{{Label: LabelFullDesc, Text: tt.text}})
			assert.Equal(t, tt.want, result.Mention)
		})
	}
}

func TestClassify_NoBlocksIsFalse(t *testing.T) {
	c := NewClassifier(DefaultTags())

	result := c.Classify(nil)
	assert.Equal(t, types.MentionFalse, result.Mention)
}

func TestClassifyFetched_FailureIsUnknown(t *testing.T) {
	c := NewClassifier(DefaultTags())

	result := c.ClassifyFetched(nil, errors.New("HTTP status 999"))
	assert.Equal(t, types.MentionUnknown, result.Mention)
	assert.NotEqual(t, types.MentionFalse, result.Mention)
	assert.Nil(t, result.Evidence)
	assert.False(t, result.Matched())
}

func TestClassifyFetched_Success(t *testing.T) {
	c := NewClassifier(DefaultTags())

	result := c.ClassifyFetched([]TextBlock{{Label: LabelName, Text: "widgets inc"}}, nil)
	assert.Equal(t, types.MentionFalse, result.Mention)
}

func TestNewClassifier_CustomTags(t *testing.T) {
	c := NewClassifier(Tags{Accelerator: []string{" Techstars "}, Cohort: []string{"W24"}})

	result := c.Classify([]TextBlock{{Label: LabelName, Text: "techstars w24"}})
	assert.True(t, result.Matched())
}
