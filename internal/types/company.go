// Package types provides type definitions for structured data used throughout the company directory.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Mention is the tri-state result of checking a network profile for an
// accelerator and cohort mention. The zero value is MentionUnknown.
type Mention int

const (
	// MentionUnknown means the profile could not be checked (fetch failed or never tried)
	MentionUnknown Mention = iota
	// MentionFalse means the profile was checked and no block mentioned both tags
	MentionFalse
	// MentionTrue means a profile block mentioned both tags
	MentionTrue
)

// MentionFromBool converts a definite answer into a Mention.
func MentionFromBool(b bool) Mention {
	if b {
		return MentionTrue
	}
	return MentionFalse
}

// Known reports whether the mention was determined.
func (m Mention) Known() bool {
	return m == MentionTrue || m == MentionFalse
}

func (m Mention) String() string {
	switch m {
	case MentionTrue:
		return "true"
	case MentionFalse:
		return "false"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes unknown as null so documents stay compatible with
// records written before classification.
func (m Mention) MarshalJSON() ([]byte, error) {
	switch m {
	case MentionTrue:
		return []byte("true"), nil
	case MentionFalse:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts true, false and null.
func (m *Mention) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true":
		*m = MentionTrue
	case "false":
		*m = MentionFalse
	case "null":
		*m = MentionUnknown
	default:
		return fmt.Errorf("invalid mention value %s: expected true, false or null", data)
	}
	return nil
}

// Source is the provenance tag of a record.
type Source string

const (
	// SourceYC marks records from the startup directory
	SourceYC Source = "yc"
	// SourceLinkedIn marks records discovered through network profiles
	SourceLinkedIn Source = "linkedin"
)

// ParseSource maps a stored provenance string onto a Source.
// Empty values and the legacy "Y Combinator" label map to SourceYC.
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yc", "y combinator", "nan":
		return SourceYC, nil
	case "linkedin":
		return SourceLinkedIn, nil
	default:
		return "", fmt.Errorf("unknown source %q", s)
	}
}

// UnmarshalJSON normalizes legacy and missing provenance values.
func (s *Source) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*s = SourceYC
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}
	parsed, err := ParseSource(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MatchEvidence locates the profile text that satisfied the classifier.
type MatchEvidence struct {
	Location string `json:"location"`
	Snippet  string `json:"snippet"`
}

// UnknownName is the placeholder name of a record whose page had no
// recognizable title. Placeholder names never identify a company.
const UnknownName = "Unknown"

// CompanyRecord is one company in the dataset.
type CompanyRecord struct {
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	Website          *string        `json:"website"`
	YCProfileURL     *string        `json:"yc_profile_url"`
	LinkedInURL      *string        `json:"linkedin_url"`
	LinkedInMentions Mention        `json:"linkedin_mentions_s25"`
	LinkedInMatch    *MatchEvidence `json:"linkedin_match"`
	Source           Source         `json:"source"`
}

// UnmarshalJSON applies the provenance default when the key is absent.
func (c *CompanyRecord) UnmarshalJSON(data []byte) error {
	type alias CompanyRecord
	aux := alias{Source: SourceYC}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = CompanyRecord(aux)
	if c.Source == "" {
		c.Source = SourceYC
	}
	return nil
}

// HasPlaceholderName reports whether the record is named UnknownName.
func (c *CompanyRecord) HasPlaceholderName() bool {
	return strings.EqualFold(strings.TrimSpace(c.Name), UnknownName)
}

// HasDirectoryProfile reports whether the record carries a directory profile URL.
func (c *CompanyRecord) HasDirectoryProfile() bool {
	return c.YCProfileURL != nil && *c.YCProfileURL != ""
}

// HasNetworkProfile reports whether the record carries a network profile URL.
func (c *CompanyRecord) HasNetworkProfile() bool {
	return c.LinkedInURL != nil && *c.LinkedInURL != ""
}

// CopyNetworkFrom overwrites the network-profile fields with those of other.
// The three fields always move together so evidence never outlives its flag.
func (c *CompanyRecord) CopyNetworkFrom(other *CompanyRecord) {
	c.LinkedInURL = other.LinkedInURL
	c.LinkedInMentions = other.LinkedInMentions
	c.LinkedInMatch = other.LinkedInMatch
}

// Validate checks the record invariants.
func (c *CompanyRecord) Validate() error {
	if c.LinkedInMatch != nil && c.LinkedInMentions != MentionTrue {
		return fmt.Errorf("record %q: linkedin_match present but linkedin_mentions_s25 is %s", c.Name, c.LinkedInMentions)
	}
	switch c.Source {
	case SourceYC, SourceLinkedIn:
	default:
		return fmt.Errorf("record %q: invalid source %q", c.Name, c.Source)
	}
	return nil
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
