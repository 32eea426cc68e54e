package reconcile

import (
	"fmt"

	"github.com/jonathan/company-directory/internal/types"
)

// NeitherDirectoryPolicy decides what happens when two records share a name
// key and neither carries a directory profile URL.
type NeitherDirectoryPolicy string

const (
	// PolicyDiscard drops the later record without copying anything from it.
	PolicyDiscard NeitherDirectoryPolicy = "discard"
	// PolicyUnion keeps the earlier record and fills its empty fields from the later one.
	PolicyUnion NeitherDirectoryPolicy = "union"
)

// ParseNeitherDirectoryPolicy parses a configured policy name. Empty means discard.
func ParseNeitherDirectoryPolicy(s string) (NeitherDirectoryPolicy, error) {
	switch NeitherDirectoryPolicy(s) {
	case "", PolicyDiscard:
		return PolicyDiscard, nil
	case PolicyUnion:
		return PolicyUnion, nil
	default:
		return "", fmt.Errorf("unknown merge policy %q (expected %q or %q)", s, PolicyDiscard, PolicyUnion)
	}
}

// MergeOptions configures the name merge.
type MergeOptions struct {
	NeitherDirectoryPolicy NeitherDirectoryPolicy
}

// MergeAction describes how one duplicate was resolved.
type MergeAction string

const (
	// ActionKeepPrimary: the earlier record had the directory URL and absorbed the later one.
	ActionKeepPrimary MergeAction = "keep_primary"
	// ActionFlip: the later record had the directory URL and replaced the earlier one.
	ActionFlip MergeAction = "flip"
	// ActionDiscard: neither had a directory URL and the later record was dropped.
	ActionDiscard MergeAction = "discard"
	// ActionUnion: neither had a directory URL and the later record filled empty fields.
	ActionUnion MergeAction = "union"
)

// MergeDecision records one resolved duplicate.
type MergeDecision struct {
	Key        string      `json:"key"`
	Kept       string      `json:"kept"`
	Dropped    string      `json:"dropped"`
	Action     MergeAction `json:"action"`
	Backfilled bool        `json:"backfilled"`
}

// MergeResult summarizes a merge pass.
type MergeResult struct {
	DuplicatesRemoved int             `json:"duplicates_removed"`
	Decisions         []MergeDecision `json:"decisions,omitempty"`
}

// Merge collapses records sharing a normalized name into one record per key,
// in a single pass in encounter order. The survivor takes the slot of the
// first record seen for its key. Records with an empty key or the placeholder
// name are never merged.
// The input slice is not modified.
//
// The record holding the directory URL is authoritative. When the survivor
// lacks a network profile and the other record has one, the network URL,
// mention flag and match evidence are copied over together.
func Merge(records []types.CompanyRecord, opts MergeOptions) ([]types.CompanyRecord, MergeResult) {
	out := make([]types.CompanyRecord, 0, len(records))
	slots := make(map[string]int)
	var result MergeResult

	for _, record := range records {
		key := NormalizeName(record.Name)
		if key == "" || record.HasPlaceholderName() {
			out = append(out, record)
			continue
		}

		idx, seen := slots[key]
		if !seen {
			slots[key] = len(out)
			out = append(out, record)
			continue
		}

		primary := out[idx]
		secondary := record
		decision := MergeDecision{Key: key}

		switch {
		case primary.HasDirectoryProfile():
			if !primary.HasNetworkProfile() && secondary.HasNetworkProfile() {
				primary.CopyNetworkFrom(&secondary)
				decision.Backfilled = true
			}
			decision.Action = ActionKeepPrimary
			decision.Kept, decision.Dropped = primary.Name, secondary.Name
			out[idx] = primary

		case secondary.HasDirectoryProfile():
			if !secondary.HasNetworkProfile() && primary.HasNetworkProfile() {
				secondary.CopyNetworkFrom(&primary)
				decision.Backfilled = true
			}
			decision.Action = ActionFlip
			decision.Kept, decision.Dropped = secondary.Name, primary.Name
			out[idx] = secondary

		case opts.NeitherDirectoryPolicy == PolicyUnion:
			decision.Backfilled = unionFill(&primary, &secondary)
			decision.Action = ActionUnion
			decision.Kept, decision.Dropped = primary.Name, secondary.Name
			out[idx] = primary

		default:
			decision.Action = ActionDiscard
			decision.Kept, decision.Dropped = primary.Name, secondary.Name
		}

		result.DuplicatesRemoved++
		result.Decisions = append(result.Decisions, decision)
	}

	return out, result
}

// unionFill copies each field that dst lacks from src. The network fields
// move as one unit. Reports whether anything was copied.
func unionFill(dst, src *types.CompanyRecord) bool {
	changed := false
	if dst.Description == "" && src.Description != "" {
		dst.Description = src.Description
		changed = true
	}
	if dst.Website == nil && src.Website != nil {
		dst.Website = src.Website
		changed = true
	}
	if !dst.HasDirectoryProfile() && src.HasDirectoryProfile() {
		dst.YCProfileURL = src.YCProfileURL
		changed = true
	}
	if !dst.HasNetworkProfile() && src.HasNetworkProfile() {
		dst.CopyNetworkFrom(src)
		changed = true
	}
	return changed
}
