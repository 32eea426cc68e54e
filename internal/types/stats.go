package types

// DatasetStats summarizes a dataset for the dashboard and the CLI.
type DatasetStats struct {
	Total           int `json:"total"`
	FromDirectory   int `json:"from_directory"`
	FromNetwork     int `json:"from_network"`
	MentionsTrue    int `json:"mentions_true"`
	MentionsFalse   int `json:"mentions_false"`
	MentionsUnknown int `json:"mentions_unknown"`
}

// ComputeStats counts records by source and mention state.
func ComputeStats(records []CompanyRecord) DatasetStats {
	stats := DatasetStats{Total: len(records)}
	for i := range records {
		switch records[i].Source {
		case SourceLinkedIn:
			stats.FromNetwork++
		default:
			stats.FromDirectory++
		}
		switch records[i].LinkedInMentions {
		case MentionTrue:
			stats.MentionsTrue++
		case MentionFalse:
			stats.MentionsFalse++
		default:
			stats.MentionsUnknown++
		}
	}
	return stats
}
