package model

import "strings"

// Stats holds aggregate counts over a set of incidents. The counts are pure
// functions of the input slice and are recomputed on demand, never cached.
type Stats struct {
	Total         int `json:"total"`
	Critical      int `json:"critical"`
	High          int `json:"high"`
	Medium        int `json:"medium"`
	Low           int `json:"low"`
	Investigating int `json:"investigating"`
	Mitigated     int `json:"mitigated"`
	Resolved      int `json:"resolved"`
}

// ComputeStats aggregates incidents by severity and status. Incidents with an
// unrecognized severity count toward the total but toward none of the
// severity buckets. Status matching is by case-insensitive substring, which
// tolerates annotated values like "Mitigated (auto)".
func ComputeStats(incidents []*Incident) Stats {
	stats := Stats{Total: len(incidents)}

	for _, inc := range incidents {
		if inc == nil {
			continue
		}

		switch strings.ToLower(strings.TrimSpace(inc.Severity)) {
		case "critical":
			stats.Critical++
		case "high":
			stats.High++
		case "medium":
			stats.Medium++
		case "low":
			stats.Low++
		}

		status := strings.ToLower(inc.Status.String())
		switch {
		case strings.Contains(status, "investigating"):
			stats.Investigating++
		case strings.Contains(status, "mitigated"):
			stats.Mitigated++
		case strings.Contains(status, "resolved"):
			stats.Resolved++
		}
	}

	return stats
}
