package models

import (
	"fmt"
	"math"
	"time"
)

// CaseStats summarizes a case list for the dashboard counters.
type CaseStats struct {
	Total        int    `json:"total"`
	Critical     int    `json:"critical"`
	Today        int    `json:"today"`
	Resolved     int    `json:"resolved"`
	ResolvedRate string `json:"resolvedRate"`
}

// ComputeStats counts cases by priority, status, and creation day.
func ComputeStats(cases []*Case, now time.Time) CaseStats {
	today := now.Format(DateLayout)
	stats := CaseStats{Total: len(cases)}
	for _, c := range cases {
		if c.Priority == PriorityCritical {
			stats.Critical++
		}
		if c.CreationDate == today {
			stats.Today++
		}
		if c.Status == StatusResolved {
			stats.Resolved++
		}
	}
	stats.ResolvedRate = "0%"
	if stats.Total > 0 {
		rate := math.Round(float64(stats.Resolved) / float64(stats.Total) * 100)
		stats.ResolvedRate = fmt.Sprintf("%d%%", int(rate))
	}
	return stats
}
