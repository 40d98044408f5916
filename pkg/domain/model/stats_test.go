package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/soc-lab/kestrel/pkg/domain/model"
)

func TestComputeStats(t *testing.T) {
	incidents := []*model.Incident{
		{EventID: "EVT-1", Severity: "Critical", Status: "Investigating"},
		{EventID: "EVT-2", Severity: "high", Status: "Mitigated (auto)"},
		{EventID: "EVT-3", Severity: "Medium", Status: "resolved"},
		{EventID: "EVT-4", Severity: "Low", Status: "Escalated"},
		{EventID: "EVT-5", Severity: "Extreme", Status: "Investigating"},
	}

	stats := model.ComputeStats(incidents)
	gt.Equal(t, 5, stats.Total)
	gt.Equal(t, 1, stats.Critical)
	gt.Equal(t, 1, stats.High)
	gt.Equal(t, 1, stats.Medium)
	gt.Equal(t, 1, stats.Low)
	gt.Equal(t, 2, stats.Investigating)
	gt.Equal(t, 1, stats.Mitigated)
	gt.Equal(t, 1, stats.Resolved)

	// Unrecognized severities count toward the total only
	gt.True(t, stats.Critical+stats.High+stats.Medium+stats.Low <= stats.Total)
}

func TestComputeStatsEmpty(t *testing.T) {
	stats := model.ComputeStats(nil)
	gt.Equal(t, 0, stats.Total)
	gt.Equal(t, 0, stats.Critical)
	gt.Equal(t, 0, stats.Investigating)
}
