package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
	"github.com/soc-lab/kestrel/pkg/service/llm"
	"github.com/soc-lab/kestrel/pkg/utils/apperr"
)

// Reports implements report generation over the stored incident history
type Reports struct {
	repo       interfaces.Repository
	incidents  interfaces.Incidents
	llmService *llm.Service
}

// NewReports creates the report use case
func NewReports(repo interfaces.Repository, incidents interfaces.Incidents, llmService *llm.Service) *Reports {
	return &Reports{
		repo:       repo,
		incidents:  incidents,
		llmService: llmService,
	}
}

// Generate builds a report over the current incidents for the given period
// and persists it. Report generation requires a configured LLM.
func (u *Reports) Generate(ctx context.Context, period string) (*model.Report, error) {
	if u.llmService == nil || !u.llmService.IsConfigured() {
		return nil, goerr.New("report generation requires a configured LLM")
	}
	if strings.TrimSpace(period) == "" {
		period = "last 7 days"
	}

	incidents, err := u.incidents.List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to collect incidents for report")
	}

	content, err := u.llmService.GenerateReport(ctx, incidents, period)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate report", goerr.V("period", period))
	}

	report, err := model.NewReport(content.Title, period, renderReport(content), types.EngineAI)
	if err != nil {
		return nil, err
	}

	if err := u.repo.SaveReport(ctx, report); err != nil {
		apperr.Handle(ctx, goerr.Wrap(err, "failed to persist report",
			goerr.V("report_id", report.ID)))
	}

	ctxlog.From(ctx).Info("report generated",
		"report_id", report.ID,
		"period", period,
		"incidents", len(incidents),
	)
	return report, nil
}

// Get returns one stored report
func (u *Reports) Get(ctx context.Context, id types.ReportID) (*model.Report, error) {
	report, err := u.repo.GetReport(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get report", goerr.V("report_id", id))
	}
	return report, nil
}

// List returns all stored reports, newest first
func (u *Reports) List(ctx context.Context) ([]*model.Report, error) {
	reports, err := u.repo.ListReports(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list reports")
	}
	return reports, nil
}

func renderReport(content *llm.ReportContent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n", content.Title, content.Summary)
	if len(content.Highlights) > 0 {
		b.WriteString("\n## Highlights\n")
		for _, h := range content.Highlights {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}
	if len(content.Recommendations) > 0 {
		b.WriteString("\n## Recommendations\n")
		for _, r := range content.Recommendations {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	return b.String()
}
