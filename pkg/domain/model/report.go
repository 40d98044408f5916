package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// Report represents a generated security report persisted in the repository.
// Content holds the structured report body as produced by the LLM.
type Report struct {
	ID          types.ReportID `json:"id"`
	Title       string         `json:"title"`
	Period      string         `json:"period"`
	Content     string         `json:"content"`
	GeneratedBy types.Engine   `json:"generated_by"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewReport creates a new Report instance
func NewReport(title, period, content string, generatedBy types.Engine) (*Report, error) {
	if title == "" {
		return nil, goerr.New("report title is required")
	}
	if content == "" {
		return nil, goerr.New("report content is required")
	}

	id, err := types.NewReportID()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate report ID")
	}

	return &Report{
		ID:          id,
		Title:       title,
		Period:      period,
		Content:     content,
		GeneratedBy: generatedBy,
		CreatedAt:   time.Now(),
	}, nil
}
