package llm

import (
	"bytes"
	"context"
	"embed"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/domain/model"
)

// Error tags for categorization
var (
	ErrTagMissingField    = goerr.NewTag("missing_field")
	ErrTagTemplateFailure = goerr.NewTag("template_failure")
)

//go:embed templates/*.md
var templateFS embed.FS

// Limits for the conversation title cache. Titles are cached on the first
// 100 characters of the message so regenerating a conversation from the same
// opener does not burn another LLM call.
const (
	titleCacheKeyLen = 100
	titleCacheMax    = 128
)

// Service builds prompts for the security use cases and parses the model's
// replies into typed results
type Service struct {
	client interfaces.LLMClient

	titleMu    sync.Mutex
	titleCache map[string]string
}

// EventAnalysis is the structured classification of a security event
type EventAnalysis struct {
	Severity    string `json:"severity"`
	AttackType  string `json:"attack_type"`
	ActionTaken string `json:"action_taken"`
	Summary     string `json:"summary"`
}

// ReportContent is the structured body of a generated security report
type ReportContent struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Highlights      []string `json:"highlights,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// ThreatIntel is the structured result of an IOC lookup
type ThreatIntel struct {
	Indicator       string   `json:"indicator"`
	ThreatLevel     string   `json:"threat_level"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// reportIncident is the template-facing view of one incident
type reportIncident struct {
	EventID       string
	Timestamp     string
	Severity      string
	SourceIP      string
	DestinationIP string
	AttackType    string
	Status        string
}

// New creates a Service on top of a chat-completion client
func New(client interfaces.LLMClient) *Service {
	return &Service{
		client:     client,
		titleCache: make(map[string]string),
	}
}

// IsConfigured reports whether an LLM backend is available
func (s *Service) IsConfigured() bool {
	return s != nil && s.client != nil
}

// AnalyzeEvent classifies a security event. The reply must carry all four
// fields; anything less is a malformed response.
func (s *Service) AnalyzeEvent(ctx context.Context, input *model.IncidentInput) (*EventAnalysis, error) {
	if s.client == nil {
		return nil, goerr.New("LLM client is not configured")
	}
	if input == nil {
		return nil, goerr.New("incident input is nil")
	}

	prompt, err := s.render("analyze_event.md", map[string]string{
		"SourceIP":      input.SourceIP,
		"DestinationIP": input.DestinationIP,
		"AttackType":    input.AttackType,
		"Severity":      input.Severity,
	})
	if err != nil {
		return nil, err
	}

	reply, err := s.client.GenerateResponse(ctx, prompt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate event analysis")
	}

	var analysis EventAnalysis
	if err := extractJSON(reply, &analysis); err != nil {
		return nil, err
	}
	if analysis.Severity == "" || analysis.AttackType == "" || analysis.ActionTaken == "" {
		return nil, goerr.Wrap(model.ErrMalformedLLMResponse, "analysis missing required fields",
			goerr.T(ErrTagMissingField),
			goerr.V("analysis", analysis),
		)
	}

	return &analysis, nil
}

// GenerateReport writes a security report over the given incidents
func (s *Service) GenerateReport(ctx context.Context, incidents []*model.Incident, period string) (*ReportContent, error) {
	if s.client == nil {
		return nil, goerr.New("LLM client is not configured")
	}

	view := make([]reportIncident, 0, len(incidents))
	for _, inc := range incidents {
		if inc == nil {
			continue
		}
		view = append(view, reportIncident{
			EventID:       inc.EventID.String(),
			Timestamp:     inc.Timestamp.Format(time.RFC3339),
			Severity:      inc.Severity,
			SourceIP:      inc.SourceIP,
			DestinationIP: inc.DestinationIP,
			AttackType:    inc.AttackType,
			Status:        inc.Status.String(),
		})
	}

	prompt, err := s.render("report.md", map[string]any{
		"Period":    period,
		"Incidents": view,
	})
	if err != nil {
		return nil, err
	}

	reply, err := s.client.GenerateResponse(ctx, prompt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate report")
	}

	var content ReportContent
	if err := extractJSON(reply, &content); err != nil {
		return nil, err
	}
	if content.Title == "" || content.Summary == "" {
		return nil, goerr.Wrap(model.ErrMalformedLLMResponse, "report missing required fields",
			goerr.T(ErrTagMissingField),
		)
	}

	return &content, nil
}

// ThreatIntel looks up an indicator of compromise
func (s *Service) ThreatIntel(ctx context.Context, indicator string) (*ThreatIntel, error) {
	if s.client == nil {
		return nil, goerr.New("LLM client is not configured")
	}
	if strings.TrimSpace(indicator) == "" {
		return nil, goerr.New("indicator is required")
	}

	prompt, err := s.render("threat_intel.md", map[string]string{
		"Indicator": indicator,
	})
	if err != nil {
		return nil, err
	}

	reply, err := s.client.GenerateResponse(ctx, prompt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate threat intelligence")
	}

	var intel ThreatIntel
	if err := extractJSON(reply, &intel); err != nil {
		return nil, err
	}
	if intel.Summary == "" {
		return nil, goerr.Wrap(model.ErrMalformedLLMResponse, "threat intel missing summary",
			goerr.T(ErrTagMissingField),
		)
	}
	if intel.Indicator == "" {
		intel.Indicator = indicator
	}

	return &intel, nil
}

// GenerateReply produces a free-form assistant reply for the AI chat engine
func (s *Service) GenerateReply(ctx context.Context, message string) (string, error) {
	if s.client == nil {
		return "", goerr.New("LLM client is not configured")
	}

	prompt := "You are a security operations assistant helping a SOC analyst. " +
		"Answer concisely and concretely.\n\nAnalyst message:\n" + message

	reply, err := s.client.GenerateResponse(ctx, prompt)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate chat reply")
	}
	if strings.TrimSpace(reply) == "" {
		return "", goerr.Wrap(model.ErrMalformedLLMResponse, "empty chat reply",
			goerr.T(ErrTagMalformedResponse))
	}
	return reply, nil
}

// ConversationTitle generates a short title for a conversation from its
// first message. Failures fall back to the first four words of the message;
// successful titles are cached on the message prefix.
func (s *Service) ConversationTitle(ctx context.Context, firstMessage string) string {
	key := cacheKey(firstMessage)

	s.titleMu.Lock()
	if title, ok := s.titleCache[key]; ok {
		s.titleMu.Unlock()
		return title
	}
	s.titleMu.Unlock()

	title, err := s.generateTitle(ctx, firstMessage)
	if err != nil {
		ctxlog.From(ctx).Debug("conversation title generation failed, using fallback",
			"error", err,
		)
		return model.FallbackTitle(firstMessage)
	}

	s.titleMu.Lock()
	if len(s.titleCache) >= titleCacheMax {
		// Bounded cache; drop everything rather than track recency
		s.titleCache = make(map[string]string)
	}
	s.titleCache[key] = title
	s.titleMu.Unlock()

	return title
}

func (s *Service) generateTitle(ctx context.Context, firstMessage string) (string, error) {
	if s.client == nil {
		return "", goerr.New("LLM client is not configured")
	}

	prompt, err := s.render("title.md", map[string]string{
		"Message": firstMessage,
	})
	if err != nil {
		return "", err
	}

	reply, err := s.client.GenerateResponse(ctx, prompt)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate conversation title")
	}

	title := strings.Trim(strings.TrimSpace(reply), `"'`)
	if title == "" || strings.ContainsRune(title, '\n') {
		return "", goerr.Wrap(model.ErrMalformedLLMResponse, "unusable title reply",
			goerr.T(ErrTagMalformedResponse),
		)
	}
	return title, nil
}

// render loads and executes an embedded prompt template
func (s *Service) render(name string, data any) (string, error) {
	content, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read prompt template",
			goerr.T(ErrTagTemplateFailure),
			goerr.V("template", name),
		)
	}

	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return "", goerr.Wrap(err, "failed to parse prompt template",
			goerr.T(ErrTagTemplateFailure),
			goerr.V("template", name),
		)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to execute prompt template",
			goerr.T(ErrTagTemplateFailure),
			goerr.V("template", name),
		)
	}
	return buf.String(), nil
}

func cacheKey(message string) string {
	runes := []rune(message)
	if len(runes) > titleCacheKeyLen {
		return string(runes[:titleCacheKeyLen])
	}
	return message
}
