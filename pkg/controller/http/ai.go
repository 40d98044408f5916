package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
	"github.com/soc-lab/kestrel/pkg/service/llm"
)

// AIHandler serves the direct LLM endpoints: one-shot chat, event analysis,
// report generation and threat intelligence lookups
type AIHandler struct {
	llm     *llm.Service
	reports interfaces.Reports
}

// NewAIHandler creates the AI endpoint handler
func NewAIHandler(llmService *llm.Service, reports interfaces.Reports) *AIHandler {
	return &AIHandler{llm: llmService, reports: reports}
}

type aiChatRequest struct {
	Message string `json:"message"`
}

type reportRequest struct {
	Period string `json:"period,omitempty"`
}

type threatIntelRequest struct {
	Indicator string `json:"indicator"`
}

// HandleChat returns a single LLM completion outside any conversation
func (h *AIHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req aiChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		writeError(w, goerr.New("message is required"), http.StatusBadRequest)
		return
	}

	reply, err := h.llm.GenerateReply(r.Context(), req.Message)
	if err != nil {
		writeError(w, err, statusForLLMErr(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// HandleAnalyze classifies a security event
func (h *AIHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var input model.IncidentInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	analysis, err := h.llm.AnalyzeEvent(r.Context(), &input)
	if err != nil {
		writeError(w, err, statusForLLMErr(err))
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// HandleReport generates and stores a report for the requested period
func (h *AIHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	report, err := h.reports.Generate(r.Context(), req.Period)
	if err != nil {
		writeError(w, err, statusForLLMErr(err))
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// HandleListReports returns stored reports
func (h *AIHandler) HandleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.reports.List(r.Context())
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

// HandleGetReport returns one stored report
func (h *AIHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	id := types.ReportID(chi.URLParam(r, "reportID"))
	report, err := h.reports.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrReportNotFound) {
			writeError(w, err, http.StatusNotFound)
			return
		}
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleThreatIntel looks up an indicator of compromise
func (h *AIHandler) HandleThreatIntel(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req threatIntelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	if req.Indicator == "" {
		writeError(w, goerr.New("indicator is required"), http.StatusBadRequest)
		return
	}

	intel, err := h.llm.ThreatIntel(r.Context(), req.Indicator)
	if err != nil {
		writeError(w, err, statusForLLMErr(err))
		return
	}
	writeJSON(w, http.StatusOK, intel)
}

func (h *AIHandler) ready(w http.ResponseWriter) bool {
	if h.llm == nil || !h.llm.IsConfigured() {
		writeError(w, goerr.New("AI backend is not configured"), http.StatusServiceUnavailable)
		return false
	}
	return true
}

func statusForLLMErr(err error) int {
	if errors.Is(err, model.ErrMalformedLLMResponse) {
		return http.StatusBadGateway
	}
	return http.StatusServiceUnavailable
}
