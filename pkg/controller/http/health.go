package http

import (
	"net/http"

	"github.com/soc-lab/kestrel/pkg/domain/types"
	"github.com/soc-lab/kestrel/pkg/service/health"
)

// HealthHandler serves liveness and integration status
type HealthHandler struct {
	health *health.Service
}

// HandleHealth reports service liveness
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "kestrel",
	})
}

// HandleIntegrations reports the latest collaborator snapshot together with
// per-engine readiness
func (h *HealthHandler) HandleIntegrations(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}

	status := h.health.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"workflow_ok":      status.WorkflowOK,
		"llm_configured":   status.LLMConfigured,
		"store_configured": status.StoreConfigured,
		"checked_at":       status.CheckedAt,
		"engines":          engineReadiness(status),
	})
}

// HandleAutoDetect re-probes the collaborators on demand and recommends an
// engine, preferring SOAR when both are ready
func (h *HealthHandler) HandleAutoDetect(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}

	status := h.health.CheckNow(r.Context())
	recommended := ""
	switch {
	case status.EngineReady(types.EngineSOAR):
		recommended = string(types.EngineSOAR)
	case status.EngineReady(types.EngineAI):
		recommended = string(types.EngineAI)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"engines":     engineReadiness(status),
		"recommended": recommended,
		"checked_at":  status.CheckedAt,
	})
}

func engineReadiness(status health.Status) map[string]bool {
	return map[string]bool{
		string(types.EngineSOAR): status.EngineReady(types.EngineSOAR),
		string(types.EngineAI):   status.EngineReady(types.EngineAI),
	}
}
