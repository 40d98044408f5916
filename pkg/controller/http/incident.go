package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// IncidentHandler serves the incident management endpoints
type IncidentHandler struct {
	incidents interfaces.Incidents
}

type updateStatusRequest struct {
	Status      types.IncidentStatus `json:"status"`
	ActionTaken string               `json:"actiontaken,omitempty"`
}

// HandleList returns every stored incident
func (h *IncidentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	incidents, err := h.incidents.List(r.Context())
	if err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"incidents": incidents})
}

// HandleAlerts returns live incidents only
func (h *IncidentHandler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.incidents.ListAlerts(r.Context())
	if err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

// HandleAdd creates a single incident
func (h *IncidentHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var input model.IncidentInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	incident, err := h.incidents.Add(r.Context(), &input)
	if err != nil {
		writeError(w, err, statusForIncidentErr(err))
		return
	}
	writeJSON(w, http.StatusCreated, incident)
}

// HandleImport bulk-loads externally produced incidents
func (h *IncidentHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Incidents []*model.Incident `json:"incidents"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	count, err := h.incidents.Import(r.Context(), payload.Incidents)
	if err != nil {
		writeError(w, err, statusForIncidentErr(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": count})
}

// HandleUpdateStatus applies a status transition
func (h *IncidentHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	eventID := types.EventID(chi.URLParam(r, "eventID"))
	if eventID == "" {
		writeError(w, goerr.New("event ID is required"), http.StatusBadRequest)
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	incident, err := h.incidents.UpdateStatus(r.Context(), eventID, req.Status, req.ActionTaken)
	if err != nil {
		writeError(w, err, statusForIncidentErr(err))
		return
	}
	writeJSON(w, http.StatusOK, incident)
}

// HandleStats returns the dashboard counters
func (h *IncidentHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.incidents.Stats(r.Context())
	if err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func statusForIncidentErr(err error) int {
	switch {
	case errors.Is(err, model.ErrIncidentNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrMalformedLLMResponse):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
