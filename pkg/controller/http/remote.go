package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// RemoteHandler proxies the scheduler and IDS collaborator APIs. Responses
// pass through unchanged; upstream failures surface with their own status
// text behind a 502.
type RemoteHandler struct {
	scheduler interfaces.SchedulerClient
	ids       interfaces.IDSClient
}

// HandleSchedulerStatus proxies the scheduler health document
func (h *RemoteHandler) HandleSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.scheduler.Status(r.Context())
	if err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleListTasks lists scheduled tasks
func (h *RemoteHandler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.scheduler.ListTasks(r.Context())
	if err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// HandleGetTask returns one task
func (h *RemoteHandler) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.scheduler.GetTask(r.Context(), taskID(r))
	if err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// HandleCreateTask registers a new task
func (h *RemoteHandler) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	var task model.ScheduledTask
	if err := decodeJSON(r, &task); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	created, err := h.scheduler.CreateTask(r.Context(), &task)
	if err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleUpdateTask replaces a task definition
func (h *RemoteHandler) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var task model.ScheduledTask
	if err := decodeJSON(r, &task); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	task.ID = taskID(r)
	if task.ID == "" {
		writeError(w, goerr.New("task ID is required"), http.StatusBadRequest)
		return
	}

	updated, err := h.scheduler.UpdateTask(r.Context(), &task)
	if err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// HandleDeleteTask removes a task
func (h *RemoteHandler) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.DeleteTask(r.Context(), taskID(r)); err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandlePauseTask suspends a task
func (h *RemoteHandler) HandlePauseTask(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.PauseTask(r.Context(), taskID(r)); err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleResumeTask reactivates a paused task
func (h *RemoteHandler) HandleResumeTask(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.ResumeTask(r.Context(), taskID(r)); err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleIDSStart launches the sensor
func (h *RemoteHandler) HandleIDSStart(w http.ResponseWriter, r *http.Request) {
	if err := h.ids.Start(r.Context()); err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleIDSStop halts the sensor
func (h *RemoteHandler) HandleIDSStop(w http.ResponseWriter, r *http.Request) {
	if err := h.ids.Stop(r.Context()); err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleIDSStatus reports sensor state
func (h *RemoteHandler) HandleIDSStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.ids.Status(r.Context())
	if err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleIDSLogs returns recent sensor log lines
func (h *RemoteHandler) HandleIDSLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, goerr.New("invalid limit parameter"), http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	logs, err := h.ids.Logs(r.Context(), limit)
	if err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

// HandleIDSLogsByIP returns sensor log lines mentioning an address
func (h *RemoteHandler) HandleIDSLogsByIP(w http.ResponseWriter, r *http.Request) {
	ip := chi.URLParam(r, "ip")
	if ip == "" {
		writeError(w, goerr.New("IP address is required"), http.StatusBadRequest)
		return
	}

	logs, err := h.ids.LogsByIP(r.Context(), ip)
	if err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

// HandleIDSAlerts returns open sensor alerts
func (h *RemoteHandler) HandleIDSAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.ids.Alerts(r.Context())
	if err != nil {
		writeError(w, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func taskID(r *http.Request) types.TaskID {
	return types.TaskID(chi.URLParam(r, "taskID"))
}
