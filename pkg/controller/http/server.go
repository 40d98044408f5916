package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/service/health"
	"github.com/soc-lab/kestrel/pkg/utils/metrics"
)

// UseCases bundles the use case implementations the server exposes
type UseCases struct {
	Auth      interfaces.Auth
	Incidents interfaces.Incidents
	Reports   interfaces.Reports
	Chat      interfaces.Chat
}

// Collaborators bundles the optional remote services the server proxies.
// A nil client disables the corresponding route group.
type Collaborators struct {
	Scheduler interfaces.SchedulerClient
	IDS       interfaces.IDSClient
}

// Server represents the HTTP server
type Server struct {
	*http.Server
	router chi.Router
}

// NewServer creates a new HTTP server exposing the dashboard API
func NewServer(
	ctx context.Context,
	addr string,
	uc *UseCases,
	collab *Collaborators,
	healthSvc *health.Service,
	aiHandler *AIHandler,
	m *metrics.Metrics,
) *Server {
	router := chi.NewRouter()
	authMiddleware := NewMiddleware(uc.Auth)
	if collab == nil {
		collab = &Collaborators{}
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(AuthContextMiddleware())
	router.Use(MetricsMiddleware(m))
	router.Use(middleware.Recoverer)

	healthHandler := &HealthHandler{health: healthSvc}
	authHandler := &AuthHandler{auth: uc.Auth}
	incidentHandler := &IncidentHandler{incidents: uc.Incidents}
	chatHandler := &ChatHandler{chat: uc.Chat}
	remoteHandler := &RemoteHandler{scheduler: collab.Scheduler, ids: collab.IDS}

	router.Get("/health", healthHandler.HandleHealth)
	if m != nil {
		router.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	}

	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/session", authHandler.HandleCreateSession)
			r.Post("/signup", authHandler.HandleSignupCheck)
			r.Post("/logout", authHandler.HandleLogout)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAuth)
				r.Get("/me", authHandler.HandleMe)
			})
		})

		// Everything below fails closed without a valid session
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)

			r.Route("/incidents", func(r chi.Router) {
				r.Get("/", incidentHandler.HandleList)
				r.Post("/", incidentHandler.HandleAdd)
				r.Post("/import", incidentHandler.HandleImport)
				r.Get("/alerts", incidentHandler.HandleAlerts)
				r.Get("/stats", incidentHandler.HandleStats)
				r.Put("/{eventID}/status", incidentHandler.HandleUpdateStatus)
			})

			// Dashboard counters, distinct from the Prometheus exposition
			r.Get("/metrics", incidentHandler.HandleStats)

			r.Route("/ai", func(r chi.Router) {
				r.Post("/chat", aiHandler.HandleChat)
				r.Post("/analyze", aiHandler.HandleAnalyze)
				r.Post("/report", aiHandler.HandleReport)
				r.Get("/reports", aiHandler.HandleListReports)
				r.Get("/reports/{reportID}", aiHandler.HandleGetReport)
				r.Post("/threat-intelligence", aiHandler.HandleThreatIntel)
			})

			r.Route("/chat", func(r chi.Router) {
				r.Get("/engine", chatHandler.HandleGetEngine)
				r.Put("/engine", chatHandler.HandleSetEngine)
				r.Route("/conversations", func(r chi.Router) {
					r.Get("/", chatHandler.HandleListConversations)
					r.Post("/", chatHandler.HandleCreateConversation)
					r.Post("/messages", chatHandler.HandleSendMessage)
					r.Route("/{conversationID}", func(r chi.Router) {
						r.Get("/", chatHandler.HandleGetConversation)
						r.Delete("/", chatHandler.HandleDeleteConversation)
						r.Put("/title", chatHandler.HandleRename)
						r.Get("/messages", chatHandler.HandleMessages)
						r.Post("/messages", chatHandler.HandleSendMessage)
						r.Post("/actions", chatHandler.HandleAction)
					})
				})
			})

			if collab.Scheduler != nil {
				r.Route("/scheduler", func(r chi.Router) {
					r.Get("/status", remoteHandler.HandleSchedulerStatus)
					r.Route("/tasks", func(r chi.Router) {
						r.Get("/", remoteHandler.HandleListTasks)
						r.Post("/", remoteHandler.HandleCreateTask)
						r.Route("/{taskID}", func(r chi.Router) {
							r.Get("/", remoteHandler.HandleGetTask)
							r.Put("/", remoteHandler.HandleUpdateTask)
							r.Delete("/", remoteHandler.HandleDeleteTask)
							r.Post("/pause", remoteHandler.HandlePauseTask)
							r.Post("/resume", remoteHandler.HandleResumeTask)
						})
					})
				})
			}

			if collab.IDS != nil {
				r.Route("/ids", func(r chi.Router) {
					r.Post("/start", remoteHandler.HandleIDSStart)
					r.Post("/stop", remoteHandler.HandleIDSStop)
					r.Get("/status", remoteHandler.HandleIDSStatus)
					r.Get("/logs", remoteHandler.HandleIDSLogs)
					r.Get("/logs/ip/{ip}", remoteHandler.HandleIDSLogsByIP)
					r.Get("/alerts", remoteHandler.HandleIDSAlerts)
				})
			}

			r.Get("/integrations/status", healthHandler.HandleIntegrations)
			r.Get("/integrations/auto-detect", healthHandler.HandleAutoDetect)
		})
	})

	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
		router: router,
	}
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.From(context.Background()).Error("Failed to encode response", "error", err)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	var message string
	if goErr := goerr.Unwrap(err); goErr != nil {
		message = goErr.Error()
	} else {
		message = err.Error()
	}

	if err := json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	}); err != nil {
		ctxlog.From(context.Background()).Error("Failed to encode error response", "error", err)
	}
}

// decodeJSON decodes a request body, rejecting unknown payload shapes early
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.Wrap(err, "invalid request body")
	}
	return nil
}
