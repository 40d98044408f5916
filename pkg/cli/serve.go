package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/cli/config"
	controller "github.com/soc-lab/kestrel/pkg/controller/http"
	"github.com/soc-lab/kestrel/pkg/domain/interfaces"
	"github.com/soc-lab/kestrel/pkg/service/health"
	"github.com/soc-lab/kestrel/pkg/service/llm"
	"github.com/soc-lab/kestrel/pkg/usecase"
	"github.com/soc-lab/kestrel/pkg/utils/metrics"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg config.Server
		dbCfg     config.Database
		sheetsCfg config.Sheets
		groqCfg   config.Groq
		n8nCfg    config.N8n
		fbCfg     config.Firebase
		slackCfg  config.Slack
		collabCfg config.Collaborators
		healthCfg config.Health

		severitiesPath string
	)

	flags := joinFlags(
		serverCfg.Flags(),
		dbCfg.Flags(),
		sheetsCfg.Flags(),
		groqCfg.Flags(),
		n8nCfg.Flags(),
		fbCfg.Flags(),
		slackCfg.Flags(),
		collabCfg.Flags(),
		healthCfg.Flags(),
		[]cli.Flag{
			&cli.StringFlag{
				Name:        "severities-file",
				Usage:       "Path to a YAML file defining severity levels",
				Category:    "Incidents",
				Sources:     cli.EnvVars("KESTREL_SEVERITIES_FILE"),
				Destination: &severitiesPath,
			},
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start HTTP server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting kestrel server",
				slog.Any("server", serverCfg),
				slog.Any("database", dbCfg),
				slog.Any("sheets", sheetsCfg),
				slog.Any("groq", groqCfg),
				slog.Any("n8n", n8nCfg),
				slog.Any("firebase", fbCfg),
				slog.Any("slack", slackCfg),
				slog.Any("collaborators", collabCfg),
				slog.Any("health", healthCfg),
			)

			severities, err := config.LoadSeveritiesFromFile(severitiesPath)
			if err != nil {
				return err
			}

			repo, err := dbCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			store, err := sheetsCfg.Configure(ctx)
			if err != nil {
				return err
			}
			var incidentStore interfaces.IncidentStore
			if store != nil {
				incidentStore = store
			}

			llmService := llm.New(groqCfg.ConfigureOptional(ctx))
			workflow := n8nCfg.Configure()
			notifier := slackCfg.ConfigureOptional(ctx)
			scheduler := collabCfg.ConfigureScheduler()
			ids := collabCfg.ConfigureIDS()
			m := metrics.New()

			if !fbCfg.IsConfigured() {
				return goerr.New("Firebase configuration is required. Please provide KESTREL_FIREBASE_PROJECT")
			}
			authUC, err := usecase.NewAuth(ctx, repo, fbCfg.ProjectID)
			if err != nil {
				return goerr.Wrap(err, "failed to create auth use case")
			}

			healthSvc := health.New(workflow, llmService, incidentStore, healthCfg.Interval)

			incidentUC := usecase.NewIncidents(repo, incidentStore, llmService, notifier, severities, m)
			reportUC := usecase.NewReports(repo, incidentUC, llmService)
			chatUC := usecase.NewChat(repo, llmService, workflow, ids, healthSvc, m)
			healthCtx, cancelHealth := context.WithCancel(ctx)
			defer cancelHealth()
			go healthSvc.Run(healthCtx)

			server := controller.NewServer(
				ctx,
				serverCfg.Addr,
				&controller.UseCases{
					Auth:      authUC,
					Incidents: incidentUC,
					Reports:   reportUC,
					Chat:      chatUC,
				},
				&controller.Collaborators{
					Scheduler: scheduler,
					IDS:       ids,
				},
				healthSvc,
				controller.NewAIHandler(llmService, reportUC),
				m,
			)

			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
