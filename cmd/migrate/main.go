package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/davidlin/dataport/internal/api"
	"github.com/davidlin/dataport/internal/api/middleware"
	"github.com/davidlin/dataport/internal/client"
	"github.com/davidlin/dataport/internal/config"
	"github.com/davidlin/dataport/internal/domain"
	"github.com/davidlin/dataport/internal/logger"
	"github.com/davidlin/dataport/internal/repository"
	"github.com/davidlin/dataport/internal/source"
	"github.com/davidlin/dataport/internal/workflow"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "dataport-migrate",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	jobID := flag.String("job", "", "Migration job id to drive")
	sourceURI := flag.String("source", "", "Source file: local path or s3://bucket/key")
	mapPairs := flag.String("map", "", "Comma-separated column=field overrides applied after the suggestion")
	dedup := flag.String("dedup", "", "Dedup strategy: skip, overwrite or merge")
	rollback := flag.Bool("rollback", false, "Roll back a completed job instead of running the workflow")
	watch := flag.Bool("watch", false, "Re-attach to a running job and poll it to an outcome")
	list := flag.Bool("list", false, "List recent migration sessions and exit")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Initialize the local session journal
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	sessionRepo := repository.NewSessionRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals: cancelling the context stops any poll loop
	// before its next request.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		appLogger.WithField("signal", sig.String()).Warn("Shutting down")
		cancel()
	}()

	if *list {
		listSessions(ctx, sessionRepo, appLogger)
		return
	}

	if *jobID == "" {
		appLogger.Fatal("A job id is required (-job)")
	}

	apiClient := client.New(&client.Config{
		BaseURL: cfg.API.BaseURL,
		APIKey:  cfg.API.APIKey,
		Timeout: cfg.API.Timeout,
	})

	store := workflow.NewSnapshotStore()
	ctrl := workflow.NewController(apiClient, store, sessionRepo, workflow.PollerConfig{
		Interval:        cfg.Poll.Interval,
		MaxWait:         cfg.Poll.MaxWait,
		MaxTickFailures: cfg.Poll.MaxTickFailures,
	}, appLogger)

	if _, err := ctrl.Attach(ctx, *jobID); err != nil {
		appLogger.WithError(err).Fatal("Failed to attach to migration job")
	}

	// Optional local status server while the workflow runs
	if cfg.Server.Enabled {
		router := api.SetupRouter(store, sessionRepo, cfg.Server.Mode, middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		})
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			appLogger.WithField("addr", addr).Info("Status server listening")
			if err := http.ListenAndServe(addr, router); err != nil {
				appLogger.WithError(err).Error("Status server stopped")
			}
		}()
	}

	switch {
	case *rollback:
		runRollback(ctx, ctrl, appLogger)
	case *watch:
		reportOutcome(ctx, ctrl, appLogger)(ctrl.WatchExecution(ctx))
	default:
		runWorkflow(ctx, ctrl, cfg, appLogger, *sourceURI, *mapPairs, *dedup)
	}
}

// runWorkflow drives the whole import: upload, mapping, validation,
// execution. Each phase is skipped when the job has already advanced past
// it, so an interrupted run can be re-invoked with the same arguments.
func runWorkflow(ctx context.Context, ctrl *workflow.Controller, cfg *config.Config, log *logger.Logger, sourceURI, mapPairs, dedup string) {
	job := ctrl.Snapshot()

	if job.Status == domain.JobStatusPending {
		if sourceURI == "" {
			log.Fatal("Job has no source yet; a source file is required (-source)")
		}
		uploadSource(ctx, ctrl, cfg, log, sourceURI)
		job = ctrl.Snapshot()
	}

	if job.Status == domain.JobStatusUploaded || mapPairs != "" {
		saveMapping(ctx, ctrl, log, mapPairs, dedup)
	}

	result, err := ctrl.RunValidation(ctx)
	if err != nil {
		log.WithError(err).Fatal("Validation request failed")
	}
	if result == nil {
		log.Fatal("Server returned no validation result")
	}
	if !result.IsValid {
		v := ctrl.Validation()
		for _, issue := range v.DisplayErrors(result) {
			log.WithFields(logger.Fields{
				"row":   issue.Row,
				"field": issue.Field,
			}).Error(issue.Message)
		}
		log.WithFields(logger.Fields{
			"errors":   result.ErrorCount,
			"warnings": result.WarningCount,
		}).Fatal("Validation failed; fix the mapping or source data and re-run")
	}
	log.WithField("warnings", result.WarningCount).Info("Validation passed")

	reportOutcome(ctx, ctrl, log)(ctrl.Execute(ctx))
}

func uploadSource(ctx context.Context, ctrl *workflow.Controller, cfg *config.Config, log *logger.Logger, sourceURI string) {
	var s3Store *source.S3Store
	if cfg.Storage.Endpoint != "" || strings.HasPrefix(sourceURI, "s3://") {
		var err error
		s3Store, err = source.NewS3Store(&source.S3Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Region:    cfg.Storage.Region,
		})
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize object storage")
		}
	}

	file, err := source.NewResolver(s3Store).Open(ctx, sourceURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to open source file")
	}
	defer file.Close()

	job, err := ctrl.Upload(ctx, sourceURI, file.Name, file.Reader)
	if err != nil {
		log.WithError(err).Fatal("Upload failed")
	}
	log.WithFields(logger.Fields{
		"total_rows": job.TotalRows,
		"columns":    strings.Join(job.SourceColumns, ","),
	}).Info("Source uploaded")
}

func saveMapping(ctx context.Context, ctrl *workflow.Controller, log *logger.Logger, mapPairs, dedup string) {
	rec, err := ctrl.Reconciler(ctx)
	if err != nil {
		log.WithError(err).Fatal("Failed to load target schema")
	}

	if _, err := rec.FetchSuggestion(ctx); err != nil {
		log.WithError(err).Warn("No mapping suggestion available")
	}

	for _, pair := range strings.Split(mapPairs, ",") {
		if pair == "" {
			continue
		}
		col, field, ok := strings.Cut(pair, "=")
		if !ok {
			log.Fatalf("Invalid -map entry %q, expected column=field", pair)
		}
		if err := rec.SetTarget(strings.TrimSpace(col), strings.TrimSpace(field)); err != nil {
			log.WithError(err).Fatal("Mapping edit rejected")
		}
	}

	if dedup != "" {
		if err := rec.SetStrategy(domain.DedupStrategy(dedup)); err != nil {
			log.WithError(err).Fatal("Invalid dedup strategy")
		}
	}

	if missing := rec.MissingRequired(); len(missing) > 0 {
		log.Fatalf("Mapping incomplete: required fields not mapped: %s", strings.Join(missing, ", "))
	}

	if _, err := ctrl.SaveMapping(ctx); err != nil {
		log.WithError(err).Fatal("Failed to save mapping")
	}
	log.WithField("mapping", fmt.Sprint(rec.Mapping())).Info("Mapping saved")
}

func runRollback(ctx context.Context, ctrl *workflow.Controller, log *logger.Logger) {
	job, err := ctrl.Rollback(ctx)
	if err != nil {
		if errors.Is(err, workflow.ErrNotRollbackable) {
			log.Fatalf("Job %s is %q; only a completed job can be rolled back",
				ctrl.JobID(), ctrl.Snapshot().Status)
		}
		log.WithError(err).Fatal("Rollback failed")
	}
	log.WithField("status", string(job.Status)).Info("Rollback complete")
}

// reportOutcome logs how an execution run ended and exits non-zero for
// anything but a completed import.
func reportOutcome(ctx context.Context, ctrl *workflow.Controller, log *logger.Logger) func(workflow.PollOutcome, error) {
	return func(outcome workflow.PollOutcome, err error) {
		snap := ctrl.Snapshot()
		switch outcome {
		case workflow.PollCompleted:
			if snap.Counters != nil {
				log.WithFields(logger.Fields{
					"created": snap.Counters.CreatedRecords,
					"updated": snap.Counters.UpdatedRecords,
					"skipped": snap.Counters.SkippedRecords,
					"failed":  snap.Counters.FailedRecords,
				}).Info("Import completed")
			} else {
				log.Info("Import completed")
			}
		case workflow.PollFailed:
			log.Fatalf("Import failed: %s", snap.ErrorMessage)
		case workflow.PollCancelled:
			log.Fatal("Import cancelled")
		case workflow.PollTimeout:
			log.Fatal("Stopped waiting for the import; it may still be running server-side")
		case workflow.PollConnectionLost:
			log.WithError(err).Fatal("Lost connection to the job; it may still be running server-side")
		default:
			if err != nil {
				log.WithError(err).Fatal("Execution did not start")
			}
		}
	}
}

func listSessions(ctx context.Context, repo *repository.SessionRepository, log *logger.Logger) {
	sessions, err := repo.ListRecent(ctx, 20)
	if err != nil {
		log.WithError(err).Fatal("Failed to list sessions")
	}
	if len(sessions) == 0 {
		fmt.Println("No migration sessions recorded")
		return
	}
	for _, s := range sessions {
		outcome := string(s.Outcome)
		if outcome == "" {
			outcome = "-"
		}
		fmt.Printf("%-36s  %-12s  %-10s  %6d/%-6d  %s\n",
			s.JobID, s.LastStatus, outcome, s.ProcessedRows, s.TotalRows, s.StartedAt.Format("2006-01-02 15:04"))
	}
}
