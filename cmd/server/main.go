package main

import (
	// Standard library
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	// External dependencies
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Internal packages
	"github.com/houzhh15/meetscribe/cmd/internal/api"
	"github.com/houzhh15/meetscribe/cmd/internal/asr"
	"github.com/houzhh15/meetscribe/cmd/internal/config"
	"github.com/houzhh15/meetscribe/cmd/internal/diarize"
	"github.com/houzhh15/meetscribe/cmd/internal/jobs"
	"github.com/houzhh15/meetscribe/cmd/internal/middleware"
	"github.com/houzhh15/meetscribe/cmd/internal/orchestrator"
	"github.com/houzhh15/meetscribe/cmd/internal/orchestrator/degradation"
	"github.com/houzhh15/meetscribe/cmd/internal/orchestrator/health"
	"github.com/houzhh15/meetscribe/pkg/logger"
)

const (
	asrHealthInterval  = 30 * time.Second
	asrHealthThreshold = 3
)

func main() {
	logInstance, err := logger.Init(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: os.Getenv("ENV"),
		WithSource:  !strings.EqualFold(os.Getenv("ENV"), "prod"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	appLogger := logInstance.With("component", "web-server")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		appLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := config.ValidateConfig(cfg); err != nil {
		appLogger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	appLogger.Info("configuration loaded", "env", cfg.Server.Env, "port", cfg.Server.Port)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize ASR transcribers with health-driven degradation
	primary := asr.NewHTTPTranscriber(cfg.Engines.ASRBaseURL, cfg.Engines.ASRTimeout)
	fallback := asr.NewMockTranscriber()
	healthChecker := health.NewHealthChecker(primary, asrHealthInterval, asrHealthThreshold)
	degradationController := degradation.NewDegradationController(primary, fallback, healthChecker)

	healthCtx, cancelHealth := context.WithCancel(context.Background())
	defer cancelHealth()
	go healthChecker.Start(healthCtx)
	appLogger.Info("asr health checker started", "service", primary.Name(), "interval", asrHealthInterval.String())

	// Select the diarization engine once at startup
	diarizer := diarize.Select(
		logInstance.With("component", "diarize"),
		cfg.Engines.DiarizeBaseURL,
		cfg.Engines.DiarizeTimeout,
		cfg.Pipeline.FallbackSpanSeconds,
	)
	appLogger.Info("diarization engine selected", "engine", diarizer.Name())

	// Processor and pipeline are built per job: the job's option
	// overrides feed the ASR language hint and diarization constraints,
	// and speaker identities stay scoped to a single recording
	baseOpts := orchestrator.ProcessorOptions{
		Language:            cfg.Engines.ASRLanguage,
		SpanConcurrency:     cfg.Engines.SpanConcurrency,
		SpanTimeout:         cfg.Engines.ASRTimeout,
		FallbackSpanSeconds: cfg.Pipeline.FallbackSpanSeconds,
	}
	pipelineFactory := func(opts jobs.Options, progress orchestrator.ProgressFunc) *orchestrator.Pipeline {
		procOpts := baseOpts
		if opts.Language != "" {
			procOpts.Language = opts.Language
		}
		procOpts.Constraints = diarize.Constraints{
			MinSpeakers: opts.MinSpeakers,
			MaxSpeakers: opts.MaxSpeakers,
		}
		processor := orchestrator.NewChunkProcessor(
			degradationController,
			diarizer,
			procOpts,
			logInstance.With("component", "processor"),
		)
		return orchestrator.NewPipeline(cfg.Pipeline, processor, logInstance.With("component", "pipeline"), progress)
	}

	// Initialize the job registry, audit trail and runner
	store := jobs.NewStore()
	auditLogger := jobs.NewAuditLogger(cfg.Data.AuditLogsDir)
	runner := jobs.NewRunner(store, auditLogger, pipelineFactory, cfg.Data.TranscriptsDir, logInstance.With("component", "runner"))
	appLogger.Info("job services ready", "uploads", cfg.Data.UploadsDir, "transcripts", cfg.Data.TranscriptsDir)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	r.GET("/api/v1/health", api.HandleHealth(healthChecker, degradationController, diarizer.Name()))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/jobs", api.HandleCreateJob(store, auditLogger, runner, cfg.Data.UploadsDir))
		v1.GET("/jobs", api.HandleListJobs(store))
		v1.GET("/jobs/:id", api.HandleGetJob(store))
		v1.GET("/jobs/:id/progress", api.HandleGetJobProgress(store))
		v1.GET("/jobs/:id/transcript", api.HandleGetTranscript(store))
		v1.POST("/jobs/:id/cancel", api.HandleCancelJob(store, auditLogger))
	}

	// Create HTTP server with graceful shutdown
	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		appLogger.Info("server starting", "addr", serverAddr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	appLogger.Info("shutdown signal received, shutting down server...")

	healthChecker.Stop()

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	appLogger.Info("server shutdown complete")
}
