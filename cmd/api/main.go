package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/andreypavlenko/caesub/docs" // swagger docs

	"github.com/andreypavlenko/caesub/internal/config"
	"github.com/andreypavlenko/caesub/internal/platform/archive"
	httpPlatform "github.com/andreypavlenko/caesub/internal/platform/http"
	"github.com/andreypavlenko/caesub/internal/platform/idempotency"
	"github.com/andreypavlenko/caesub/internal/platform/logger"
	"github.com/andreypavlenko/caesub/internal/platform/notify"
	redisplatform "github.com/andreypavlenko/caesub/internal/platform/redis"
	"github.com/andreypavlenko/caesub/internal/portal/connector"
	"github.com/andreypavlenko/caesub/internal/portal/connector/spreadsheetportal"

	historyRepo "github.com/andreypavlenko/caesub/modules/history/repository"
	historyService "github.com/andreypavlenko/caesub/modules/history/service"

	jobqueueHandler "github.com/andreypavlenko/caesub/modules/jobqueue/handler"
	jobqueueRepo "github.com/andreypavlenko/caesub/modules/jobqueue/repository"
	jobqueueService "github.com/andreypavlenko/caesub/modules/jobqueue/service"

	learningHandler "github.com/andreypavlenko/caesub/modules/learning/handler"
	learningRepo "github.com/andreypavlenko/caesub/modules/learning/repository"
	learningService "github.com/andreypavlenko/caesub/modules/learning/service"

	metricsHandler "github.com/andreypavlenko/caesub/modules/metrics/handler"
	metricsService "github.com/andreypavlenko/caesub/modules/metrics/service"

	repositoryHandler "github.com/andreypavlenko/caesub/modules/repository/handler"
	repositoryRepo "github.com/andreypavlenko/caesub/modules/repository/repository"
	repositoryService "github.com/andreypavlenko/caesub/modules/repository/service"

	rulesRepo "github.com/andreypavlenko/caesub/modules/rules/repository"
	rulesService "github.com/andreypavlenko/caesub/modules/rules/service"

	runsHandler "github.com/andreypavlenko/caesub/modules/runs/handler"
	runsRepo "github.com/andreypavlenko/caesub/modules/runs/repository"
	runsService "github.com/andreypavlenko/caesub/modules/runs/service"

	workflowHandler "github.com/andreypavlenko/caesub/modules/workflow/handler"
	workflowRepo "github.com/andreypavlenko/caesub/modules/workflow/repository"
	workflowService "github.com/andreypavlenko/caesub/modules/workflow/service"

	sentry "github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title CAE Submission Core API
// @version 1.0
// @description Document repository, matching, and headful-portal-automation core for occupational-safety (CAE) document submission.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@caesub.example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting CAE submission core",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("data_dir", cfg.Repository.DataDir),
	)

	ctx := context.Background()

	if cfg.Sentry.Enabled() {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Server.Env}); err != nil {
			appLogger.Warn("Failed to initialize Sentry, continuing without error reporting", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
			appLogger.Info("Sentry error reporting enabled")
		}
	}

	dataRoot := cfg.Repository.DataDir
	if err := os.MkdirAll(dataRoot, 0o755); err != nil {
		appLogger.Fatal("Failed to create repository data dir", zap.Error(err))
	}

	// Optional S3-compatible evidence/blob mirror (internal/platform/archive
	// degrades to a no-op client when unconfigured, mirroring the teacher's
	// "nil client, graceful skip" pattern for optional infra).
	var archiveClient *archive.Client
	if cfg.S3.Enabled() {
		archiveClient, err = archive.New(cfg.S3)
		if err != nil {
			appLogger.Warn("Failed to initialize S3 archive client, evidence mirroring disabled", zap.Error(err))
		} else {
			appLogger.Info("S3 evidence archive mirror enabled", zap.String("bucket", cfg.S3.Bucket))
		}
	} else {
		appLogger.Info("S3 not configured, evidence stays local-only")
	}

	// Optional Redis-backed idempotency + per-plan apply lock; falls back to
	// an in-process store on a single-node deployment.
	var idemStore idempotency.Store
	if cfg.Redis.Enabled() {
		redisClient, err := redisplatform.New(ctx, cfg.Redis)
		if err != nil {
			appLogger.Warn("Failed to connect to Redis, idempotency falls back to in-memory", zap.Error(err))
			idemStore = idempotency.NewMemoryStore()
		} else {
			defer redisClient.Close()
			appLogger.Info("Connected to Redis for idempotency/apply-lock")
			idemStore = idempotency.NewRedisStore(redisClient, idempotency.DefaultTTL)
		}
	} else {
		appLogger.Info("Redis not configured, idempotency store is in-process only")
		idemStore = idempotency.NewMemoryStore()
	}

	notifyClient := notify.New(cfg.Resend)
	if notifyClient == nil {
		appLogger.Info("Resend not configured, job-finished emails disabled")
	}

	// --- Document Repository -------------------------------------------
	typeStore := repositoryRepo.NewTypeStore(dataRoot)
	docStore := repositoryRepo.NewDocumentStore(dataRoot, archiveClient)
	repoSvc := repositoryService.NewService(typeStore, docStore, time.Now)
	repoHdl := repositoryHandler.NewHandler(repoSvc)

	// --- Submission Rules -------------------------------------------------
	ruleStore := rulesRepo.NewRuleStore(dataRoot)
	rulesSvc := rulesService.NewService(ruleStore, time.Now)

	// --- Learning Hint Store --------------------------------------------
	hintStore := learningRepo.NewHintStore(dataRoot)
	learningSvc := learningService.NewService(hintStore, time.Now)
	learningHdl := learningHandler.NewHandler(learningSvc)

	// --- History / Dedupe Ledger -----------------------------------------
	historyStore := historyRepo.NewHistoryStore(dataRoot)
	historySvc := historyService.NewService(historyStore, time.Now)

	// --- HeadfulRun state machine -----------------------------------------
	runStore := runsRepo.NewRunStore(dataRoot)
	runsSvc := runsService.NewService(runStore, time.Now)
	runsHdl := runsHandler.NewHandler(runsSvc)

	// --- Portal connector registry -----------------------------------------
	connRegistry := connector.NewRegistry()
	platformConfigs, platformCreds := loadPlatformConfig(cfg.Repository.DataDir, appLogger)
	for platformKey, creds := range platformCreds {
		connRegistry.Register(platformKey, spreadsheetportal.NewConstructor(creds))
	}
	connFactory := func(platformKey, coordLabel string) (connector.Connector, error) {
		cfg, ok := platformConfigs[platformKey]
		if !ok {
			return nil, fmt.Errorf("cmd/api: no platform config registered for %s", platformKey)
		}
		return connRegistry.Build(platformKey, cfg)
	}

	// --- Metrics ---------------------------------------------------------
	metricsSvc := metricsService.NewService(dataRoot)
	metricsHdl := metricsHandler.NewHandler(metricsSvc)

	// --- Policy + Plan + Apply Workflow -----------------------------------
	planRepo := workflowRepo.NewPlanStore(dataRoot)
	packRepo := workflowRepo.NewDecisionPackStore(dataRoot)
	presetRepo := workflowRepo.NewPresetStore(dataRoot)
	policy := workflowService.Policy{
		MaxUploadsHardCap:       cfg.Policy.MaxUploadsHardCap,
		RateLimitDefaultSeconds: cfg.Policy.RateLimitDefaultSecs,
		DevMode:                 cfg.Server.Env == "development",
	}
	workflowSvc := workflowService.NewService(
		repoSvc, rulesSvc, learningSvc, historySvc, runsSvc,
		planRepo, packRepo, presetRepo,
		connFactory, idemStore, policy, time.Now,
		dataRoot, archiveClient, metricsSvc,
	)
	workflowHdl := workflowHandler.NewHandler(workflowSvc)

	// --- Job Queue ---------------------------------------------------------
	jobStore := jobqueueRepo.NewJobStore(dataRoot)
	jobqueueSvc := jobqueueService.NewService(jobStore, workflowSvc, notifyClient, time.Now)
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	if err := jobqueueSvc.StartWorkers(workerCtx, 2); err != nil {
		appLogger.Fatal("Failed to start job queue workers", zap.Error(err))
	}
	jobqueueHdl := jobqueueHandler.NewHandler(jobqueueSvc)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(httpPlatform.RequestIDMiddleware())
	router.Use(httpPlatform.LoggerMiddleware(appLogger))
	router.Use(httpPlatform.CORSMiddleware())
	if cfg.Sentry.Enabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}

	if cfg.Server.Env != "production" {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		appLogger.Info("Swagger UI available at /swagger/index.html")
	}

	router.GET("/healthz", healthCheckHandler(dataRoot))

	// HeadfulRun endpoints are deliberately NOT under /api (spec.md §6.1).
	runsHdl.RegisterRoutes(router.Group(""))

	api := router.Group("/api")
	{
		repoHdl.RegisterRoutes(api)
		workflowHdl.RegisterRoutes(api)
		learningHdl.RegisterRoutes(api)
		jobqueueHdl.RegisterRoutes(api)
		metricsHdl.RegisterRoutes(api)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.Info("Server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	cancelWorkers()
	if err := jobqueueSvc.Wait(); err != nil {
		appLogger.Warn("Job queue workers exited with error", zap.Error(err))
	}

	appLogger.Info("Server exited")
}

// platformFileEntry mirrors the subset of platforms.json (spec.md §6.5,
// read-only to this Core) a spreadsheetportal.Connector needs.
type platformFileEntry struct {
	LoginURL          string                          `json:"login_url"`
	DashboardURL      string                          `json:"dashboard_url"`
	AllowedHosts      []string                        `json:"allowed_hosts"`
	StoragePath       string                          `json:"storage_path"`
	Headful           bool                            `json:"headful"`
	MaxPages          int                             `json:"max_pages"`
	LoginSelectors    spreadsheetportal.LoginSelectors `json:"login_selectors"`
	DashboardTileText string                          `json:"dashboard_tile_text"`
}

// secretsFileEntry mirrors one platform's credential block in secrets.json
// (spec.md §6.5: "credentials, loaded into memory only").
type secretsFileEntry struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loadPlatformConfig reads platforms.json and secrets.json from the
// repository root and returns the per-platform connector config and
// credentials for every platform present in both files. Either file being
// absent just means no connectors get registered; apply requests for an
// unconfigured platform fail with a clear error rather than at startup.
func loadPlatformConfig(dataRoot string, log *logger.Logger) (map[string]spreadsheetportal.Config, map[string]spreadsheetportal.Credentials) {
	configs := make(map[string]spreadsheetportal.Config)
	creds := make(map[string]spreadsheetportal.Credentials)

	var platforms map[string]platformFileEntry
	platformsPath := filepath.Join(dataRoot, "platforms.json")
	if data, err := os.ReadFile(platformsPath); err == nil {
		if err := json.Unmarshal(data, &platforms); err != nil {
			log.Warn("Failed to parse platforms.json, no connectors registered", zap.Error(err))
			return configs, creds
		}
	} else {
		log.Info("platforms.json not found, no portal connectors registered", zap.String("path", platformsPath))
		return configs, creds
	}

	var secrets map[string]secretsFileEntry
	secretsPath := filepath.Join(dataRoot, "secrets.json")
	if data, err := os.ReadFile(secretsPath); err == nil {
		if err := json.Unmarshal(data, &secrets); err != nil {
			log.Warn("Failed to parse secrets.json, no connectors registered", zap.Error(err))
			return configs, creds
		}
	} else {
		log.Info("secrets.json not found, no portal connectors registered", zap.String("path", secretsPath))
		return configs, creds
	}

	for key, p := range platforms {
		s, ok := secrets[key]
		if !ok {
			log.Warn("No secrets entry for platform, skipping", zap.String("platform_key", key))
			continue
		}
		configs[key] = spreadsheetportal.Config{
			LoginURL:          p.LoginURL,
			DashboardURL:      p.DashboardURL,
			AllowedHosts:      p.AllowedHosts,
			StoragePath:       p.StoragePath,
			Headful:           p.Headful,
			MaxPages:          p.MaxPages,
			LoginSelectors:    p.LoginSelectors,
			DashboardTileText: p.DashboardTileText,
		}
		creds[key] = spreadsheetportal.Credentials{Username: s.Username, Password: s.Password}
	}
	return configs, creds
}

// healthCheckHandler godoc
// @Summary Health Check
// @Description Reports whether the repository data directory is reachable.
// @Tags system
// @Produce json
// @Success 200 {object} http.HealthResponse
// @Router /healthz [get]
func healthCheckHandler(dataRoot string) gin.HandlerFunc {
	return func(c *gin.Context) {
		services := make(map[string]string)
		if _, err := os.Stat(dataRoot); err != nil {
			services["repository"] = "down"
		} else {
			services["repository"] = "up"
		}
		httpPlatform.RespondWithHealth(c, services)
	}
}
