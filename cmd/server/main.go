// @title           AI Videos Backend API
// @version         1.0.0
// @description     Backend API for AI video projects: scenes, Leonardo.AI image generation with webhook completion, ElevenLabs narration and asset downloads.

// @contact.name   API Support

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description Shared API key. Bearer JWTs in the Authorization header are accepted as well.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"ai-videos-backend/docs"
	"ai-videos-backend/internal/config"
	"ai-videos-backend/internal/elevenlabs"
	"ai-videos-backend/internal/generation"
	"ai-videos-backend/internal/handlers"
	"ai-videos-backend/internal/leonardo"
	"ai-videos-backend/internal/logging"
	"ai-videos-backend/internal/middleware"
	"ai-videos-backend/internal/services"
	"ai-videos-backend/internal/store"
	"ai-videos-backend/internal/store/memory"
	"ai-videos-backend/internal/store/mongodb"
	"ai-videos-backend/internal/store/postgres"
	"ai-videos-backend/internal/supabase"
	"ai-videos-backend/internal/webhook"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	configureSwagger(cfg.BaseURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	imageClient := leonardo.NewClient(cfg.LeonardoAPIURL, cfg.LeonardoAPIKey, leonardo.Options{
		ModelID:     cfg.LeonardoModelID,
		PresetStyle: cfg.LeonardoPresetStyle,
		Width:       cfg.LeonardoWidth,
		Height:      cfg.LeonardoHeight,
		NumImages:   cfg.LeonardoNumImages,
		Contrast:    leonardo.DefaultContrast,
	})

	tracker := generation.NewTracker(st, imageClient, logger).WithTimeout(cfg.GenerationTimeout)
	sweeper := generation.NewSweeper(st, cfg.GenerationTimeout, cfg.SweepInterval, logger)
	projectService := services.NewProjectService(st, nil, logger)
	audioService := services.NewAudioService(st, nil, nil, logger)
	downloadService := services.NewDownloadService(st, nil, nil, logger)

	// Storage, narration and realtime events are optional. Without Supabase
	// the audio and download endpoints answer 503.
	if cfg.StorageEnabled() {
		sb, err := supabase.NewClient(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize supabase: %w", err)
		}
		assets := services.NewStorageService(sb.Storage, logger)

		tracker.WithPublisher(sb.Realtime)
		sweeper.WithPublisher(sb.Realtime)
		projectService = services.NewProjectService(st, assets, logger)
		downloadService = services.NewDownloadService(st, sb.Storage, assets, logger).WithPublisher(sb.Realtime)
		if cfg.SpeechEnabled() {
			speech := elevenlabs.NewClient(cfg.ElevenLabsAPIURL, cfg.ElevenLabsAPIKey, cfg.ElevenLabsVoiceID, cfg.ElevenLabsModelID)
			audioService = services.NewAudioService(st, speech, sb.Storage, logger).WithPublisher(sb.Realtime)
		} else {
			logger.Warn("ElevenLabs not configured, audio generation disabled")
		}
	} else {
		logger.Warn("Supabase not configured, audio, downloads and realtime events disabled")
	}

	ingestor := webhook.NewIngestor(st, tracker, logger)

	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sweeper: %w", err)
	}
	defer sweeper.Stop()

	router := newRouter(cfg, logger, routes{
		projects:  handlers.NewProjectsHandler(projectService),
		images:    handlers.NewImagesHandler(tracker),
		audio:     handlers.NewAudioHandler(audioService),
		downloads: handlers.NewDownloadHandler(downloadService),
		status:    handlers.NewStatusHandler(projectService),
		webhook:   handlers.NewWebhookHandler(ingestor, cfg.LeonardoWebhookSecret, logger),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "store", cfg.StoreDriver, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	switch cfg.StoreDriver {
	case config.DriverMongo:
		st, err := mongodb.Connect(connectCtx, cfg.MongoURI, cfg.MongoDatabase, logging.WithComponent(logger, "mongodb"))
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverPostgres:
		st, err := postgres.Open(connectCtx, cfg.DatabaseURL, logging.WithComponent(logger, "postgres"))
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.New(), nil
	}
}

// configureSwagger points the served document at BASE_URL.
func configureSwagger(baseURL string) {
	if baseURL == "" {
		return
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return
	}
	docs.SwaggerInfo.Host = u.Host
	if u.Scheme == "https" {
		docs.SwaggerInfo.Schemes = []string{"https", "http"}
	} else {
		docs.SwaggerInfo.Schemes = []string{"http", "https"}
	}
}

type routes struct {
	projects  *handlers.ProjectsHandler
	images    *handlers.ImagesHandler
	audio     *handlers.AudioHandler
	downloads *handlers.DownloadHandler
	status    *handlers.StatusHandler
	webhook   *handlers.WebhookHandler
}

func newRouter(cfg *config.Config, logger *slog.Logger, r routes) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorLogger(logger))
	router.Use(middleware.CORS(cfg.CORSOrigins))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", handlers.HealthHandler)

	// Webhook (no API key, optional shared secret)
	router.POST("/webhooks/leonardo", r.webhook.HandleLeonardo)

	api := router.Group("/")
	api.Use(middleware.AuthMiddleware(cfg))

	api.GET("/projects", r.projects.ListProjects)
	api.POST("/project", r.projects.CreateProject)
	api.GET("/project/:id", r.projects.GetProject)
	api.PUT("/project/:id", r.projects.UpdateProject)
	api.DELETE("/project/:id", r.projects.DeleteProject)
	api.GET("/project/:id/status", r.status.GetStatus)

	api.POST("/project/:id/images", r.images.GenerateImages)
	api.POST("/project/:id/audio", r.audio.CreateAudio)
	api.GET("/project/:id/download", r.downloads.Download)

	return router
}
