package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"tryon-server/modules/common/cleanup"
	"tryon-server/modules/common/config"
	"tryon-server/modules/common/gemini"
	"tryon-server/modules/common/logging"
	"tryon-server/modules/common/middleware"
	redisconn "tryon-server/modules/common/redis"
	"tryon-server/modules/common/storage"
	"tryon-server/modules/progress"
	"tryon-server/modules/tryon"
)

func main() {
	logging.Setup(os.Getenv("LOG_LEVEL"))

	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to load config")
	}
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// 삭제 스케줄러 (Redis 가 설정되면 지연 큐, 실패 시 in-process 타이머)
	clk := clock.New()
	timers := cleanup.NewTimerScheduler(clk, os.Remove)
	defer timers.Stop()

	var scheduler cleanup.Scheduler = timers
	if cfg.UseRedis() {
		rdb, err := redisconn.Connect(ctx, cfg)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️  Redis unavailable, falling back to in-process cleanup timers")
		} else {
			defer rdb.Close()
			queue := cleanup.NewRedisQueue(rdb, cleanup.DefaultQueueKey, clk, os.Remove, cfg.CleanupPollInterval, timers)
			scheduler = queue
			g.Go(func() error { return queue.Run(ctx) })
		}
	}

	store, err := storage.NewStore(cfg.UploadDir, "/uploads", scheduler)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to prepare upload directory")
	}

	resolver, err := tryon.NewCatalogResolver(cfg.CatalogDir)
	if err != nil {
		log.Fatal().Err(err).Msg("❌ Failed to prepare catalog directory")
	}

	// 키가 없으면 generator 없이 기동 (요청 시 ConfigurationError)
	var generator tryon.Generator
	if cfg.GeminiAPIKey != "" {
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GenerationTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("❌ Failed to create Gemini client")
		}
		generator = client
	}

	hub := progress.NewHub(cfg.AllowedOrigins)
	service := tryon.NewService(generator, store, resolver, hub, cfg.OutputRetention)
	handler := tryon.NewHandler(service, store, hub, cfg.MaxUploadBytes, cfg.InputRetention)

	// 라우터 설정
	r := mux.NewRouter()
	handler.RegisterRoutes(r)
	r.HandleFunc("/api/ws", hub.ServeWS).Methods(http.MethodGet)
	r.NotFoundHandler = tryon.NewStaticHandler(cfg.StaticDir)

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           middleware.RequestLogger(middleware.CORS(cfg.AllowedOrigins)(r)),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.GenerationTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g.Go(func() error {
		log.Info().Msgf("🚀 Virtual try-on server starting on port %s", cfg.Port)
		log.Info().Msgf("👗 Generate: http://localhost:%s/api/generate-outfit", cfg.Port)
		log.Info().Msgf("❤️  Health check: http://localhost:%s/api/health", cfg.Port)
		log.Info().Msgf("📡 Progress feed: ws://localhost:%s/api/ws?session=<id>", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("🛑 Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("❌ Server stopped with error")
	}
	log.Info().Msg("👋 Server stopped")
}
