package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"axiom-server/internal/config"
	"axiom-server/internal/handler"
	"axiom-server/internal/models"
	"axiom-server/internal/repository"
	"axiom-server/internal/service"
	"axiom-server/pkg/logger"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	// --- Configuration ---
	// .env опционален: в контейнере переменные приходят из окружения.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Encoding:    cfg.Log.Encoding,
		Development: cfg.Server.Env == "development",
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)
	zap.L().Info("Logger initialized successfully", zap.String("logLevel", cfg.Log.Level))
	zap.L().Info("Configuration loaded")

	// --- Stores ---
	// Корневой контекст без дедлайна: сбой подключения и так переводит
	// хранилища в локальный режим, а live-подписки должны жить до остановки.
	ctx := context.Background()

	commissionCache := repository.NewFileCache[models.CommissionRecord](cfg.Cache.Dir, "commissions", log)
	artistCache := repository.NewFileCache[models.FutureArtistRecord](cfg.Cache.Dir, "future_artists", log)
	commentCache := repository.NewFileCache[models.Comment](cfg.Cache.Dir, "character_comments", log)

	// Без ProjectID сразу работаем в локальном режиме: Connector не задан.
	var connect service.Connector
	if cfg.Firebase.ProjectID != "" {
		fbCfg := repository.FirebaseConfig{
			ProjectID:       cfg.Firebase.ProjectID,
			CredentialsPath: cfg.Firebase.CredentialsPath,
		}
		connect = func(ctx context.Context) (repository.RemoteStore, error) {
			return repository.Connect(ctx, fbCfg, log)
		}
	} else {
		zap.L().Info("FIREBASE_PROJECT_ID не задан, запускаемся в локальном режиме")
	}

	store := service.NewCommissionStore(ctx, service.CommissionStoreDeps{
		Connect:       connect,
		Commissions:   commissionCache,
		FutureArtists: artistCache,
		Logger:        log,
	})
	defer store.Close()

	comments := service.NewCommentStore(ctx, service.CommentStoreDeps{
		Connect: connect,
		Cache:   commentCache,
		Logger:  log,
	})
	defer comments.Close()

	// --- WebSocket Hub ---
	// Каждое событие хранилища уходит всем подключенным клиентам витрины.
	hub := handler.NewHub(log)
	store.AddListener(func(ev models.Event) {
		payload, err := json.Marshal(ev)
		if err != nil {
			zap.L().Error("Не удалось сериализовать событие для рассылки", zap.Error(err))
			return
		}
		hub.Broadcast(payload)
	})

	// --- Rate Limiter Middleware Setup ---
	// Лимитируем только публикацию комментариев, по IP клиента.
	rateLimitStore := rateli.InMemoryStore(&rateli.InMemoryOptions{
		Rate:  time.Minute,
		Limit: cfg.RateLimit.CommentsPerMinute,
	})
	rateLimitMiddleware := rateli.RateLimiter(rateLimitStore, &rateli.Options{
		ErrorHandler: func(c *gin.Context, info rateli.Info) {
			zap.L().Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			c.String(http.StatusTooManyRequests, "Too many requests. Try again in "+time.Until(info.ResetTime).String())
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})
	zap.L().Info("Rate limiter middleware initialized")

	h := handler.NewHandler(store, comments, hub, cfg.Admin.JWTSecret, log)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(handler.GinZapLogger(log))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")

	// Configure CORS Middleware
	corsConfig := cors.DefaultConfig()
	allowedOrigins := cfg.GetAllowedOrigins()
	if len(allowedOrigins) > 0 {
		corsConfig.AllowOrigins = allowedOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
		zap.L().Info("CORSAllowedOrigins not set, allowing default", zap.String("origin", "http://localhost:3000"))
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Health Check Endpoint
	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": hub.ClientCount()})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	// Register Application Routes
	h.RegisterRoutes(router, rateLimitMiddleware)

	// Prometheus middleware применяем после регистрации роутов,
	// иначе он не видит шаблоны путей.
	p.Use(router)

	// --- Start HTTP Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	zap.L().Info("Starting HTTP server", zap.String("port", cfg.Server.Port))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	hub.Stop()
	zap.L().Info("Server stopped")
}
