package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relay-api/internal/auth"
	"relay-api/internal/catalog"
	"relay-api/internal/files"
	"relay-api/internal/middleware"
	"relay-api/internal/relay"
	"relay-api/internal/routers"
	"relay-api/internal/shared"
	"relay-api/internal/upstream"

	"github.com/labstack/echo/v4"
	emw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/manifold-inc/manifold-sdk/lib/eflag"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Flags / ENV Variables
	listenAddr := flag.String("listen-addr", ":8000", "Listen address")
	upstreamURL := flag.String("upstream-url", "http://localhost:11434", "Inference backend base URL")
	adminEmail := flag.String("admin-email", "admin@local", "Admin login email")
	adminPassword := flag.String("admin-password", "changeme", "Admin login password")
	jwtSecret := flag.String("jwt-secret", "", "Token signing secret")
	tokenLifetimeMinutes := flag.Int("token-lifetime-minutes", 1440, "Token lifetime in minutes")
	uploadDir := flag.String("upload-dir", "uploads", "Upload storage directory")
	maxUploadBytes := flag.Int64("max-upload-bytes", shared.DefaultMaxUploadBytes, "Upload size limit in bytes")
	redisAddr := flag.String("redis-addr", "", "Redis host:port for model catalog caching (optional)")
	metricsAPIKey := flag.String("metrics-api-key", "", "Metrics api key")
	debug := flag.Bool("debug", false, "Debug enabled")

	err := eflag.SetFlagsFromEnvironment()
	if err != nil {
		panic(err)
	}
	flag.Parse()

	cfg := &shared.Config{
		ListenAddr:    *listenAddr,
		UpstreamURL:   *upstreamURL,
		AdminEmail:    *adminEmail,
		AdminPassword: *adminPassword,
		JWTSecret:     *jwtSecret,
		TokenLifetime: time.Duration(*tokenLifetimeMinutes) * time.Minute,
		UploadDir:     *uploadDir,
		MaxUploadSize: *maxUploadBytes,
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid configuration: %s", err))
	}

	var logger *zap.Logger
	if !*debug {
		logger, err = zap.NewProduction()
		if err != nil {
			panic("Failed init logger")
		}
	}
	if *debug {
		logger, err = zap.NewDevelopment()
		if err != nil {
			panic("Failed init logger")
		}
	}
	log := logger.Sugar()

	// Optional redis for model catalog caching
	var redisClient *redis.Client
	if *redisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     *redisAddr,
			Password: "",
			DB:       0,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			panic(fmt.Sprintf("failed ping to redis db: %s", err))
		}
		log.Info("Model catalog caching enabled")
	}
	defer func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}()

	upstreamClient, err := upstream.NewClient(cfg.UpstreamURL, log)
	if err != nil {
		panic(fmt.Sprintf("failed initializing upstream client: %s", err))
	}

	store, err := files.NewStore(cfg.UploadDir, cfg.MaxUploadSize, log)
	if err != nil {
		panic(fmt.Sprintf("failed initializing upload store: %s", err))
	}

	tokens := auth.NewTokenService(cfg)
	engine := relay.NewEngine(upstreamClient, log)
	cat := catalog.New(upstreamClient, redisClient, log)

	e := echo.New()
	e.GET(("/ping"), func(c echo.Context) error {
		return c.String(200, "")
	})
	if *metricsAPIKey != "" {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				token, err := shared.ExtractBearerToken(c)
				if err != nil {
					return c.String(401, "Missing or invalid API key")
				}
				if token != *metricsAPIKey {
					return c.String(401, "Unauthorized API key")
				}
				return next(c)
			}
		})
	}
	base := e.Group("")
	base.Use(emw.CORS())
	base.Use(middleware.NewRecoverMiddleware(log))
	base.Use(middleware.NewTrackMiddleware(log))

	err = routers.RegisterRoutes(base, routers.Deps{
		Config:   cfg,
		Tokens:   tokens,
		Engine:   engine,
		Catalog:  cat,
		Store:    store,
		Upstream: upstreamClient,
		Log:      log,
	})
	if err != nil {
		panic(err)
	}

	go func() {
		if err := e.Start(cfg.ListenAddr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), shared.DefaultShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
}
