// Package main is the entry point for the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/swipehire/swipehire-api/internal/api"
	"github.com/swipehire/swipehire-api/internal/auth"
	"github.com/swipehire/swipehire-api/internal/config"
	"github.com/swipehire/swipehire-api/internal/content"
	"github.com/swipehire/swipehire-api/internal/db"
	"github.com/swipehire/swipehire-api/internal/feed"
	"github.com/swipehire/swipehire-api/internal/feedcache"
	"github.com/swipehire/swipehire-api/internal/health"
	"github.com/swipehire/swipehire-api/internal/idempotency"
	"github.com/swipehire/swipehire-api/internal/interaction"
	"github.com/swipehire/swipehire-api/internal/interview"
	"github.com/swipehire/swipehire-api/internal/match"
	"github.com/swipehire/swipehire-api/internal/message"
	"github.com/swipehire/swipehire-api/internal/middleware"
	"github.com/swipehire/swipehire-api/internal/profile"
	"github.com/swipehire/swipehire-api/internal/tracing"
	"github.com/swipehire/swipehire-api/internal/upload"
)

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("SwipeHire API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.LogSummary())

	// Database connection, used for readiness probes. Domain repositories are
	// in-memory; the schema migration to Postgres lands behind the same
	// repository interfaces.
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	database, err := db.Open(dbCtx, cfg.DatabaseURL)
	dbCancel()
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Redis is optional. When absent, feed sessions and rate limits fall back
	// to in-memory stores, which is fine for a single replica.
	var redisClient *redis.Client
	var sessionStore feedcache.Store
	var rateLimitStore middleware.RateLimitStore
	var redisLimiter *middleware.RedisRateLimitStore
	var redisChecker api.HealthChecker
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		sessionStore = feedcache.NewRedisStore(redisClient)
		redisLimiter = middleware.NewRedisRateLimitStore(redisClient)
		rateLimitStore = redisLimiter
		redisChecker = health.NewRedisChecker(redisClient)
		logger.Info("redis connected", "addr", cfg.RedisAddr)
	} else {
		sessionStore = feedcache.NewInMemoryStore()
		rateLimitStore = middleware.NewInMemoryRateLimitStore()
		logger.Info("redis not configured, using in-memory session and rate limit stores")
	}

	// Ranking weights, with optional calibration overrides from file
	weights, err := feed.LoadCalibration(cfg.FeedCalibrationPath)
	if err != nil {
		logger.Warn("failed to load feed calibration, using defaults",
			"path", cfg.FeedCalibrationPath, "error", err)
	}

	// Prometheus metrics
	registry := prometheus.NewRegistry()
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}
	if redisLimiter != nil {
		redisLimiter.SetMetrics(httpMetrics)
	}
	feedMetrics := feed.NewMetrics()
	if err := feedMetrics.Register(registry); err != nil {
		logger.Error("failed to register feed metrics", "error", err)
		os.Exit(1)
	}

	// Tracing
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "swipehire-api",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporterType,
		OTLPEndpoint: cfg.TracingOTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.Env == "development",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down tracer provider", "error", err)
		}
	}()

	// Repositories
	items := content.NewInMemoryRepository()
	profiles := profile.NewInMemoryRepository()
	interactions := interaction.NewInMemoryRepository()
	matches := match.NewInMemoryRepository()
	messages := message.NewInMemoryRepository()
	interviews := interview.NewInMemoryRepository()
	idempotencyRepo := idempotency.NewInMemoryRepository()

	// Periodic cleanup of expired idempotency keys
	cleanupStop := make(chan struct{})
	defer close(cleanupStop)
	go idempotency.RunPeriodicCleanup(idempotencyRepo, time.Hour, 24*time.Hour, cleanupStop)

	broadcaster := message.NewEventBroadcaster()

	// Dual-key mode keeps tokens signed with the previous secret valid while
	// a rotation is in progress.
	currentSecret, previousSecret := cfg.GetJWTSecrets()
	jwtService := auth.NewJWTService(auth.Config{
		CurrentSecret:  currentSecret,
		PreviousSecret: previousSecret,
	})

	// Upload signing is only available when R2 is configured
	var uploadService *upload.Service
	if cfg.R2BucketName != "" {
		uploadService, err = upload.NewService(upload.ServiceConfig{
			BucketName:      cfg.R2BucketName,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			Endpoint:        cfg.R2Endpoint,
		})
		if err != nil {
			logger.Error("failed to initialize upload service", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("R2 not configured, upload signing disabled")
	}

	// Handlers
	feedHandlers := api.NewFeedHandlers(api.FeedHandlersConfig{
		Items:        items,
		Profiles:     profiles,
		Interactions: interactions,
		Sessions:     sessionStore,
		Weights:      weights,
		Metrics:      feedMetrics,
		SessionTTL:   time.Duration(cfg.FeedSessionTTLMinutes) * time.Minute,
	})
	itemHandlers := api.NewItemHandlers(items)
	profileHandlers := api.NewProfileHandlers(profiles)
	swipeHandlers := api.NewSwipeHandlers(interactions, matches, profiles, sessionStore)
	matchHandlers := api.NewMatchHandlers(matches)
	messageHandlers := api.NewMessageHandlers(messages, matches, broadcaster)
	interviewHandlers := api.NewInterviewHandlers(interviews)
	telemetryHandlers := api.NewTelemetryHandlers(logger)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    health.NewDBChecker(database),
		RedisChecker: redisChecker,
	})

	mux := newRouter(routerConfig{
		feed:        feedHandlers,
		items:       itemHandlers,
		profiles:    profileHandlers,
		swipes:      swipeHandlers,
		matches:     matchHandlers,
		messages:    messageHandlers,
		interviews:  interviewHandlers,
		telemetry:   telemetryHandlers,
		health:      healthHandlers,
		uploads:     uploadService,
		profileRepo: profiles,
		registry:    registry,
	})

	// Canary routing wraps the whole mux when enabled
	var canaryRouter *middleware.CanaryRouter
	if cfg.CanaryEnabled {
		canaryRouter = middleware.NewCanaryRouter(middleware.CanaryConfig{
			Enabled:          true,
			TrafficPercent:   cfg.CanaryTrafficPercent,
			ErrorThreshold:   5.0,
			LatencyThreshold: 1.0,
			AutoRollback:     true,
			MonitoringWindow: 300,
			Version:          cfg.CanaryVersion,
		}, logger)
		canaryRouter.SetPrometheusMetrics(httpMetrics)

		canaryHandlers := api.NewCanaryHandler(canaryRouter, logger)
		mux.HandleFunc("/canary/metrics", canaryHandlers.GetMetrics)
		mux.HandleFunc("/canary/metrics/reset", canaryHandlers.ResetMetrics)
		mux.HandleFunc("/canary/rollback", canaryHandlers.Rollback)
	}

	// Middleware chain, outermost first: request ID -> logging -> (cors) ->
	// (tracing) -> metrics -> auth -> rate limiting -> idempotency ->
	// (canary) -> mux
	var handler http.Handler = mux
	if canaryRouter != nil {
		handler = canaryRouter.Middleware(handler)
	}
	handler = middleware.Idempotency(idempotencyRepo, map[string]bool{
		"/swipes":     true,
		"/matches":    true,
		"/interviews": true,
	})(handler)
	handler = middleware.RateLimiter(rateLimitStore, middleware.Limits{
		Global: middleware.GlobalLimit(),
		Routes: map[string]middleware.RateLimitConfig{
			"/feed":   middleware.FeedLimit(),
			"/swipes": middleware.SwipeLimit(),
		},
		Metrics: httpMetrics,
	}, middleware.UserKeyFunc())(handler)
	handler = middleware.OptionalAuth(jwtService)(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	if cfg.TracingEnabled {
		handler = middleware.Tracing("swipehire-api")(handler)
	}
	if cfg.CORSAllowedOrigins != "" {
		handler = middleware.CORS(middleware.CORSConfig{
			AllowedOrigins:   strings.Split(cfg.CORSAllowedOrigins, ","),
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID", "X-Feed-Session", "Idempotency-Key"},
			AllowCredentials: true,
			MaxAge:           300,
		})(handler)
	}
	handler = middleware.Logging(logger)(handler)
	if cfg.ProfilingEnabled && cfg.Env == "development" {
		handler = middleware.Profiling(middleware.ProfilingConfig{
			Enabled:     true,
			Environment: cfg.Env,
		})(handler)
	}
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// routerConfig bundles the handlers the router dispatches to.
type routerConfig struct {
	feed        *api.FeedHandlers
	items       *api.ItemHandlers
	profiles    *api.ProfileHandlers
	swipes      *api.SwipeHandlers
	matches     *api.MatchHandlers
	messages    *api.MessageHandlers
	interviews  *api.InterviewHandlers
	telemetry   *api.TelemetryHandlers
	health      *api.HealthHandlers
	uploads     *upload.Service
	profileRepo profile.Repository
	registry    *prometheus.Registry
}

// newRouter builds the route table. Collection endpoints dispatch on method;
// subresource endpoints dispatch on the trailing path segment.
func newRouter(rc routerConfig) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/feed", rc.feed.Feed)

	mux.HandleFunc("/items", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			rc.items.CreateItem(w, r)
		case http.MethodGet:
			rc.items.ListItems(w, r)
		default:
			writeMethodNotAllowed(w, r)
		}
	})
	mux.HandleFunc("/items/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/engagement") && r.Method == http.MethodPost:
			rc.items.RecordEngagement(w, r)
		case strings.HasSuffix(r.URL.Path, "/moderation") && r.Method == http.MethodPost:
			rc.items.SetModeration(w, r)
		case r.Method == http.MethodGet:
			rc.items.GetItem(w, r)
		case r.Method == http.MethodPatch:
			rc.items.UpdateItem(w, r)
		case r.Method == http.MethodDelete:
			rc.items.DeleteItem(w, r)
		default:
			writeMethodNotAllowed(w, r)
		}
	})

	var avatarHandlers *api.AvatarHandlers
	if rc.uploads != nil {
		avatarHandlers = api.NewAvatarHandlers(rc.profileRepo, rc.uploads)
	}
	mux.HandleFunc("/profiles/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/avatar") {
			if avatarHandlers == nil {
				ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeInternal)
				api.WriteError(w, ctx, http.StatusServiceUnavailable, api.ErrCodeInternal, "Avatar storage is not configured")
				return
			}
			if r.Method != http.MethodPost {
				writeMethodNotAllowed(w, r)
				return
			}
			avatarHandlers.UploadAvatar(w, r)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/viewer") {
			switch r.Method {
			case http.MethodGet:
				rc.profiles.GetViewer(w, r)
			case http.MethodPut:
				rc.profiles.UpsertViewer(w, r)
			default:
				writeMethodNotAllowed(w, r)
			}
			return
		}
		switch r.Method {
		case http.MethodGet:
			rc.profiles.GetAuthor(w, r)
		case http.MethodPut:
			rc.profiles.UpsertAuthor(w, r)
		default:
			writeMethodNotAllowed(w, r)
		}
	})

	mux.HandleFunc("/swipes", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w, r)
			return
		}
		rc.swipes.RecordSwipe(w, r)
	})
	mux.HandleFunc("/follows/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			rc.swipes.Follow(w, r)
		case http.MethodDelete:
			rc.swipes.Unfollow(w, r)
		default:
			writeMethodNotAllowed(w, r)
		}
	})

	mux.HandleFunc("/matches", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			rc.matches.CreateMatch(w, r)
		case http.MethodGet:
			rc.matches.ListMatches(w, r)
		default:
			writeMethodNotAllowed(w, r)
		}
	})
	mux.HandleFunc("/matches/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/advance") && r.Method == http.MethodPost:
			rc.matches.AdvanceCandidate(w, r)
		case strings.HasSuffix(r.URL.Path, "/reject") && r.Method == http.MethodPost:
			rc.matches.RejectCandidate(w, r)
		case strings.HasSuffix(r.URL.Path, "/stage") && r.Method == http.MethodPost:
			rc.matches.MoveStage(w, r)
		case r.Method == http.MethodGet:
			rc.matches.GetMatch(w, r)
		default:
			writeMethodNotAllowed(w, r)
		}
	})

	mux.HandleFunc("/conversations", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			rc.messages.CreateConversation(w, r)
		case http.MethodGet:
			rc.messages.ListConversations(w, r)
		default:
			writeMethodNotAllowed(w, r)
		}
	})
	mux.HandleFunc("/conversations/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/messages") && r.Method == http.MethodGet:
			rc.messages.ListMessages(w, r)
		case strings.HasSuffix(r.URL.Path, "/messages") && r.Method == http.MethodPost:
			rc.messages.SendMessage(w, r)
		case strings.HasSuffix(r.URL.Path, "/ws") && r.Method == http.MethodGet:
			rc.messages.SubscribeMessages(w, r)
		case r.Method == http.MethodGet:
			rc.messages.GetConversation(w, r)
		default:
			writeMethodNotAllowed(w, r)
		}
	})

	mux.HandleFunc("/interviews", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			rc.interviews.ScheduleInterview(w, r)
		case http.MethodGet:
			rc.interviews.ListInterviews(w, r)
		default:
			writeMethodNotAllowed(w, r)
		}
	})
	mux.HandleFunc("/interviews/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/reschedule") && r.Method == http.MethodPost:
			rc.interviews.RescheduleInterview(w, r)
		case strings.HasSuffix(r.URL.Path, "/complete") && r.Method == http.MethodPost:
			rc.interviews.CompleteInterview(w, r)
		case strings.HasSuffix(r.URL.Path, "/cancel") && r.Method == http.MethodPost:
			rc.interviews.CancelInterview(w, r)
		case r.Method == http.MethodGet:
			rc.interviews.GetInterview(w, r)
		default:
			writeMethodNotAllowed(w, r)
		}
	})

	if rc.uploads != nil {
		uploadHandlers := api.NewUploadHandlers(rc.uploads)
		mux.HandleFunc("/uploads/sign", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				writeMethodNotAllowed(w, r)
				return
			}
			uploadHandlers.SignUpload(w, r)
		})
	}

	mux.HandleFunc("/telemetry/playback", rc.telemetry.PostMetrics)

	mux.HandleFunc("/health", rc.health.Health)
	mux.HandleFunc("/ready", rc.health.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(rc.registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
			api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"swipehire-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	return mux
}

func writeMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeBadRequest)
	api.WriteError(w, ctx, http.StatusMethodNotAllowed, api.ErrCodeBadRequest, "Method not allowed")
}
