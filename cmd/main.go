package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/preceptorly/feedback-backend/internal/db"
	"github.com/preceptorly/feedback-backend/internal/handlers"
	"github.com/preceptorly/feedback-backend/internal/logger"
	"github.com/preceptorly/feedback-backend/internal/middleware"
	"github.com/preceptorly/feedback-backend/internal/observability"
	"github.com/preceptorly/feedback-backend/internal/repos"
	"github.com/preceptorly/feedback-backend/internal/sendgrid"
	"github.com/preceptorly/feedback-backend/internal/server"
	"github.com/preceptorly/feedback-backend/internal/services"
	"github.com/preceptorly/feedback-backend/internal/sse"
	"github.com/preceptorly/feedback-backend/internal/standards"
	"github.com/preceptorly/feedback-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)

	// Tracing
	shutdownOTel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "preceptor-feedback",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if shutdownOTel != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownOTel(ctx)
		}()
	}

	// Standards catalog
	catalog, err := standards.Load()
	if err != nil {
		log.Error("Could not load standards catalog", "error", err)
		os.Exit(1)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	preceptorRepo := repos.NewPreceptorRepo(thePG, log)
	preceptorTokenRepo := repos.NewPreceptorTokenRepo(thePG, log)
	sessionRepo := repos.NewSessionRepo(thePG, log)
	reportRepo := repos.NewReportRepo(thePG, log)
	aiCallLogRepo := repos.NewAICallLogRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewSSEHub(log)

	var emitter services.SSEEmitter = &services.HubEmitter{Hub: sseHub}
	if os.Getenv("REDIS_ADDR") != "" {
		bus, busErr := services.NewRedisSSEBus(log)
		if busErr != nil {
			log.Warn("Redis SSE bus init failed; using in-process hub", "error", busErr)
		} else {
			if fwErr := bus.StartForwarder(context.Background(), func(m sse.SSEMessage) {
				sseHub.Broadcast(m)
			}); fwErr != nil {
				log.Warn("Redis SSE forwarder failed; using in-process hub", "error", fwErr)
			} else {
				emitter = &services.RedisEmitter{Bus: bus}
				defer bus.Close()
			}
		}
	}

	// Services
	log.Info("Setting up Services from main...")
	openaiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}

	privacyScreen := services.NewPrivacyScreen(log, openaiClient, aiCallLogRepo)
	classifier := services.NewQualityClassifier(log, openaiClient, aiCallLogRepo)
	synthesizer := services.NewSynthesizer(log, openaiClient, aiCallLogRepo)

	machine, err := services.NewFeedbackSessionMachine(log, catalog, privacyScreen, classifier, synthesizer)
	if err != nil {
		log.Error("Could not init FeedbackSessionMachine", "error", err)
		os.Exit(1)
	}

	reportAssembler, err := services.NewReportAssembler(log, catalog, reportRepo)
	if err != nil {
		log.Error("Could not init ReportAssembler", "error", err)
		os.Exit(1)
	}

	var mailer services.ReportMailer
	if os.Getenv("SENDGRID_API_KEY") != "" {
		mailClient, mailErr := sendgrid.NewClient(log)
		if mailErr != nil {
			log.Warn("Could not init SendGrid client; report emails disabled", "error", mailErr)
		} else {
			mailer = services.NewReportMailer(log, mailClient, reportAssembler)
		}
	} else {
		log.Warn("SENDGRID_API_KEY not set; report emails disabled")
	}

	notifier := services.NewSessionNotifier(emitter)

	authService := services.NewAuthService(
		thePG,
		log,
		preceptorRepo,
		preceptorTokenRepo,
		jwtSecretKey,
		time.Duration(accessTokenTTL)*time.Second,
		time.Duration(refreshTokenTTL)*time.Second,
	)

	sessionService, err := services.NewSessionService(log, catalog, machine, sessionRepo, reportAssembler, mailer, notifier)
	if err != nil {
		log.Error("Could not init SessionService", "error", err)
		os.Exit(1)
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	sessionHandler := handlers.NewSessionHandler(log, sessionService, reportAssembler)
	sseHandler := handlers.NewSSEHandler(log, sseHub)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ServiceName:    "preceptor-feedback",
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		SessionHandler: sessionHandler,
		SSEHandler:     sseHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
