package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/yourusername/quiz-reward-api/internal/config"
	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	"github.com/yourusername/quiz-reward-api/internal/handler"
	"github.com/yourusername/quiz-reward-api/internal/middleware"
	"github.com/yourusername/quiz-reward-api/internal/pkg/logger"
	pgRepo "github.com/yourusername/quiz-reward-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/quiz-reward-api/internal/repository/redis"
	"github.com/yourusername/quiz-reward-api/internal/service"
	"github.com/yourusername/quiz-reward-api/internal/service/attempt"
	ws "github.com/yourusername/quiz-reward-api/internal/websocket"
	"github.com/yourusername/quiz-reward-api/pkg/auth"
	"github.com/yourusername/quiz-reward-api/pkg/database"
	"github.com/yourusername/quiz-reward-api/pkg/razorpay"
)

func main() {
	// .env нужен только для локальной разработки
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	isProduction := gin.Mode() == gin.ReleaseMode
	logger.Setup("quiz-reward-api", isProduction)

	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Infof("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), !isProduction)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Применяем миграции
	if err := database.MigrateDB(db, cfg.Database.MigrationsPath); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Инициализируем подключение к Redis с использованием унифицированной конфигурации
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Info("Successfully connected to Redis")

	// Инициализируем репозитории
	quizRepo := pgRepo.NewQuizRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	attemptRepo := pgRepo.NewAttemptRepo(db)
	profileRepo := pgRepo.NewProfileRepo(db)
	paymentRepo := pgRepo.NewPaymentRepo(db)
	adminRepo := pgRepo.NewAdminRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Fatalf("Failed to initialize CacheRepo: %v", err)
	}
	sessionRepo, err := redisRepo.NewSessionRepo(redisClient)
	if err != nil {
		log.Fatalf("Failed to initialize SessionRepo: %v", err)
	}
	outbox, err := redisRepo.NewAttemptOutbox(redisClient)
	if err != nil {
		log.Fatalf("Failed to initialize AttemptOutbox: %v", err)
	}

	// Создаем контекст с отменой для корректного завершения работы горутин
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- WebSocket хаб и доставка между инстансами ---
	wsHub := ws.NewHub()
	wsManager := ws.NewManager(wsHub)
	relay, err := ws.NewRedisRelay(redisClient, wsHub, ws.DefaultRelayChannel)
	if err != nil {
		log.Fatalf("Failed to create WS relay: %v", err)
	}
	if err := relay.Start(ctx); err != nil {
		// Без relay события доходят только до подключений этого инстанса
		log.Errorf("Failed to start WS relay: %v", err)
	}

	// --- Сервисы ---
	jwtService, err := auth.NewJWTService(cfg.Session.Secret, cfg.Session.TokenTTL)
	if err != nil {
		log.Fatalf("Failed to initialize JWTService: %v", err)
	}
	googleOAuth, err := service.NewGoogleOAuthService(cfg.Google)
	if err != nil {
		log.Fatalf("Failed to initialize Google OAuth: %v", err)
	}

	var emailService service.EmailService = &service.NoopEmailService{}
	if cfg.Email.APIKey != "" {
		resendService, err := service.NewResendEmailService(cfg.Email.APIKey, fmt.Sprintf("%s <%s>", cfg.Email.FromName, cfg.Email.FromEmail))
		if err != nil {
			log.Fatalf("Failed to initialize email service: %v", err)
		}
		emailService = resendService
	} else {
		log.Warn("RESEND_API_KEY не задан, чеки об оплате отправляться не будут")
	}

	gateway := razorpay.NewClient(cfg.Razorpay.BaseURL, cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.Timeout)

	sessionService := service.NewSessionService(googleOAuth, profileRepo, sessionRepo, jwtService, cfg.Session.IdleTimeout)
	quizService := service.NewQuizService(quizRepo, questionRepo, cacheRepo, cfg.Quiz.CatalogCacheTTL)
	paymentService := service.NewPaymentService(paymentRepo, profileRepo, gateway, emailService, cfg.Razorpay.Currency)
	profileService := service.NewProfileService(profileRepo, attemptRepo)
	adminService := service.NewAdminService(adminRepo, attemptRepo, cfg.Razorpay.Currency)

	engineCfg := attempt.DefaultConfig()
	engineCfg.OutboxRetryInterval = cfg.Quiz.OutboxRetryInterval
	engine := attempt.NewEngine(attempt.Dependencies{
		Quizzes:  quizService,
		Attempts: attemptRepo,
		Outbox:   outbox,
		Locks:    cacheRepo,
		Notifier: wsHub,
	}, engineCfg)
	go engine.RunOutboxWorker(ctx)

	// Выход по бездействию и явный выход закрывают прохождение и WS подключения сессии
	onSignOut := func(eventType string) func(entity.Session) {
		return func(session entity.Session) {
			engine.AbandonUser(session.UserID)
			wsHub.DisconnectSession(session.ID, eventType, gin.H{"session_id": session.ID})
		}
	}
	idleDetector := service.NewIdleDetector(sessionService, cfg.Session.SweepInterval)
	idleDetector.Subscribe(service.IdleSubscriber(onSignOut(ws.SESSION_EXPIRED)))
	go idleDetector.Run(ctx)

	// --- HTTP ---
	authMiddleware := middleware.NewAuthMiddleware(sessionService, adminService)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Development: доверяем localhost. Production: не доверяем прокси-заголовкам.
	var trusted []string
	if !isProduction {
		trusted = []string{"127.0.0.1", "::1"}
	}

	router := handler.NewRouter(handler.RouterDeps{
		Auth:    handler.NewAuthHandler(sessionService, profileService, adminService, onSignOut(ws.SIGNED_OUT)),
		Quiz:    handler.NewQuizHandler(quizService),
		Attempt: handler.NewAttemptHandler(engine),
		Payment: handler.NewPaymentHandler(paymentService),
		Profile: handler.NewProfileHandler(profileService),
		Admin:   handler.NewAdminHandler(adminService),
		WS:      handler.NewWSHandler(sessionService, engine, wsManager, cfg.Server.AllowOrigins),
		AuthMW:  authMiddleware,
		Limiter: rateLimiter,
		Origins: cfg.Server.AllowOrigins,
		Trusted: trusted,
		Health: map[string]handler.HealthCheck{
			"postgres": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
	})

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// После получения сигнала SIGINT или SIGTERM вызываем cancel() для завершения горутин
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	// Незавершенные прохождения не сохраняются, их блокировки снимаются
	engine.Close()
	wsHub.Close()
	cancel()
	relay.Stop()

	// Последняя попытка сохранить отложенные результаты
	if n, err := engine.RetryOutbox(shutdownCtx); err != nil {
		log.Warnf("Outbox flush failed after %d attempts: %v", n, err)
	}

	if err := redisClient.Close(); err != nil {
		log.Warnf("Error closing Redis client: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info("Server exited properly")
}
