package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/yourusername/quiz-reward-api/internal/middleware"
)

// HealthCheck проверяет зависимость (БД, Redis) для /health
type HealthCheck func(ctx context.Context) error

// RouterDeps - все, что нужно для сборки HTTP маршрутов
type RouterDeps struct {
	Auth    *AuthHandler
	Quiz    *QuizHandler
	Attempt *AttemptHandler
	Payment *PaymentHandler
	Profile *ProfileHandler
	Admin   *AdminHandler
	WS      *WSHandler
	AuthMW  *middleware.AuthMiddleware
	Limiter *middleware.RateLimiter // nil отключает rate limiting
	Origins []string
	Health  map[string]HealthCheck
	Trusted []string // доверенные прокси для c.ClientIP()
}

// NewRouter собирает gin.Engine со всеми маршрутами
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Metrics(), middleware.CORS(d.Origins))

	if err := router.SetTrustedProxies(d.Trusted); err != nil {
		log.Warnf("[Router] Failed to set trusted proxies: %v", err)
	}

	limit := func(cfg middleware.RateLimitConfig, byUser bool) gin.HandlerFunc {
		switch {
		case d.Limiter == nil:
			return func(c *gin.Context) { c.Next() }
		case byUser:
			return d.Limiter.LimitByUser(cfg)
		default:
			return d.Limiter.LimitByIP(cfg)
		}
	}
	requireAuth := d.AuthMW.RequireAuth()

	// Платежные функции: 401 без токена, ответ об ошибке всегда 400 {error}
	for _, prefix := range []string{"", "/api/payments"} {
		payments := router.Group(prefix, requireAuth, limit(middleware.PaymentRateLimitConfig(), true))
		payments.POST("/create-order", d.Payment.CreateOrder)
		payments.POST("/verify-payment", d.Payment.VerifyPayment)
	}

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.GET("/google/url", d.Auth.GoogleURL)
			authGroup.POST("/google/callback", limit(middleware.AuthRateLimitConfig(), false), d.Auth.GoogleCallback)

			authed := authGroup.Group("", requireAuth)
			authed.POST("/logout", d.Auth.Logout)
			authed.POST("/activity", d.Auth.Activity)
			authed.GET("/me", d.Auth.Me)
			authed.POST("/ws-ticket", d.Auth.WSTicket)
		}

		quizzes := api.Group("/quizzes")
		{
			quizzes.GET("", d.Quiz.ListActive)
			quizzes.GET("/:id", middleware.ExtractUUIDParam("id", ContextQuizID), d.Quiz.GetQuiz)
		}

		attempts := api.Group("/attempts", requireAuth)
		{
			attempts.POST("", d.Attempt.Start)
			attempts.POST("/answer", limit(middleware.AnswerRateLimitConfig(), true), d.Attempt.Answer)
			attempts.GET("/current", d.Attempt.Current)
			attempts.DELETE("/current", d.Attempt.Abandon)
		}

		profile := api.Group("/profile", requireAuth)
		{
			profile.GET("", d.Profile.Overview)
			profile.GET("/attempts", d.Profile.Attempts)
			profile.GET("/wallet", d.Profile.Wallet)
		}

		// /check доступен любому пользователю, остальное только администраторам
		api.GET("/admin/check", requireAuth, d.Admin.Check)

		admin := api.Group("/admin", requireAuth, d.AuthMW.AdminOnly())
		{
			admin.GET("/quizzes", d.Quiz.AdminList)
			admin.POST("/quizzes", d.Quiz.CreateQuiz)

			quizWithID := admin.Group("/quizzes/:id", middleware.ExtractUUIDParam("id", ContextQuizID))
			quizWithID.GET("", d.Quiz.AdminGet)
			quizWithID.PUT("", d.Quiz.UpdateQuiz)
			quizWithID.PATCH("/active", d.Quiz.SetActive)
			quizWithID.POST("/questions", d.Quiz.AddQuestions)

			admin.GET("/attempts", d.Admin.ListAttempts)
			admin.GET("/attempts/export", d.Admin.ExportAttempts)
		}
	}

	if d.WS != nil {
		router.GET("/ws", d.WS.HandleConnection)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", healthHandler(d.Health))

	return router
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}
		if status == http.StatusOK {
			result["status"] = "ok"
		} else {
			result["status"] = "degraded"
		}
		c.JSON(status, result)
	}
}
