package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// AppCORS разрешает запросы только с настроенных origin
func AppCORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	}
	return cors.New(cfg)
}

// PaymentCORS - открытый CORS для функций оплаты, которые вызываются из виджета шлюза
func PaymentCORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"POST", "OPTIONS"},
		AllowHeaders:    []string{"authorization", "x-client-info", "apikey", "content-type"},
		MaxAge:          12 * time.Hour,
	})
}

// PaymentPaths - маршруты функций оплаты, которые получают открытый CORS
var PaymentPaths = map[string]struct{}{
	"/create-order":                {},
	"/verify-payment":              {},
	"/api/payments/create-order":   {},
	"/api/payments/verify-payment": {},
}

// CORS выбирает политику по пути запроса. Подключается глобально,
// чтобы preflight доходил до политики и для путей без OPTIONS маршрута.
func CORS(origins []string) gin.HandlerFunc {
	app := AppCORS(origins)
	payment := PaymentCORS()
	return func(c *gin.Context) {
		if _, ok := PaymentPaths[c.Request.URL.Path]; ok {
			payment(c)
			return
		}
		app(c)
	}
}
