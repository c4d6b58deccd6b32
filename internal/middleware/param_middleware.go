package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ExtractUUIDParam создает middleware для извлечения и валидации UUID параметра URL.
// Значение сохраняется в контексте Gin под ключом contextKey в каноническом виде.
func ExtractUUIDParam(paramName, contextKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param(paramName))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", paramName)})
			return
		}
		c.Set(contextKey, id.String())
		c.Next()
	}
}
