package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/quiz-reward-api/internal/middleware"
	"github.com/yourusername/quiz-reward-api/internal/service"
)

// AdminReports - отчеты по попыткам
type AdminReports interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
	ListAttempts(ctx context.Context, limit, offset int) (*service.AttemptPage, error)
	ExportAttempts(ctx context.Context, format string, w io.Writer) error
}

// AdminHandler обрабатывает запросы админ-панели, кроме управления викторинами
type AdminHandler struct {
	admin AdminReports
}

// NewAdminHandler создает обработчик админки
func NewAdminHandler(admin AdminReports) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// Check сообщает клиенту, есть ли у пользователя доступ к админке. Не требует прав администратора.
func (h *AdminHandler) Check(c *gin.Context) {
	isAdmin, err := h.admin.IsAdmin(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_admin": isAdmin})
}

// ListAttempts возвращает страницу попыток всех пользователей
func (h *AdminHandler) ListAttempts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	page, err := h.admin.ListAttempts(c.Request.Context(), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ExportAttempts выгружает все попытки в CSV или XLSX
func (h *AdminHandler) ExportAttempts(c *gin.Context) {
	format := c.DefaultQuery("format", service.ExportFormatXLSX)

	// Файл собирается целиком до ответа: при ошибке клиент получает код ошибки, а не обрезанный файл
	var buf bytes.Buffer
	if err := h.admin.ExportAttempts(c.Request.Context(), format, &buf); err != nil {
		handleError(c, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if format == service.ExportFormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	filename := fmt.Sprintf("attempts_%s.%s", time.Now().UTC().Format("20060102_150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
