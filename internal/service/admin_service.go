package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	"github.com/yourusername/quiz-reward-api/internal/domain/repository"
	apperrors "github.com/yourusername/quiz-reward-api/internal/pkg/errors"
)

const (
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"

	exportPageSize = 500
	maxListLimit   = 100
)

// AttemptPage - страница попыток для админки
type AttemptPage struct {
	Attempts []entity.AttemptWithQuiz `json:"attempts"`
	Total    int64                    `json:"total"`
	Limit    int                      `json:"limit"`
	Offset   int                      `json:"offset"`
}

// AdminService - проверки прав и отчеты администратора
type AdminService struct {
	adminRepo   repository.AdminRepository
	attemptRepo repository.AttemptRepository
	currency    string
}

// NewAdminService создает сервис администратора
func NewAdminService(adminRepo repository.AdminRepository, attemptRepo repository.AttemptRepository, currency string) *AdminService {
	return &AdminService{adminRepo: adminRepo, attemptRepo: attemptRepo, currency: currency}
}

func (s *AdminService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return s.adminRepo.IsAdmin(ctx, userID)
}

// Grant выдает права администратора. Повторная выдача не ошибка.
func (s *AdminService) Grant(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", apperrors.ErrValidation)
	}
	if err := s.adminRepo.Grant(ctx, userID); err != nil {
		return err
	}
	log.Infof("[AdminService] Пользователю %s выданы права администратора", userID)
	return nil
}

// ListAttempts возвращает страницу попыток всех пользователей
func (s *AdminService) ListAttempts(ctx context.Context, limit, offset int) (*AttemptPage, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	attempts, total, err := s.attemptRepo.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if attempts == nil {
		attempts = []entity.AttemptWithQuiz{}
	}
	return &AttemptPage{Attempts: attempts, Total: total, Limit: limit, Offset: offset}, nil
}

var exportHeaders = []string{"Попытка", "Пользователь", "Квиз", "Правильных", "Всего вопросов", "Счет (%)", "Награда", "Завершена"}

func (s *AdminService) exportRow(a entity.AttemptWithQuiz) []string {
	return []string{
		a.ID,
		a.UserID,
		sanitizeForExcel(a.QuizTitle),
		strconv.Itoa(a.CorrectAnswers),
		strconv.Itoa(a.TotalQuestions),
		strconv.FormatFloat(a.Score, 'f', 2, 64),
		FormatMinorUnits(a.EarnedAmount, s.currency),
		a.CompletedAt.UTC().Format(time.RFC3339),
	}
}

// forEachAttempt обходит все попытки постранично
func (s *AdminService) forEachAttempt(ctx context.Context, fn func(entity.AttemptWithQuiz) error) error {
	for offset := 0; ; offset += exportPageSize {
		page, _, err := s.attemptRepo.ListAll(ctx, exportPageSize, offset)
		if err != nil {
			return err
		}
		for _, a := range page {
			if err := fn(a); err != nil {
				return err
			}
		}
		if len(page) < exportPageSize {
			return nil
		}
	}
}

// ExportAttempts пишет отчет по всем попыткам в w в формате csv или xlsx
func (s *AdminService) ExportAttempts(ctx context.Context, format string, w io.Writer) error {
	switch format {
	case ExportFormatCSV:
		return s.exportCSV(ctx, w)
	case ExportFormatXLSX:
		return s.exportXLSX(ctx, w)
	default:
		return fmt.Errorf("%w: unsupported export format %q", apperrors.ErrValidation, format)
	}
}

func (s *AdminService) exportCSV(ctx context.Context, w io.Writer) error {
	// BOM для корректного открытия в Excel
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeaders); err != nil {
		return err
	}
	err := s.forEachAttempt(ctx, func(a entity.AttemptWithQuiz) error {
		return writer.Write(s.exportRow(a))
	})
	if err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func (s *AdminService) exportXLSX(ctx context.Context, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Попытки"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	header := make([]interface{}, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	rowNum := 2
	err = s.forEachAttempt(ctx, func(a entity.AttemptWithQuiz) error {
		row := []interface{}{
			a.ID,
			a.UserID,
			sanitizeForExcel(a.QuizTitle),
			a.CorrectAnswers,
			a.TotalQuestions,
			a.Score,
			FormatMinorUnits(a.EarnedAmount, s.currency),
			a.CompletedAt.UTC().Format(time.RFC3339),
		}
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		rowNum++
		return sw.SetRow(cell, row)
	})
	if err != nil {
		return err
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
