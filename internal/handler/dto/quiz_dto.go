package dto

import (
	"time"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	"github.com/yourusername/quiz-reward-api/internal/handler/helper"
	"github.com/yourusername/quiz-reward-api/internal/service"
)

// QuizRequest - тело создания и редактирования викторины
type QuizRequest struct {
	Title        string `json:"title" binding:"required,min=3,max=100"`
	Description  string `json:"description" binding:"omitempty,max=500"`
	RewardAmount int64  `json:"reward_amount" binding:"gte=0"`
	TimeLimit    int    `json:"time_limit" binding:"required,gt=0,lte=600"` // секунды на вопрос
	Category     string `json:"category" binding:"omitempty,max=50"`
	IsActive     bool   `json:"is_active"`
}

// ToInput преобразует запрос во входные данные сервиса
func (r QuizRequest) ToInput() service.QuizInput {
	return service.QuizInput{
		Title:        r.Title,
		Description:  r.Description,
		RewardAmount: r.RewardAmount,
		TimeLimit:    r.TimeLimit,
		Category:     r.Category,
		IsActive:     r.IsActive,
	}
}

// SetActiveRequest - тело переключения активности
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// QuestionRequest - новый вопрос. Варианты передаются строками, id присваиваются по порядку.
type QuestionRequest struct {
	Text          string   `json:"text" binding:"required,min=3,max=500"`
	Options       []string `json:"options" binding:"required,min=2,max=6,dive,required"`
	CorrectOption int      `json:"correct_option" binding:"min=0"`
}

// AddQuestionsRequest - пакет вопросов для викторины
type AddQuestionsRequest struct {
	Questions []QuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// ToEntities преобразует запрос в вопросы
func (r AddQuestionsRequest) ToEntities(quizID string) []entity.Question {
	questions := make([]entity.Question, 0, len(r.Questions))
	for _, q := range r.Questions {
		questions = append(questions, entity.Question{
			QuizID:        quizID,
			Text:          q.Text,
			Options:       helper.ConvertOptionsToObjects(q.Options),
			CorrectOption: q.CorrectOption,
		})
	}
	return questions
}

// QuizResponse представляет викторину в формате для ответа клиенту
type QuizResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	RewardAmount  int64     `json:"reward_amount"`
	TimeLimit     int       `json:"time_limit"`
	IsActive      bool      `json:"is_active"`
	QuestionCount int       `json:"question_count"`
	Category      string    `json:"category,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AdminQuestionResponse - вопрос вместе с правильным ответом, только для админки
type AdminQuestionResponse struct {
	ID            string          `json:"id"`
	Text          string          `json:"text"`
	Options       []entity.Option `json:"options"`
	CorrectOption int             `json:"correct_option"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AdminQuizResponse - викторина с вопросами для админки
type AdminQuizResponse struct {
	QuizResponse
	Questions []AdminQuestionResponse `json:"questions"`
}

// NewQuizResponse создает DTO для викторины
func NewQuizResponse(quiz *entity.Quiz) *QuizResponse {
	if quiz == nil {
		return nil
	}
	return &QuizResponse{
		ID:            quiz.ID,
		Title:         quiz.Title,
		Description:   quiz.Description,
		RewardAmount:  quiz.RewardAmount,
		TimeLimit:     quiz.TimeLimit,
		IsActive:      quiz.IsActive,
		QuestionCount: quiz.QuestionCount,
		Category:      quiz.Category,
		CreatedAt:     quiz.CreatedAt,
		UpdatedAt:     quiz.UpdatedAt,
	}
}

// NewListQuizResponse создает DTO для списка викторин
func NewListQuizResponse(quizzes []entity.Quiz) []*QuizResponse {
	result := make([]*QuizResponse, 0, len(quizzes))
	for i := range quizzes {
		result = append(result, NewQuizResponse(&quizzes[i]))
	}
	return result
}

// NewAdminQuizResponse создает DTO викторины с вопросами
func NewAdminQuizResponse(quiz *entity.Quiz) *AdminQuizResponse {
	resp := &AdminQuizResponse{
		QuizResponse: *NewQuizResponse(quiz),
		Questions:    make([]AdminQuestionResponse, 0, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		resp.Questions = append(resp.Questions, AdminQuestionResponse{
			ID:            q.ID,
			Text:          q.Text,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			CreatedAt:     q.CreatedAt,
		})
	}
	return resp
}
