package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yourusername/quiz-reward-api/internal/domain/entity"
	"github.com/yourusername/quiz-reward-api/internal/handler/helper"
	pgRepo "github.com/yourusername/quiz-reward-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/quiz-reward-api/internal/repository/redis"
	"github.com/yourusername/quiz-reward-api/internal/service"
)

// SeedQuestion - вопрос в YAML файле наполнения
type SeedQuestion struct {
	Text          string   `yaml:"text"`
	Options       []string `yaml:"options"`
	CorrectOption int      `yaml:"correct_option"`
}

// SeedQuiz - викторина в YAML файле наполнения
type SeedQuiz struct {
	Title        string         `yaml:"title"`
	Description  string         `yaml:"description"`
	Category     string         `yaml:"category"`
	RewardAmount int64          `yaml:"reward_amount"`
	TimeLimit    int            `yaml:"time_limit"`
	Active       bool           `yaml:"active"`
	Questions    []SeedQuestion `yaml:"questions"`
}

// SeedBundle - содержимое файла наполнения
type SeedBundle struct {
	Quizzes []SeedQuiz `yaml:"quizzes"`
}

// QuizWriter - операции каталога, которые использует наполнение
type QuizWriter interface {
	CreateQuiz(ctx context.Context, in service.QuizInput) (*entity.Quiz, error)
	AddQuestions(ctx context.Context, quizID string, questions []entity.Question) (*entity.Quiz, error)
	SetActive(ctx context.Context, id string, active bool) (*entity.Quiz, error)
}

// LoadSeedFile читает и проверяет YAML файл наполнения
func LoadSeedFile(r io.Reader) (*SeedBundle, error) {
	var bundle SeedBundle
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}
	if len(bundle.Quizzes) == 0 {
		return nil, fmt.Errorf("seed file has no quizzes")
	}
	for i, q := range bundle.Quizzes {
		if strings.TrimSpace(q.Title) == "" {
			return nil, fmt.Errorf("quiz %d: title is required", i+1)
		}
		if q.Active && len(q.Questions) == 0 {
			return nil, fmt.Errorf("quiz %q: active quiz needs questions", q.Title)
		}
		for j, question := range q.Questions {
			if question.CorrectOption < 0 || question.CorrectOption >= len(question.Options) {
				return nil, fmt.Errorf("quiz %q question %d: correct_option out of range", q.Title, j+1)
			}
		}
	}
	return &bundle, nil
}

// ApplySeed создает викторины из файла наполнения и возвращает их
func ApplySeed(ctx context.Context, quizzes QuizWriter, bundle *SeedBundle) ([]*entity.Quiz, error) {
	created := make([]*entity.Quiz, 0, len(bundle.Quizzes))
	for _, sq := range bundle.Quizzes {
		quiz, err := quizzes.CreateQuiz(ctx, service.QuizInput{
			Title:        sq.Title,
			Description:  sq.Description,
			RewardAmount: sq.RewardAmount,
			TimeLimit:    sq.TimeLimit,
			Category:     sq.Category,
		})
		if err != nil {
			return created, fmt.Errorf("quiz %q: %w", sq.Title, err)
		}

		if len(sq.Questions) > 0 {
			questions := make([]entity.Question, 0, len(sq.Questions))
			for j, q := range sq.Questions {
				options := helper.ConvertOptionsToObjects(q.Options)
				if options == nil {
					return created, fmt.Errorf("quiz %q question %d: too many options", sq.Title, j+1)
				}
				questions = append(questions, entity.Question{
					Text:          q.Text,
					Options:       options,
					CorrectOption: q.CorrectOption,
				})
			}
			if quiz, err = quizzes.AddQuestions(ctx, quiz.ID, questions); err != nil {
				return created, fmt.Errorf("quiz %q: %w", sq.Title, err)
			}
		}

		if sq.Active {
			if quiz, err = quizzes.SetActive(ctx, quiz.ID, true); err != nil {
				return created, fmt.Errorf("quiz %q: %w", sq.Title, err)
			}
		}
		created = append(created, quiz)
	}
	return created, nil
}

// NewSeedCmd загружает викторины из YAML файла
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Create quizzes and questions from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			bundle, err := LoadSeedFile(f)
			if err != nil {
				return err
			}

			e, err := openEnv(*configPath, true)
			if err != nil {
				return err
			}
			defer e.Close()

			cacheRepo, err := redisRepo.NewCacheRepo(e.redis)
			if err != nil {
				return err
			}
			quizzes := service.NewQuizService(pgRepo.NewQuizRepo(e.db), pgRepo.NewQuestionRepo(e.db), cacheRepo, e.cfg.Quiz.CatalogCacheTTL)

			created, err := ApplySeed(cmd.Context(), quizzes, bundle)
			for _, q := range created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tquestions=%d active=%t\n", q.ID, q.Title, q.QuestionCount, q.IsActive)
			}
			return err
		},
	}
}
