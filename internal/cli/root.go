package cli

import (
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/yourusername/quiz-reward-api/internal/config"
	"github.com/yourusername/quiz-reward-api/pkg/database"
)

// Execute запускает quizctl
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd собирает дерево команд
func NewRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	var configPath string
	cmd := &cobra.Command{
		Use:           "quizctl",
		Short:         "Operational tool for the quiz reward API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")

	cmd.AddCommand(
		NewMigrateCmd(&configPath),
		NewGrantAdminCmd(&configPath),
		NewSeedCmd(&configPath),
		NewReconcileCmd(&configPath),
	)
	return cmd
}

// env - подключения, общие для команд
type env struct {
	cfg   *config.Config
	db    *gorm.DB
	redis redis.UniversalClient
}

func (e *env) Close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	if e.db != nil {
		if sqlDB, err := e.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func openEnv(configPath string, withRedis bool) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), false)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, db: db}
	if withRedis {
		client, err := database.NewUniversalRedisClient(cfg.Redis)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		e.redis = client
	}
	return e, nil
}
