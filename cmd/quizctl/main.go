package main

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/yourusername/quiz-reward-api/internal/cli"
	"github.com/yourusername/quiz-reward-api/internal/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	logger.Setup("quizctl", false)

	if err := cli.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
