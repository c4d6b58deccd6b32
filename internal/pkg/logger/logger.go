package logger

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Setup настраивает глобальный logrus логгер.
// В release режиме используется JSON формат, иначе - текстовый. Уровень берется из LOG_LEVEL.
func Setup(service string, release bool) *log.Entry {
	if release {
		log.SetFormatter(&log.JSONFormatter{
			FieldMap: log.FieldMap{
				log.FieldKeyTime:  "timestamp",
				log.FieldKeyLevel: "level",
				log.FieldKeyMsg:   "message",
			},
		})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)
	log.SetLevel(ParseLevel(os.Getenv("LOG_LEVEL")))

	return log.WithField("service", service)
}

// ParseLevel переводит строку LOG_LEVEL в уровень logrus. По умолчанию info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
