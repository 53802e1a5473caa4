package utils

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// The hot paths (worker pool, engines, LLM manager) log through a shared
// logrus logger. Application-level events go through internal/logging and
// its adapters instead; the two coexist.

var (
	logger     *logrus.Logger
	loggerOnce sync.Once
)

// GetLogger returns the shared logrus logger instance
func GetLogger() *logrus.Logger {
	loggerOnce.Do(func() {
		logger = logrus.New()
		logger.SetOutput(os.Stdout)

		if strings.EqualFold(os.Getenv("LOG_FORMAT"), "text") {
			logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		} else {
			logger.SetFormatter(&logrus.JSONFormatter{})
		}

		level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
		if err != nil {
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)
	})
	return logger
}

// LogWithRequestID returns an entry carrying the request ID for correlation
func LogWithRequestID(requestID string) *logrus.Entry {
	return GetLogger().WithField("request_id", requestID)
}
