package helpers

import (
	"fmt"
	"os"
	"time"

	"sjsage522/pricewatch/logger"
)

// LoggerInterface defines the interface for logger implementations
type LoggerInterface interface {
	LogError(competitor string, err error)
	LogInfo(format string, args ...interface{})
}

// Logger appends scrape failures to a plain-text file
type Logger struct {
	errorFile string
}

// NewLogger creates a new logger instance
func NewLogger(errorFile string) *Logger {
	return &Logger{
		errorFile: errorFile,
	}
}

// LogError logs an error to a file with competitor name and timestamp
func (l *Logger) LogError(competitor string, err error) {
	f, fileErr := os.OpenFile(l.errorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if fileErr != nil {
		logger.Error("failed to open error log %s: %v", l.errorFile, fileErr)
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] [%s] %s\n", timestamp, competitor, err.Error())
}

// LogInfo logs an informational message
func (l *Logger) LogInfo(format string, args ...interface{}) {
	logger.Info(format, args...)
}
