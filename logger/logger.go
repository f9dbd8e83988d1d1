package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger represents a structured logger
type Logger struct {
	logger zerolog.Logger
}

var (
	// Default is the default logger instance
	Default *Logger
)

// Init initializes the logger from LOG_LEVEL and PRICEWATCH_ENVIRONMENT.
// Production writes JSON lines; elsewhere output is human readable.
func Init() {
	level := getLogLevel()

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(level)

	var output io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	if production() {
		output = os.Stdout
	}

	Default = &Logger{logger: zerolog.New(output).With().Timestamp().Logger()}

	Default.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

func production() bool {
	return os.Getenv("PRICEWATCH_ENVIRONMENT") == "production"
}

func getLogLevel() zerolog.Level {
	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		if production() {
			return zerolog.InfoLevel
		}
		return zerolog.DebugLevel
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// WithField creates a new logger with a single field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// Debug returns a debug event
func (l *Logger) Debug() *zerolog.Event {
	return l.logger.Debug()
}

// Info returns an info event
func (l *Logger) Info() *zerolog.Event {
	return l.logger.Info()
}

// Warn returns a warn event
func (l *Logger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

// Error returns an error event
func (l *Logger) Error() *zerolog.Event {
	return l.logger.Error()
}

// Fatal returns a fatal event
func (l *Logger) Fatal() *zerolog.Event {
	return l.logger.Fatal()
}

func ensure() {
	if Default == nil {
		Init()
	}
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	ensure()
	Default.Info().Msgf(format, v...)
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	ensure()
	Default.Error().Msgf(format, v...)
}

func component(name string) *Logger {
	ensure()
	return Default.WithField("component", name)
}

// ForExtractor creates a logger scoped to one competitor
func ForExtractor(competitor string) *Logger {
	return component("extractor").WithField("competitor", competitor)
}

// ForFleet creates a logger for fleet runs
func ForFleet() *Logger { return component("fleet") }

// ForStore creates a logger for the persistence layer
func ForStore() *Logger { return component("store") }

// ForAlerts creates a logger for the alert detector
func ForAlerts() *Logger { return component("alerts") }

// ForAPI creates a logger for the HTTP API
func ForAPI() *Logger { return component("api") }

// ForWorker creates a logger for the scheduler
func ForWorker() *Logger { return component("worker") }

// ForPublisher creates a logger for the publisher
func ForPublisher() *Logger { return component("publisher") }

// ForCache creates a logger for the cache
func ForCache() *Logger { return component("cache") }

// ForNotifier creates a logger for chat notifications
func ForNotifier() *Logger { return component("notifier") }
