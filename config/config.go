package config

import (
	"net"
	"os"
	"strconv"
	"time"

	"sjsage522/pricewatch/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	Environment string

	// HTTP API
	HTTPAddr string

	// Persistence
	DBDriver     string
	DBPath       string
	DatabaseURL  string
	SeedDemoData bool

	// Redis event stream
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int64

	// Memcache cooldown
	MemcacheAddr string
	BlockTime    time.Duration

	// Scheduling
	ScrapeSchedule string

	// Browser session
	BrowserEngine   string
	ChromeBin       string
	BrowserHeadless bool
	BrowserProxy    string

	// Extraction tuning
	NavigationTimeout    time.Duration
	SelectorTimeout      time.Duration
	SelectorRetryTimeout time.Duration
	RetryAttempts        int
	RetryDelay           time.Duration
	PacingMin            time.Duration
	PacingMax            time.Duration
	DwellMin             time.Duration
	DwellMax             time.Duration
	SingleScrapeMode     string

	// Telegram notifications
	TelegramBotToken string
	TelegramChatID   int64

	ErrorLogFile string
}

// Supported values
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	EngineRod    = "rod"
	EngineStatic = "static"

	SingleModeSynthetic = "synthetic"
	SingleModeReal      = "real"
)

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamCount, _ := strconv.Atoi(getEnv("REDIS_STREAM_COUNT", "1"))
	streamMax, _ := strconv.ParseInt(getEnv("REDIS_STREAM_MAX_LENGTH", "1000"), 10, 64)
	retryAttempts, _ := strconv.Atoi(getEnv("RETRY_ATTEMPTS", "3"))
	chatID, _ := strconv.ParseInt(getEnv("TELEGRAM_CHAT_ID", "0"), 10, 64)

	return &Config{
		Environment:          getEnv("PRICEWATCH_ENVIRONMENT", "development"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":3001"),
		DBDriver:             getEnv("DB_DRIVER", DriverSQLite),
		DBPath:               getEnv("DB_PATH", "./data/pricewatch.db"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		SeedDemoData:         getBool("SEED_DEMO_DATA", true),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "pricewatch"),
		RedisStreamCount:     streamCount,
		RedisStreamMaxLength: streamMax,
		MemcacheAddr:         os.Getenv("MEMCACHE_ADDR"),
		BlockTime:            getSeconds("BLOCK_TIME_SECONDS", 900),
		ScrapeSchedule:       getEnvAllowEmpty("SCRAPE_SCHEDULE", "@every 6h"),
		BrowserEngine:        getEnv("BROWSER_ENGINE", EngineRod),
		ChromeBin:            os.Getenv("CHROME_BIN"),
		BrowserHeadless:      getBool("BROWSER_HEADLESS", true),
		BrowserProxy:         os.Getenv("BROWSER_PROXY"),
		NavigationTimeout:    getSeconds("NAVIGATION_TIMEOUT_SECONDS", 30),
		SelectorTimeout:      getSeconds("SELECTOR_TIMEOUT_SECONDS", 10),
		SelectorRetryTimeout: getSeconds("SELECTOR_RETRY_TIMEOUT_SECONDS", 5),
		RetryAttempts:        retryAttempts,
		RetryDelay:           getMillis("RETRY_DELAY_MS", 2000),
		PacingMin:            getMillis("PACING_MIN_MS", 2000),
		PacingMax:            getMillis("PACING_MAX_MS", 5000),
		DwellMin:             getMillis("DWELL_MIN_MS", 1500),
		DwellMax:             getMillis("DWELL_MAX_MS", 3000),
		SingleScrapeMode:     getEnv("SINGLE_SCRAPE_MODE", SingleModeSynthetic),
		TelegramBotToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:       chatID,
		ErrorLogFile:         getEnv("ERROR_LOG_FILE", "./data/scrape_errors.log"),
	}
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.NewConfiguration("DATABASE_URL is required for the postgres driver", nil)
		}
	default:
		return errors.NewConfiguration("unknown DB_DRIVER "+strconv.Quote(c.DBDriver), nil)
	}
	if c.BrowserEngine != EngineRod && c.BrowserEngine != EngineStatic {
		return errors.NewConfiguration("unknown BROWSER_ENGINE "+strconv.Quote(c.BrowserEngine), nil)
	}
	if c.SingleScrapeMode != SingleModeSynthetic && c.SingleScrapeMode != SingleModeReal {
		return errors.NewConfiguration("unknown SINGLE_SCRAPE_MODE "+strconv.Quote(c.SingleScrapeMode), nil)
	}
	if _, port, err := net.SplitHostPort(c.HTTPAddr); err != nil {
		return errors.NewConfiguration("invalid HTTP_ADDR "+strconv.Quote(c.HTTPAddr), err)
	} else if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		return errors.NewConfiguration("HTTP_ADDR needs a port between 1 and 65535", err)
	}
	if c.RetryAttempts < 1 {
		return errors.NewConfiguration("RETRY_ATTEMPTS must be at least 1", nil)
	}
	for _, d := range []time.Duration{c.NavigationTimeout, c.SelectorTimeout, c.SelectorRetryTimeout,
		c.RetryDelay, c.PacingMin, c.PacingMax, c.DwellMin, c.DwellMax, c.BlockTime} {
		if d < 0 {
			return errors.NewConfiguration("durations must not be negative", nil)
		}
	}
	if c.PacingMin > c.PacingMax {
		return errors.NewConfiguration("PACING_MIN_MS must not exceed PACING_MAX_MS", nil)
	}
	if c.DwellMin > c.DwellMax {
		return errors.NewConfiguration("DWELL_MIN_MS must not exceed DWELL_MAX_MS", nil)
	}
	if c.RedisStreamCount < 1 {
		return errors.NewConfiguration("REDIS_STREAM_COUNT must be at least 1", nil)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAllowEmpty distinguishes an unset variable from one explicitly set to ""
func getEnvAllowEmpty(key, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	return value
}

func getBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return b
}

func getSeconds(key string, defaultValue int) time.Duration {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		n = defaultValue
	}
	return time.Duration(n) * time.Second
}

func getMillis(key string, defaultValue int) time.Duration {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		n = defaultValue
	}
	return time.Duration(n) * time.Millisecond
}
