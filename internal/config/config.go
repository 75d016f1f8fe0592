package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	LogLevel string

	// Delivery page
	BaseURL  string
	PageURL  string
	PageFile string

	// Browser
	ChromePath        string
	ChromeUserDataDir string
	Headless          bool
	LoadTimeout       time.Duration

	// Item lookups
	FetchTimeout         time.Duration
	FetchCookie          string
	UserAgent            string
	FetchCacheSize       int
	FetchCacheTTL        time.Duration
	MaxConcurrentFetches int

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8082"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		BaseURL:  getEnv("BASE_URL", "https://www.amazon.com"),
		PageURL:  getEnv("PAGE_URL", "https://www.amazon.com/auto-deliveries"),
		PageFile: getEnv("PAGE_FILE", ""),

		ChromePath:        getEnv("CHROME_PATH", ""),
		ChromeUserDataDir: getEnv("CHROME_USER_DATA_DIR", ""),
		Headless:          getEnvBool("HEADLESS", true),
		LoadTimeout:       getEnvDuration("LOAD_TIMEOUT", 60*time.Second),

		FetchTimeout:         getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		FetchCookie:          getEnv("FETCH_COOKIE", ""),
		UserAgent:            getEnv("USER_AGENT", ""),
		FetchCacheSize:       getEnvInt("FETCH_CACHE_SIZE", 256),
		FetchCacheTTL:        getEnvDuration("FETCH_CACHE_TTL", 10*time.Minute),
		MaxConcurrentFetches: getEnvInt("MAX_CONCURRENT_FETCHES", 0),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "snstotal"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "card_totals"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	if err := validateHTTPURL(c.BaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid base URL '%s': %v", c.BaseURL, err))
	}

	// A saved page replaces the browser, so PAGE_URL only matters without one.
	if c.PageFile != "" {
		if _, err := os.Stat(c.PageFile); err != nil {
			errors = append(errors, fmt.Sprintf("page file is not readable: %s", c.PageFile))
		}
	} else if err := validateHTTPURL(c.PageURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid page URL '%s': %v", c.PageURL, err))
	}

	if c.LoadTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid load timeout %v: must be at least 1 second", c.LoadTimeout))
	}
	if c.FetchTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must not be negative", c.FetchTimeout))
	}

	if c.FetchCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid fetch cache size %d: must not be negative", c.FetchCacheSize))
	}
	if c.FetchCacheSize > 0 && c.FetchCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid fetch cache TTL %v: must be positive when the cache is enabled", c.FetchCacheTTL))
	}
	if c.MaxConcurrentFetches < 0 {
		errors = append(errors, fmt.Sprintf("invalid max concurrent fetches %d: must not be negative", c.MaxConcurrentFetches))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AMQPEnabled reports whether outcomes are published to a broker.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be 'http' or 'https'")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
