// Package config handles configuration loading from environment variables, an optional .env file and mounted secrets.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"nivel_exporter/internal/types"
)

// Config holds all configuration for the nivel exporter.
type Config struct {
	// Telemetry API
	APIBaseURL     string
	SampleOrder    string // newest_first, oldest_first
	UseBuckets     bool
	PollInterval   time.Duration
	RequestTimeout time.Duration

	// Presentation
	TankName   string
	StatusLang string // pt, en

	// Server configuration
	ListenAddr  string
	CORSOrigins []string

	// Kafka sink, disabled when no brokers are set
	KafkaBrokers []string
	KafkaTopic   string

	// MQTT sink, disabled when no broker is set
	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	// Logging configuration
	LogLevel  string // debug, info, warn, error
	LogFormat string // text, json
}

// LoadConfig loads configuration from the environment.
// Variables from the .env file named by NIVEL_ENV_FILE (default ".env") are applied
// first without overriding anything already set in the process environment.
func LoadConfig() (*Config, error) {
	envFile := os.Getenv("NIVEL_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{
		// Set defaults
		APIBaseURL:     "http://localhost:3000",
		PollInterval:   3 * time.Second,
		RequestTimeout: 10 * time.Second,
		TankName:       "principal",
		StatusLang:     "pt",
		ListenAddr:     ":9810",
		CORSOrigins:    []string{"*"},
		KafkaTopic:     "nivel.view",
		MQTTTopic:      "nivel/view",
		MQTTClientID:   "nivel-exporter",
		LogLevel:       "info",
		LogFormat:      "text",
	}

	if v := os.Getenv("NIVEL_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}

	cfg.SampleOrder = strings.ToLower(strings.TrimSpace(os.Getenv("NIVEL_SAMPLE_ORDER")))

	if v := os.Getenv("NIVEL_USE_BUCKETS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.UseBuckets = b
		}
	}

	if v := os.Getenv("NIVEL_POLL_INTERVAL"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			cfg.PollInterval = time.Duration(seconds) * time.Second
		}
	}

	if v := os.Getenv("NIVEL_REQUEST_TIMEOUT"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			cfg.RequestTimeout = time.Duration(seconds) * time.Second
		}
	}

	if v := os.Getenv("NIVEL_TANK_NAME"); v != "" {
		cfg.TankName = v
	}

	if v := os.Getenv("NIVEL_STATUS_LANG"); v != "" {
		cfg.StatusLang = strings.ToLower(v)
	}

	if addr := os.Getenv("NIVEL_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}

	if v := os.Getenv("NIVEL_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	if v := os.Getenv("NIVEL_KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = splitList(v)
	}
	if v := os.Getenv("NIVEL_KAFKA_TOPIC"); v != "" {
		cfg.KafkaTopic = v
	}

	cfg.MQTTBroker = os.Getenv("NIVEL_MQTT_BROKER")
	if v := os.Getenv("NIVEL_MQTT_TOPIC"); v != "" {
		cfg.MQTTTopic = v
	}
	if v := os.Getenv("NIVEL_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTTClientID = v
	}

	// Mounted secrets win over environment variables when both halves are present
	creds, err := loadBrokerCredentials(secretsDir())
	if err != nil {
		return nil, err
	}
	if !creds.Complete() {
		creds = envBrokerCredentials()
	}
	cfg.MQTTUsername = creds.Username
	cfg.MQTTPassword = creds.Password

	if level := os.Getenv("NIVEL_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if format := os.Getenv("NIVEL_LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if _, err := c.Order(); err != nil {
		return err
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API base URL %q", c.APIBaseURL)
	}
	if c.PollInterval < time.Second {
		return errors.New("poll interval must be at least 1 second")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.StatusLang != "pt" && c.StatusLang != "en" {
		return fmt.Errorf("status language must be pt or en, got %q", c.StatusLang)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("kafka topic is required when brokers are set")
	}
	if c.MQTTBroker != "" && c.MQTTTopic == "" {
		return errors.New("mqtt topic is required when a broker is set")
	}
	return nil
}

// Order returns the configured sample order.
func (c *Config) Order() (types.Order, error) {
	switch c.SampleOrder {
	case "newest_first":
		return types.NewestFirst, nil
	case "oldest_first":
		return types.OldestFirst, nil
	case "":
		return 0, errors.New("sample order is required (set NIVEL_SAMPLE_ORDER to newest_first or oldest_first)")
	default:
		return 0, fmt.Errorf("unknown sample order %q (want newest_first or oldest_first)", c.SampleOrder)
	}
}

// splitList splits a comma separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
