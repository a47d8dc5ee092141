package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// RunMode selects which pipeline stages a run executes
type RunMode string

const (
	ModeMonitor RunMode = "monitor"
	ModeReport  RunMode = "report"
)

// Config holds application configuration
type Config struct {
	FeedURL         string
	AllowedPorts    []string
	RunMode         RunMode
	StatePath       string
	DatabasePath    string
	MonitorSchedule string
	ReportSchedule  string

	// Ghost retention window before an absent vessel is force-closed
	GhostRetentionHours float64

	// Email delivery
	EmailEnabled bool
	EmailUser    string
	EmailPass    string
	EmailTo      string
	SMTPHost     string
	SMTPPort     int

	LogLevel string
	Port     int
	DevMode  bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		FeedURL:             getEnv("ANP_FEED_URL", "https://www.anp.org.ma/_vti_bin/WS/Service.svc/mvmnv/all"),
		AllowedPorts:        splitCSV(getEnv("ALLOWED_PORTS", "07,03,06")), // Jorf Lasfar, Safi, Nador
		RunMode:             RunMode(getEnv("RUN_MODE", "monitor")),
		StatePath:           getEnv("STATE_PATH", "./data/state.json"),
		DatabasePath:        getEnv("DATABASE_PATH", "./data/portcalls.db"),
		MonitorSchedule:     getEnv("MONITOR_SCHEDULE", "0 */15 * * * *"),
		ReportSchedule:      getEnv("REPORT_SCHEDULE", "0 0 8 1 * *"),
		GhostRetentionHours: getEnvAsFloat("GHOST_RETENTION_HOURS", 72),
		EmailEnabled:        getEnvAsBool("EMAIL_ENABLED", true),
		EmailUser:           getEnv("EMAIL_USER", ""),
		EmailPass:           getEnv("EMAIL_PASS", ""),
		EmailTo:             getEnv("EMAIL_TO", ""),
		SMTPHost:            getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:            getEnvAsInt("SMTP_PORT", 587),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		Port:                getEnvAsInt("GO_PORT", 8090),
		DevMode:             getEnvAsBool("DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.FeedURL == "" {
		return fmt.Errorf("ANP_FEED_URL is required")
	}
	if len(c.AllowedPorts) == 0 {
		return fmt.Errorf("ALLOWED_PORTS must name at least one port code")
	}
	if c.RunMode != ModeMonitor && c.RunMode != ModeReport {
		return fmt.Errorf("RUN_MODE must be %q or %q, got %q", ModeMonitor, ModeReport, c.RunMode)
	}
	if c.StatePath == "" {
		return fmt.Errorf("STATE_PATH is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.GhostRetentionHours <= 0 {
		return fmt.Errorf("GHOST_RETENTION_HOURS must be positive")
	}
	// Email credentials are optional; delivery degrades to a no-op
	return nil
}

// AllowsPort reports whether a port code is in the configured target set
func (c *Config) AllowsPort(code string) bool {
	for _, p := range c.AllowedPorts {
		if p == code {
			return true
		}
	}
	return false
}

// Helper functions

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
