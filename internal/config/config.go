package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	DatabasePath string `json:"database_path"`
	APIPort      string `json:"api_port"`
	LogLevel     string `json:"log_level"`
	DataDir      string `json:"data_dir"`
	JWTSecret    string `json:"jwt_secret"`
	CORSOrigins  string `json:"cors_origins"` // comma separated, * allows all

	// AI completion service
	AIProvider string `json:"ai_provider"`
	AIAPIKey   string `json:"ai_api_key"`
	AIModel    string `json:"ai_model"`
	AIBaseURL  string `json:"ai_base_url"`

	// Transactional email service
	MailAPIKey  string `json:"mail_api_key"`
	MailBaseURL string `json:"mail_base_url"`
	MailFrom    string `json:"mail_from"`
}

// Default configuration values
const (
	DefaultDatabasePath = "data/broker_core.db"
	DefaultAPIPort      = "8080"
	DefaultLogLevel     = "INFO"
	DefaultDataDir      = "data"
	DefaultJWTSecret    = "broker-core-default-secret-change-in-production"
	DefaultCORSOrigins  = "*"
	DefaultAIProvider   = "openai"
	DefaultAIModel      = "gpt-4o-mini"
	DefaultMailBaseURL  = "https://api.resend.com"
	DefaultMailFrom     = "Alex from Tandem <onboarding@resend.dev>"
)

// Load loads configuration from environment variables and config file
// Priority: Environment variables > Config file > Default values
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath: DefaultDatabasePath,
		APIPort:      DefaultAPIPort,
		LogLevel:     DefaultLogLevel,
		DataDir:      DefaultDataDir,
		JWTSecret:    DefaultJWTSecret,
		CORSOrigins:  DefaultCORSOrigins,
		AIProvider:   DefaultAIProvider,
		AIModel:      DefaultAIModel,
		MailBaseURL:  DefaultMailBaseURL,
		MailFrom:     DefaultMailFrom,
	}

	// Config file is optional
	if err := cfg.loadFromFile(); err != nil {
		return nil, err
	}

	// Override with environment variables
	cfg.loadFromEnv()

	return cfg, nil
}

// loadFromFile loads configuration from config.json file
func (c *Config) loadFromFile() error {
	// Look for config file in current directory and data directory
	configPaths := []string{
		"config.json",
		filepath.Join(c.DataDir, "config.json"),
	}

	for _, path := range configPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		if err := json.Unmarshal(data, c); err != nil {
			return err
		}
		return nil
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if val := os.Getenv("BROKER_CORE_DATABASE_PATH"); val != "" {
		c.DatabasePath = val
	}
	if val := os.Getenv("BROKER_CORE_API_PORT"); val != "" {
		c.APIPort = val
	}
	if val := os.Getenv("BROKER_CORE_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("BROKER_CORE_DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("BROKER_CORE_JWT_SECRET"); val != "" {
		c.JWTSecret = val
	}
	if val := os.Getenv("BROKER_CORE_CORS_ORIGINS"); val != "" {
		c.CORSOrigins = val
	}
	if val := os.Getenv("BROKER_CORE_AI_PROVIDER"); val != "" {
		c.AIProvider = val
	}
	if val := os.Getenv("BROKER_CORE_AI_API_KEY"); val != "" {
		c.AIAPIKey = val
	}
	if val := os.Getenv("BROKER_CORE_AI_MODEL"); val != "" {
		c.AIModel = val
	}
	if val := os.Getenv("BROKER_CORE_AI_BASE_URL"); val != "" {
		c.AIBaseURL = val
	}
	if val := os.Getenv("BROKER_CORE_MAIL_API_KEY"); val != "" {
		c.MailAPIKey = val
	}
	if val := os.Getenv("BROKER_CORE_MAIL_BASE_URL"); val != "" {
		c.MailBaseURL = val
	}
	if val := os.Getenv("BROKER_CORE_MAIL_FROM"); val != "" {
		c.MailFrom = val
	}
}

// Save saves the current configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
