// Package config provides application configuration management.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Settings is the immutable configuration record of one export run. Room id
// lists are stored as comma-separated strings, the same format the settings
// form accepts, and parsed on demand.
type Settings struct {
	HostURL             string `json:"host_url" yaml:"host_url"`
	IntervalMs          int    `json:"interval_ms" yaml:"interval_ms"`
	TargetRoomIDs       string `json:"target_room_ids" yaml:"target_room_ids"`
	ExceptRoomIDs       string `json:"except_room_ids" yaml:"except_room_ids"`
	AppendDate          bool   `json:"append_date" yaml:"append_date"`
	AppendUsername      bool   `json:"append_username" yaml:"append_username"`
	DeleteReactions     bool   `json:"delete_reactions" yaml:"delete_reactions"`
	DownloadAttachments bool   `json:"download_attachments" yaml:"download_attachments"`
	ExportJSON          bool   `json:"export_json" yaml:"export_json"`
	ExportXLSX          bool   `json:"export_xlsx" yaml:"export_xlsx"`
	OutputDir           string `json:"output_dir" yaml:"output_dir"`
}

// Server holds the HTTP server configuration.
type Server struct {
	Host                   string `json:"host" yaml:"host"`
	Port                   int    `json:"port" yaml:"port"`
	ShutdownTimeoutSeconds int    `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
}

// Logging holds the logging configuration.
type Logging struct {
	Level string `json:"level" yaml:"level"` // debug, info, warn, error
}

// Config is the application configuration.
type Config struct {
	Export  Settings `json:"export" yaml:"export"`
	Server  Server   `json:"server" yaml:"server"`
	Logging Logging  `json:"logging" yaml:"logging"`
}

// DefaultSettings returns the documented export defaults: all rooms,
// date and username enrichment on, reactions kept, attachments on,
// JSON export off.
func DefaultSettings() Settings {
	return Settings{
		HostURL:             DefaultHostURL,
		IntervalMs:          DefaultIntervalMs,
		TargetRoomIDs:       DefaultTargetRoomIDs,
		ExceptRoomIDs:       DefaultExceptRoomIDs,
		AppendDate:          DefaultAppendDate,
		AppendUsername:      DefaultAppendUsername,
		DeleteReactions:     DefaultDeleteReactions,
		DownloadAttachments: DefaultDownloadAttachments,
		ExportJSON:          DefaultExportJSON,
		ExportXLSX:          DefaultExportXLSX,
		OutputDir:           DefaultOutputDir,
	}
}

// DefaultConfig returns a Config populated with every default.
func DefaultConfig() *Config {
	return &Config{
		Export: DefaultSettings(),
		Server: Server{
			Host:                   DefaultServerHost,
			Port:                   DefaultServerPort,
			ShutdownTimeoutSeconds: int(DefaultShutdownTimeout / time.Second),
		},
		Logging: Logging{Level: DefaultLogLevel},
	}
}

// Interval returns the inter-request delay of the rate limiter.
func (s *Settings) Interval() time.Duration {
	return time.Duration(s.IntervalMs) * time.Millisecond
}

// TargetRooms returns the parsed target room id set. Empty means "all
// rooms" unless excluded.
func (s *Settings) TargetRooms() map[int64]struct{} {
	return ParseRoomIDs(s.TargetRoomIDs)
}

// ExceptRooms returns the parsed excluded room id set.
func (s *Settings) ExceptRooms() map[int64]struct{} {
	return ParseRoomIDs(s.ExceptRoomIDs)
}

// ParseRoomIDs parses a comma-separated room id list. Entries are trimmed
// and non-numeric ones dropped, so "3, 5,x,9" yields {3,5,9}.
func ParseRoomIDs(list string) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids[id] = struct{}{}
	}
	return ids
}

// Load loads the application configuration from environment variables,
// a .env file, or config.yml.
func Load() (*Config, error) {
	// Load env vars from a .env file if present; its absence is fine, we
	// fall back to the environment or config.yml.
	_ = godotenv.Load()

	cfg, err := loadFromYAML("config.yml")
	if err != nil {
		// Only a missing file falls back to the environment; a present
		// but broken config.yml is a user error to surface.
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = loadFromEnv()
	}

	return cfg, nil
}

// LoadFile loads the configuration from a specific YAML file.
func LoadFile(filename string) (*Config, error) {
	_ = godotenv.Load()
	return loadFromYAML(filename)
}

// loadFromYAML loads the configuration from a YAML file. Absent keys keep
// their default values.
func loadFromYAML(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return cfg, nil
}

// loadFromEnv loads the configuration from environment variables.
func loadFromEnv() *Config {
	cfg := DefaultConfig()

	cfg.Export.HostURL = getEnv("CHATWORK_HOST", cfg.Export.HostURL)
	cfg.Export.TargetRoomIDs = getEnv("CHATWORK_TARGET_ROOM_IDS", cfg.Export.TargetRoomIDs)
	cfg.Export.ExceptRoomIDs = getEnv("CHATWORK_EXCEPT_ROOM_IDS", cfg.Export.ExceptRoomIDs)
	cfg.Export.OutputDir = getEnv("CHATWORK_OUTPUT_DIR", cfg.Export.OutputDir)
	cfg.Export.IntervalMs = getEnvInt("CHATWORK_INTERVAL_MS", cfg.Export.IntervalMs)
	cfg.Export.AppendDate = getEnvBool("CHATWORK_APPEND_DATE", cfg.Export.AppendDate)
	cfg.Export.AppendUsername = getEnvBool("CHATWORK_APPEND_USERNAME", cfg.Export.AppendUsername)
	cfg.Export.DeleteReactions = getEnvBool("CHATWORK_DELETE_REACTIONS", cfg.Export.DeleteReactions)
	cfg.Export.DownloadAttachments = getEnvBool("CHATWORK_DOWNLOAD_ATTACHMENTS", cfg.Export.DownloadAttachments)
	cfg.Export.ExportJSON = getEnvBool("CHATWORK_EXPORT_JSON", cfg.Export.ExportJSON)
	cfg.Export.ExportXLSX = getEnvBool("CHATWORK_EXPORT_XLSX", cfg.Export.ExportXLSX)

	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)

	return cfg
}

// Save persists the configuration to a YAML file.
func Save(filename string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}
	return nil
}

// Address returns the server address in "host:port" form.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ShutdownTimeout returns the graceful shutdown timeout of the server.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// Validate checks whether the configuration values are admissible.
func (c *Config) Validate() error {
	if c.Export.HostURL == "" {
		return fmt.Errorf("export.host_url must not be empty")
	}
	if strings.Contains(c.Export.HostURL, "/") {
		return fmt.Errorf("export.host_url must be a bare host name, got %q", c.Export.HostURL)
	}

	if c.Export.IntervalMs < 0 {
		return fmt.Errorf("export.interval_ms must be non-negative")
	}

	if c.Export.OutputDir == "" {
		return fmt.Errorf("export.output_dir must not be empty")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid port number (1-65535)")
	}

	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("server.shutdown_timeout_seconds must be positive")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// all good
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	return nil
}

// getEnv retrieves an environment variable or returns the default value
// when it is unset.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
