package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort           = 8080
	DefaultHost           = "127.0.0.1"
	DefaultLogLevel       = "info"
	DefaultMaxFileSize    = 50 * 1024 * 1024 // 50MB
	DefaultSplitWidth     = 50
	DefaultSuggestModel   = "gemini-2.5-pro"
	DefaultSuggestTimeout = 2 * time.Minute
	DefaultSuggestWorkers = 3

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the form-filling MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Template storage
	TemplatesDir string

	// Fill behaviour
	SplitWidth int // column width used to split across unbounded text fields

	// Mapping suggestion (vision model)
	SuggestAPIKey  string
	SuggestModel   string
	SuggestBaseURL string
	SuggestTimeout time.Duration
	SuggestWorkers int

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum template file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:           ModeStdio, // Default to stdio mode for MCP compatibility
		Host:           DefaultHost,
		Port:           DefaultPort,
		TemplatesDir:   filepath.Join(currentDir, "templates"),
		SplitWidth:     DefaultSplitWidth,
		SuggestModel:   DefaultSuggestModel,
		SuggestTimeout: DefaultSuggestTimeout,
		SuggestWorkers: DefaultSuggestWorkers,
		Version:        "1.0.0",
		ServerName:     "borang-mcp",
		LogLevel:       DefaultLogLevel,
		MaxFileSize:    DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.TemplatesDir != "" {
		if expandedPath, err := filepath.Abs(cfg.TemplatesDir); err == nil {
			cfg.TemplatesDir = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("BORANG")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("templates", cfg.TemplatesDir)
	viper.SetDefault("splitwidth", cfg.SplitWidth)
	viper.SetDefault("suggest_api_key", cfg.SuggestAPIKey)
	viper.SetDefault("suggest_model", cfg.SuggestModel)
	viper.SetDefault("suggest_base_url", cfg.SuggestBaseURL)
	viper.SetDefault("suggest_timeout", cfg.SuggestTimeout)
	viper.SetDefault("suggest_workers", cfg.SuggestWorkers)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("templates", cfg.TemplatesDir, "Directory holding registered template files")
	pflag.Int("splitwidth", cfg.SplitWidth, "Column width for splitting long values across unbounded fields")
	pflag.String("suggest-model", cfg.SuggestModel, "Vision model used for mapping suggestions")
	pflag.String("suggest-base-url", cfg.SuggestBaseURL, "Override base URL for the suggestion API")
	pflag.Duration("suggest-timeout", cfg.SuggestTimeout, "Per-page timeout for mapping suggestions")
	pflag.Int("suggest-workers", cfg.SuggestWorkers, "Concurrent pages analyzed during suggestions")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum template file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	_ = viper.BindPFlag("mode", pflag.Lookup("mode"))
	_ = viper.BindPFlag("host", pflag.Lookup("host"))
	_ = viper.BindPFlag("port", pflag.Lookup("port"))
	_ = viper.BindPFlag("templates", pflag.Lookup("templates"))
	_ = viper.BindPFlag("splitwidth", pflag.Lookup("splitwidth"))
	_ = viper.BindPFlag("suggest_model", pflag.Lookup("suggest-model"))
	_ = viper.BindPFlag("suggest_base_url", pflag.Lookup("suggest-base-url"))
	_ = viper.BindPFlag("suggest_timeout", pflag.Lookup("suggest-timeout"))
	_ = viper.BindPFlag("suggest_workers", pflag.Lookup("suggest-workers"))
	_ = viper.BindPFlag("loglevel", pflag.Lookup("loglevel"))
	_ = viper.BindPFlag("maxfilesize", pflag.Lookup("maxfilesize"))
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nBorang MCP - a Model Context Protocol server for filling Malaysian loan application forms\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                      "+
			"# stdio mode, ./templates (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --templates=/srv/borang/templates    "+
			"# stdio mode with custom template directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --port=8081            # HTTP server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  BORANG_MODE             Server mode\n")
		fmt.Fprintf(os.Stderr, "  BORANG_HOST             Server host\n")
		fmt.Fprintf(os.Stderr, "  BORANG_PORT             Server port\n")
		fmt.Fprintf(os.Stderr, "  BORANG_TEMPLATES        Template directory\n")
		fmt.Fprintf(os.Stderr, "  BORANG_SPLITWIDTH       Split width for unbounded fields\n")
		fmt.Fprintf(os.Stderr, "  BORANG_SUGGEST_API_KEY  API key for mapping suggestions\n")
		fmt.Fprintf(os.Stderr, "  BORANG_SUGGEST_MODEL    Vision model name\n")
		fmt.Fprintf(os.Stderr, "  BORANG_SUGGEST_BASE_URL Suggestion API base URL\n")
		fmt.Fprintf(os.Stderr, "  BORANG_SUGGEST_TIMEOUT  Per-page suggestion timeout\n")
		fmt.Fprintf(os.Stderr, "  BORANG_SUGGEST_WORKERS  Concurrent suggestion workers\n")
		fmt.Fprintf(os.Stderr, "  BORANG_LOGLEVEL         Log level\n")
		fmt.Fprintf(os.Stderr, "  BORANG_MAXFILESIZE      Maximum file size\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.TemplatesDir = viper.GetString("templates")
	cfg.SplitWidth = viper.GetInt("splitwidth")
	cfg.SuggestAPIKey = viper.GetString("suggest_api_key")
	cfg.SuggestModel = viper.GetString("suggest_model")
	cfg.SuggestBaseURL = viper.GetString("suggest_base_url")
	cfg.SuggestTimeout = viper.GetDuration("suggest_timeout")
	cfg.SuggestWorkers = viper.GetInt("suggest_workers")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.TemplatesDir == "" {
		return errors.New("templates directory cannot be empty")
	}

	// Check if the templates directory exists, create if it doesn't
	if _, err := os.Stat(c.TemplatesDir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.TemplatesDir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create templates directory %s: %w", c.TemplatesDir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access templates directory %s: %w", c.TemplatesDir, err)
	}

	if c.SplitWidth < 0 {
		return errors.New("split width cannot be negative")
	}

	if c.SuggestTimeout <= 0 {
		return errors.New("suggestion timeout must be positive")
	}

	if c.SuggestWorkers < 1 {
		return errors.New("suggestion workers must be at least 1")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, TemplatesDir: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.TemplatesDir, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
