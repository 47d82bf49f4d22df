package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const appName = "shopsync"

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Realtime    RealtimeConfig    `mapstructure:"realtime"`
	Integration IntegrationConfig `mapstructure:"integration"`
	Client      ClientConfig      `mapstructure:"client"`
	History     HistoryConfig     `mapstructure:"history"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig holds the Frappe site and API credentials
type ServerConfig struct {
	URL       string `mapstructure:"url"`        // Site URL, e.g. https://erp.example.com
	APIKey    string `mapstructure:"api_key"`    // User API key
	APISecret string `mapstructure:"api_secret"` // User API secret
}

// RealtimeConfig holds socket.io settings. Empty URL means "same host as server".
type RealtimeConfig struct {
	URL       string `mapstructure:"url"`
	Namespace string `mapstructure:"namespace"` // site name on multi-tenant benches
}

// IntegrationConfig names the server methods, job and event of the integration being browsed
type IntegrationConfig struct {
	Name         string `mapstructure:"name"`
	Title        string `mapstructure:"title"`
	MethodPrefix string `mapstructure:"method_prefix"`
	JobName      string `mapstructure:"job_name"`
	Event        string `mapstructure:"event"`
	RemoteLabel  string `mapstructure:"remote_label"`
	LocalLabel   string `mapstructure:"local_label"`
}

// ClientConfig holds HTTP client tuning
type ClientConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"` // 0 disables limiting
	Burst             int           `mapstructure:"burst"`
}

// HistoryConfig controls the local archive of bulk sync runs
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Limit   int  `mapstructure:"limit"` // runs shown in the history modal
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration, pointed at the Shopify importer page
func DefaultConfig() *Config {
	return &Config{
		Integration: IntegrationConfig{
			Name:         "shopify",
			Title:        "Import Shopify Products",
			MethodPrefix: "ecommerce_integrations.shopify.page.shopify_import_products.shopify_import_products",
			JobName:      "shopify.job.sync.all.products",
			Event:        "shopify.key.sync.all.products",
			RemoteLabel:  "Shopify",
			LocalLabel:   "ERPNext",
		},
		Client: ClientConfig{
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
			Burst:             2,
		},
		History: HistoryConfig{
			Enabled: true,
			Limit:   20,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName, appName+".log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", appName, appName+".log")
	}
}

// DefaultConfigDir returns the default config directory for the current OS
func DefaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appName)
	}
}

// DefaultDataPath returns the directory holding the run archive
func DefaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), appName, "data")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", appName, "data")
	}
}

// Loader reads and writes the config file through its own viper instance.
type Loader struct {
	v    *viper.Viper
	file string // explicit file, empty means search the default locations
}

// NewLoader creates a loader. An empty path searches DefaultConfigDir and ".".
func NewLoader(path string) *Loader {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigDir())
		v.AddConfigPath(".")
	}

	// Environment variable overrides, e.g. SHOPSYNC_SERVER_API_KEY
	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, file: path}
}

// Load reads configuration from file and environment on top of the defaults
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()
	setDefaults(l.v, cfg)

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.Server.URL = strings.TrimRight(cfg.Server.URL, "/")
	return cfg, nil
}

// Save writes cfg to the loader's file, or to DefaultConfigDir/config.yaml
func (l *Loader) Save(cfg *Config) error {
	configFile := l.file
	if configFile == "" {
		configFile = filepath.Join(DefaultConfigDir(), "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to keep snake_case key names
	l.v.Set("server.url", cfg.Server.URL)
	l.v.Set("server.api_key", cfg.Server.APIKey)
	l.v.Set("server.api_secret", cfg.Server.APISecret)

	l.v.Set("realtime.url", cfg.Realtime.URL)
	l.v.Set("realtime.namespace", cfg.Realtime.Namespace)

	l.v.Set("integration.name", cfg.Integration.Name)
	l.v.Set("integration.title", cfg.Integration.Title)
	l.v.Set("integration.method_prefix", cfg.Integration.MethodPrefix)
	l.v.Set("integration.job_name", cfg.Integration.JobName)
	l.v.Set("integration.event", cfg.Integration.Event)
	l.v.Set("integration.remote_label", cfg.Integration.RemoteLabel)
	l.v.Set("integration.local_label", cfg.Integration.LocalLabel)

	l.v.Set("client.timeout", cfg.Client.Timeout.String())
	l.v.Set("client.requests_per_second", cfg.Client.RequestsPerSecond)
	l.v.Set("client.burst", cfg.Client.Burst)

	l.v.Set("history.enabled", cfg.History.Enabled)
	l.v.Set("history.limit", cfg.History.Limit)

	l.v.Set("logging.file", cfg.Logging.File)
	l.v.Set("logging.level", cfg.Logging.Level)

	if err := l.v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true if the site URL and API credentials are set
func (c *Config) IsConfigured() bool {
	return c.Server.URL != "" && c.Server.APIKey != "" && c.Server.APISecret != ""
}

// RealtimeURL returns the socket.io base URL, defaulting to the site URL
func (c *Config) RealtimeURL() string {
	if c.Realtime.URL != "" {
		return strings.TrimRight(c.Realtime.URL, "/")
	}
	return c.Server.URL
}

// setDefaults registers defaults so AutomaticEnv can override keys absent from the file
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.url", cfg.Server.URL)
	v.SetDefault("server.api_key", cfg.Server.APIKey)
	v.SetDefault("server.api_secret", cfg.Server.APISecret)
	v.SetDefault("realtime.url", cfg.Realtime.URL)
	v.SetDefault("realtime.namespace", cfg.Realtime.Namespace)
	v.SetDefault("integration.name", cfg.Integration.Name)
	v.SetDefault("integration.title", cfg.Integration.Title)
	v.SetDefault("integration.method_prefix", cfg.Integration.MethodPrefix)
	v.SetDefault("integration.job_name", cfg.Integration.JobName)
	v.SetDefault("integration.event", cfg.Integration.Event)
	v.SetDefault("integration.remote_label", cfg.Integration.RemoteLabel)
	v.SetDefault("integration.local_label", cfg.Integration.LocalLabel)
	v.SetDefault("client.timeout", cfg.Client.Timeout)
	v.SetDefault("client.requests_per_second", cfg.Client.RequestsPerSecond)
	v.SetDefault("client.burst", cfg.Client.Burst)
	v.SetDefault("history.enabled", cfg.History.Enabled)
	v.SetDefault("history.limit", cfg.History.Limit)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}
