package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	instance *Config
	once     sync.Once
	mu       sync.RWMutex
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Session SessionConfig `mapstructure:"session"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	SecureCookies bool          `mapstructure:"secure_cookies"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
}

// Addr returns host:port for the listener
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig locates the JSON documents
type StorageConfig struct {
	DataDir       string `mapstructure:"data_dir"`
	ListFile      string `mapstructure:"list_file"`
	UsersFile     string `mapstructure:"users_file"`
	RateLimitFile string `mapstructure:"rate_limit_file"`
}

// ListPath returns the path of the list document
func (s StorageConfig) ListPath() string { return s.resolve(s.ListFile) }

// UsersPath returns the path of the user document
func (s StorageConfig) UsersPath() string { return s.resolve(s.UsersFile) }

// RateLimitPath returns the path of the failed-login table
func (s StorageConfig) RateLimitPath() string { return s.resolve(s.RateLimitFile) }

func (s StorageConfig) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.DataDir, name)
}

// AuthConfig contains login and password policy
type AuthConfig struct {
	SessionLifetime   time.Duration `mapstructure:"session_lifetime"`
	MaxLoginAttempts  int           `mapstructure:"max_login_attempts"`
	LockoutDuration   time.Duration `mapstructure:"lockout_duration"`
	MinPasswordLength int           `mapstructure:"min_password_length"`
	BcryptCost        int           `mapstructure:"bcrypt_cost"`

	// Super admin seeded at startup when no user with this email exists
	SuperAdminEmail        string `mapstructure:"super_admin_email"`
	SuperAdminName         string `mapstructure:"super_admin_name"`
	SuperAdminPasswordHash string `mapstructure:"super_admin_password_hash"`
}

// SessionConfig contains session store settings
type SessionConfig struct {
	Shards          int           `mapstructure:"shards"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// HTTPConfig contains per-request limits for the API
type HTTPConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRequests    int           `mapstructure:"max_requests"` // 0 disables the limiter
	RateWindow     time.Duration `mapstructure:"rate_window"`
}

// LogConfig contains logger settings
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// MetricsConfig contains Prometheus exposition settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Get returns the singleton configuration instance
func Get() *Config {
	once.Do(func() {
		if instance == nil {
			instance = &Config{}
		}
	})
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// Load initializes and loads configuration from .env, file and environment variables
func Load(configPath string) error {
	mu.Lock()
	defer mu.Unlock()
	return load(configPath)
}

// Reload reloads the configuration (thread-safe)
func Reload(configPath string) error {
	mu.Lock()
	defer mu.Unlock()

	instance = nil
	once = sync.Once{}

	return load(configPath)
}

func load(configPath string) error {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return fmt.Errorf("failed to bind env: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	instance = cfg
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)

	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.list_file", "todos.json")
	v.SetDefault("storage.users_file", "users.json")
	v.SetDefault("storage.rate_limit_file", "rate_limits.json")

	v.SetDefault("auth.session_lifetime", 2*time.Hour)
	v.SetDefault("auth.max_login_attempts", 5)
	v.SetDefault("auth.lockout_duration", 15*time.Minute)
	v.SetDefault("auth.min_password_length", 8)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.super_admin_email", "")
	v.SetDefault("auth.super_admin_name", "Administrator")
	v.SetDefault("auth.super_admin_password_hash", "")

	v.SetDefault("session.shards", 16)
	v.SetDefault("session.cleanup_interval", 5*time.Minute)

	v.SetDefault("http.request_timeout", 30*time.Second)
	v.SetDefault("http.max_requests", 300)
	v.SetDefault("http.rate_window", time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// bindEnvVars binds environment variables to viper keys
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		"server.host", "server.port", "server.secure_cookies", "server.read_timeout", "server.write_timeout",
		"storage.data_dir", "storage.list_file", "storage.users_file", "storage.rate_limit_file",
		"auth.session_lifetime", "auth.max_login_attempts", "auth.lockout_duration",
		"auth.min_password_length", "auth.bcrypt_cost",
		"auth.super_admin_email", "auth.super_admin_name", "auth.super_admin_password_hash",
		"session.shards", "session.cleanup_interval",
		"http.request_timeout", "http.max_requests", "http.rate_window",
		"log.level", "log.development",
		"metrics.enabled", "metrics.path",
	}
	for _, key := range keys {
		env := "APP_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// validate performs validation on the configuration
func validate(cfg *Config) error {
	if cfg.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if cfg.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	if cfg.Storage.ListFile == "" || cfg.Storage.UsersFile == "" || cfg.Storage.RateLimitFile == "" {
		return fmt.Errorf("storage file names must not be empty")
	}

	if cfg.Auth.SessionLifetime <= 0 {
		return fmt.Errorf("auth.session_lifetime must be positive")
	}
	if cfg.Auth.MaxLoginAttempts < 1 {
		return fmt.Errorf("auth.max_login_attempts must be at least 1")
	}
	if cfg.Auth.LockoutDuration < time.Second {
		return fmt.Errorf("auth.lockout_duration must be at least 1s")
	}
	if cfg.Auth.MinPasswordLength < 1 {
		return fmt.Errorf("auth.min_password_length must be at least 1")
	}
	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost must be between 4 and 31")
	}
	if (cfg.Auth.SuperAdminEmail == "") != (cfg.Auth.SuperAdminPasswordHash == "") {
		return fmt.Errorf("auth.super_admin_email and auth.super_admin_password_hash must be set together")
	}

	if cfg.Session.Shards < 1 {
		return fmt.Errorf("session.shards must be at least 1")
	}
	if cfg.Session.CleanupInterval <= 0 {
		return fmt.Errorf("session.cleanup_interval must be positive")
	}

	if cfg.HTTP.RequestTimeout <= 0 {
		return fmt.Errorf("http.request_timeout must be positive")
	}
	if cfg.HTTP.MaxRequests < 0 {
		return fmt.Errorf("http.max_requests must be non-negative")
	}
	if cfg.HTTP.MaxRequests > 0 && cfg.HTTP.RateWindow <= 0 {
		return fmt.Errorf("http.rate_window must be positive when http.max_requests is set")
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}
