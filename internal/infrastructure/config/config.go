package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Log       LogConfig
	Export    ExportConfig
	Analytics AnalyticsConfig
	Swagger   SwaggerConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string
	Mode           string // development, production, test
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64

	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// Stricter limits for unauthenticated routes (registration,
	// storefront, document view confirmation)
	PublicRateLimitEnabled  bool
	PublicRateLimitRequests int
	PublicRateLimitWindow   time.Duration

	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig holds API token settings. Tokens are issued once at business
// registration; there is no refresh flow.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

// ExportConfig holds the external document renderer settings
type ExportConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AnalyticsConfig holds analytics caching settings
type AnalyticsConfig struct {
	CacheTTL time.Duration
}

// SwaggerConfig holds API documentation endpoint settings
type SwaggerConfig struct {
	Enabled     bool     // Enable swagger endpoint
	RequireAuth bool     // Require authentication for swagger access
	AllowedIPs  []string // IP whitelist for swagger access (CIDR notation supported)
}

// TelemetryConfig holds OpenTelemetry and profiling settings
type TelemetryConfig struct {
	Enabled           bool    // Enable OpenTelemetry tracing, metrics, and logs
	CollectorEndpoint string  // OTLP gRPC collector endpoint (host:port)
	SamplingRatio     float64 // Trace sampling ratio (0.0 to 1.0)
	ServiceName       string  // Service name for telemetry resources
	Insecure          bool    // Use insecure connection to collector (dev only)

	ProfilingEnabled       bool   // Enable continuous profiling
	ProfilingServerAddress string // Pyroscope server address

	DBTraceEnabled    bool          // Enable database query tracing
	DBLogFullSQL      bool          // Log full SQL with values (dev only, security risk)
	DBSlowQueryThresh time.Duration // Slow query threshold
}

// Load reads configuration from the config file and TALLY_-prefixed
// environment variables, fills in defaults for anything unset, and
// validates the result.
func Load() (*Config, error) {
	v := viper.New()
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	v.SetEnvPrefix("TALLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Server:    serverConfig(v),
		Database:  databaseConfig(v),
		Redis:     redisConfig(v),
		Auth:      authConfig(v),
		Log:       logConfig(v),
		Export:    exportConfig(v),
		Analytics: analyticsConfig(v),
		Swagger:   swaggerConfig(v),
		Telemetry: telemetryConfig(v),
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readConfigFile loads config.toml. TALLY_CONFIG_PATH names an exact file
// and must exist; otherwise the search path is consulted and a missing
// file just means env vars and defaults.
func readConfigFile(v *viper.Viper) error {
	if path := os.Getenv("TALLY_CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func serverConfig(v *viper.Viper) ServerConfig {
	return ServerConfig{
		Port:                    v.GetString("server.port"),
		Mode:                    v.GetString("server.mode"),
		ReadTimeout:             v.GetDuration("server.read_timeout"),
		WriteTimeout:            v.GetDuration("server.write_timeout"),
		IdleTimeout:             v.GetDuration("server.idle_timeout"),
		MaxHeaderBytes:          v.GetInt("server.max_header_bytes"),
		MaxBodySize:             v.GetInt64("server.max_body_size"),
		RateLimitEnabled:        v.GetBool("server.rate_limit_enabled"),
		RateLimitRequests:       v.GetInt("server.rate_limit_requests"),
		RateLimitWindow:         v.GetDuration("server.rate_limit_window"),
		PublicRateLimitEnabled:  v.GetBool("server.public_rate_limit_enabled"),
		PublicRateLimitRequests: v.GetInt("server.public_rate_limit_requests"),
		PublicRateLimitWindow:   v.GetDuration("server.public_rate_limit_window"),
		CORSAllowOrigins:        v.GetStringSlice("server.cors_allow_origins"),
		CORSAllowMethods:        v.GetStringSlice("server.cors_allow_methods"),
		CORSAllowHeaders:        v.GetStringSlice("server.cors_allow_headers"),
		TrustedProxies:          v.GetStringSlice("server.trusted_proxies"),
	}
}

func databaseConfig(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		Host:            v.GetString("database.host"),
		Port:            v.GetInt("database.port"),
		User:            v.GetString("database.user"),
		Password:        v.GetString("database.password"),
		DBName:          v.GetString("database.dbname"),
		SSLMode:         v.GetString("database.sslmode"),
		MaxOpenConns:    v.GetInt("database.max_open_conns"),
		MaxIdleConns:    v.GetInt("database.max_idle_conns"),
		ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
		ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
	}
}

func redisConfig(v *viper.Viper) RedisConfig {
	return RedisConfig{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	}
}

func authConfig(v *viper.Viper) AuthConfig {
	return AuthConfig{
		JWTSecret: v.GetString("auth.jwt_secret"),
		Issuer:    v.GetString("auth.issuer"),
		TokenTTL:  v.GetDuration("auth.token_ttl"),
	}
}

func logConfig(v *viper.Viper) LogConfig {
	return LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
		Output: v.GetString("log.output"),
	}
}

func exportConfig(v *viper.Viper) ExportConfig {
	return ExportConfig{
		BaseURL: v.GetString("export.base_url"),
		Timeout: v.GetDuration("export.timeout"),
	}
}

func analyticsConfig(v *viper.Viper) AnalyticsConfig {
	return AnalyticsConfig{
		CacheTTL: v.GetDuration("analytics.cache_ttl"),
	}
}

func swaggerConfig(v *viper.Viper) SwaggerConfig {
	return SwaggerConfig{
		Enabled:     v.GetBool("swagger.enabled"),
		RequireAuth: v.GetBool("swagger.require_auth"),
		AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
	}
}

func telemetryConfig(v *viper.Viper) TelemetryConfig {
	return TelemetryConfig{
		Enabled:                v.GetBool("telemetry.enabled"),
		CollectorEndpoint:      v.GetString("telemetry.collector_endpoint"),
		SamplingRatio:          v.GetFloat64("telemetry.sampling_ratio"),
		ServiceName:            v.GetString("telemetry.service_name"),
		Insecure:               v.GetBool("telemetry.insecure"),
		ProfilingEnabled:       v.GetBool("telemetry.profiling_enabled"),
		ProfilingServerAddress: v.GetString("telemetry.profiling_server_address"),
		DBTraceEnabled:         v.GetBool("telemetry.db_trace_enabled"),
		DBLogFullSQL:           v.GetBool("telemetry.db_log_full_sql"),
		DBSlowQueryThresh:      v.GetDuration("telemetry.db_slow_query_thresh"),
	}
}

// fallback replaces a zero value with def. A zero from config is treated
// as "not set", which keeps "0" env overrides from disabling pools or
// timeouts by accident.
func fallback[T comparable](field *T, def T) {
	var zero T
	if *field == zero {
		*field = def
	}
}

func fallbackSlice[T any](field *[]T, def []T) {
	if len(*field) == 0 {
		*field = def
	}
}

func (c *Config) applyDefaults() {
	fallback(&c.Server.Port, "8080")
	fallback(&c.Server.Mode, "development")
	fallback(&c.Server.ReadTimeout, 15*time.Second)
	fallback(&c.Server.WriteTimeout, 15*time.Second)
	fallback(&c.Server.IdleTimeout, 60*time.Second)
	fallback(&c.Server.MaxHeaderBytes, 1<<20)
	fallback(&c.Server.MaxBodySize, 1<<20) // bulk bank imports stay well under 1MB
	fallback(&c.Server.RateLimitRequests, 100)
	fallback(&c.Server.RateLimitWindow, time.Minute)
	fallback(&c.Server.PublicRateLimitRequests, 20)
	fallback(&c.Server.PublicRateLimitWindow, time.Minute)
	// CORS origins get no "*" fallback; deployments must list their
	// origins explicitly.
	fallbackSlice(&c.Server.CORSAllowMethods, []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"})
	fallbackSlice(&c.Server.CORSAllowHeaders, []string{"Content-Type", "Authorization", "X-Request-ID"})

	fallback(&c.Database.Host, "localhost")
	fallback(&c.Database.Port, 5432)
	fallback(&c.Database.User, "postgres")
	fallback(&c.Database.DBName, "tallybook")
	fallback(&c.Database.SSLMode, "disable")
	fallback(&c.Database.MaxOpenConns, 25)
	fallback(&c.Database.MaxIdleConns, 5)
	fallback(&c.Database.ConnMaxLifetime, 60) // minutes
	fallback(&c.Database.ConnMaxIdleTime, 30) // minutes

	fallback(&c.Redis.Addr, "localhost:6379")

	fallback(&c.Auth.Issuer, "tally-backend")
	fallback(&c.Auth.TokenTTL, 720*time.Hour) // 30 days

	fallback(&c.Log.Level, "info")
	fallback(&c.Log.Format, "console")
	fallback(&c.Log.Output, "stdout")

	fallback(&c.Export.BaseURL, "http://localhost:8090")
	fallback(&c.Export.Timeout, 15*time.Second)

	fallback(&c.Analytics.CacheTTL, 5*time.Minute)

	fallback(&c.Telemetry.CollectorEndpoint, "localhost:4317")
	fallback(&c.Telemetry.SamplingRatio, 1.0) // sample everything in development
	fallback(&c.Telemetry.ServiceName, "tally-backend")
	fallback(&c.Telemetry.ProfilingServerAddress, "http://localhost:4040")
	fallback(&c.Telemetry.DBSlowQueryThresh, 200*time.Millisecond)
	// Insecure and DBLogFullSQL stay false unless explicitly enabled.
}

func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Analytics.CacheTTL < 0 {
		return fmt.Errorf("analytics.cache_ttl cannot be negative")
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}
	if c.IsProduction() {
		return c.validateProduction()
	}
	return nil
}

// validateProduction rejects settings that are acceptable on a laptop but
// dangerous on the open internet.
func (c *Config) validateProduction() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required in production")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters in production")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("database.password is required in production")
	}
	if c.Database.SSLMode == "disable" {
		return fmt.Errorf("database.sslmode cannot be 'disable' in production")
	}
	for _, origin := range c.Server.CORSAllowOrigins {
		if origin == "*" {
			return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
		}
	}
	if c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
		return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
	}
	// Full SQL logging would expose transaction amounts and contact
	// details in traces.
	if c.Telemetry.DBLogFullSQL {
		return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
	}
	return nil
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Mode == "production"
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
