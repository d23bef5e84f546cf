package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// knownEnv lists every variable these tests touch. Blanking them through
// t.Setenv isolates each subtest from the host environment and restores
// the original values automatically.
var knownEnv = []string{
	"TALLY_CONFIG_PATH",
	"TALLY_SERVER_PORT",
	"TALLY_SERVER_MODE",
	"TALLY_SERVER_CORS_ALLOW_ORIGINS",
	"TALLY_DATABASE_HOST",
	"TALLY_DATABASE_PORT",
	"TALLY_DATABASE_USER",
	"TALLY_DATABASE_PASSWORD",
	"TALLY_DATABASE_DBNAME",
	"TALLY_DATABASE_SSLMODE",
	"TALLY_DATABASE_MAX_OPEN_CONNS",
	"TALLY_DATABASE_MAX_IDLE_CONNS",
	"TALLY_REDIS_ADDR",
	"TALLY_AUTH_JWT_SECRET",
	"TALLY_ANALYTICS_CACHE_TTL",
	"TALLY_EXPORT_BASE_URL",
	"TALLY_SWAGGER_ENABLED",
	"TALLY_SWAGGER_REQUIRE_AUTH",
	"TALLY_SWAGGER_ALLOWED_IPS",
	"TALLY_TELEMETRY_DB_LOG_FULL_SQL",
}

// setEnv blanks every known variable, then applies vars. Viper treats an
// empty env value as unset, so blanking is as good as deleting.
func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for _, k := range knownEnv {
		t.Setenv(k, "")
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

// productionEnv is a minimal config that passes production validation.
func productionEnv(extra map[string]string) map[string]string {
	vars := map[string]string{
		"TALLY_SERVER_MODE":       "production",
		"TALLY_AUTH_JWT_SECRET":   "this-is-a-very-secure-jwt-secret-key-32chars",
		"TALLY_DATABASE_PASSWORD": "secure-password",
		"TALLY_DATABASE_SSLMODE":  "require",
		"TALLY_SWAGGER_ENABLED":   "false",
	}
	for k, v := range extra {
		vars[k] = v
	}
	return vars
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, nil)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Mode)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Empty(t, cfg.Database.Password)
	assert.Equal(t, "tallybook", cfg.Database.DBName)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "tally-backend", cfg.Auth.Issuer)
	assert.Equal(t, 720*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.Analytics.CacheTTL)
	assert.Equal(t, "http://localhost:8090", cfg.Export.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Export.Timeout)
	assert.Equal(t, "tally-backend", cfg.Telemetry.ServiceName)
	assert.Equal(t, 200*time.Millisecond, cfg.Telemetry.DBSlowQueryThresh)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	setEnv(t, map[string]string{
		"TALLY_SERVER_PORT":             "9000",
		"TALLY_SERVER_MODE":             "test",
		"TALLY_DATABASE_HOST":           "testdb.local",
		"TALLY_DATABASE_PORT":           "5433",
		"TALLY_DATABASE_USER":           "testuser",
		"TALLY_DATABASE_PASSWORD":       "testpass",
		"TALLY_DATABASE_DBNAME":         "testdb",
		"TALLY_DATABASE_SSLMODE":        "require",
		"TALLY_DATABASE_MAX_OPEN_CONNS": "50",
		"TALLY_DATABASE_MAX_IDLE_CONNS": "10",
		"TALLY_REDIS_ADDR":              "redis.local:6380",
		"TALLY_ANALYTICS_CACHE_TTL":     "90s",
		"TALLY_EXPORT_BASE_URL":         "https://render.example.com",
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "test", cfg.Server.Mode)
	assert.Equal(t, DatabaseConfig{
		Host:            "testdb.local",
		Port:            5433,
		User:            "testuser",
		Password:        "testpass",
		DBName:          "testdb",
		SSLMode:         "require",
		MaxOpenConns:    50,
		MaxIdleConns:    10,
		ConnMaxLifetime: 60,
		ConnMaxIdleTime: 30,
	}, cfg.Database)
	assert.Equal(t, "redis.local:6380", cfg.Redis.Addr)
	assert.Equal(t, 90*time.Second, cfg.Analytics.CacheTTL)
	assert.Equal(t, "https://render.example.com", cfg.Export.BaseURL)
}

func TestLoad_ConfigFile(t *testing.T) {
	t.Run("reads the file named by TALLY_CONFIG_PATH", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `
[server]
port = "7070"

[database]
dbname = "ledgerbook"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		setEnv(t, map[string]string{"TALLY_CONFIG_PATH": path})

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "7070", cfg.Server.Port)
		assert.Equal(t, "ledgerbook", cfg.Database.DBName)
	})

	t.Run("env var beats the config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("[server]\nport = \"7070\"\n"), 0o600))
		setEnv(t, map[string]string{
			"TALLY_CONFIG_PATH": path,
			"TALLY_SERVER_PORT": "7071",
		})

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "7071", cfg.Server.Port)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		setEnv(t, map[string]string{
			"TALLY_CONFIG_PATH": filepath.Join(t.TempDir(), "nope.toml"),
		})

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})
}

func TestLoad_PoolValidation(t *testing.T) {
	t.Run("idle conns cannot exceed open conns", func(t *testing.T) {
		setEnv(t, map[string]string{
			"TALLY_DATABASE_MAX_OPEN_CONNS": "10",
			"TALLY_DATABASE_MAX_IDLE_CONNS": "20",
		})

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("explicit zero open conns falls back to the default", func(t *testing.T) {
		setEnv(t, map[string]string{"TALLY_DATABASE_MAX_OPEN_CONNS": "0"})

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("negative idle conns rejected", func(t *testing.T) {
		setEnv(t, map[string]string{"TALLY_DATABASE_MAX_IDLE_CONNS": "-1"})

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})
}

func TestLoad_AnalyticsValidation(t *testing.T) {
	setEnv(t, map[string]string{"TALLY_ANALYTICS_CACHE_TTL": "-1m"})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analytics.cache_ttl cannot be negative")
}

func TestLoad_ProductionValidation(t *testing.T) {
	failures := map[string]struct {
		env     map[string]string
		wantErr string
	}{
		"missing jwt secret": {
			env:     productionEnv(map[string]string{"TALLY_AUTH_JWT_SECRET": ""}),
			wantErr: "auth.jwt_secret is required in production",
		},
		"short jwt secret": {
			env:     productionEnv(map[string]string{"TALLY_AUTH_JWT_SECRET": "short-secret"}),
			wantErr: "auth.jwt_secret must be at least 32 characters",
		},
		"missing database password": {
			env:     productionEnv(map[string]string{"TALLY_DATABASE_PASSWORD": ""}),
			wantErr: "database.password is required in production",
		},
		"ssl disabled": {
			env:     productionEnv(map[string]string{"TALLY_DATABASE_SSLMODE": "disable"}),
			wantErr: "database.sslmode cannot be 'disable' in production",
		},
		"wildcard CORS origin": {
			env:     productionEnv(map[string]string{"TALLY_SERVER_CORS_ALLOW_ORIGINS": "*"}),
			wantErr: "cors_allow_origins cannot be '*' in production",
		},
		"full SQL logging": {
			env:     productionEnv(map[string]string{"TALLY_TELEMETRY_DB_LOG_FULL_SQL": "true"}),
			wantErr: "telemetry.db_log_full_sql must be false in production",
		},
		"unprotected swagger": {
			env: productionEnv(map[string]string{
				"TALLY_SWAGGER_ENABLED":      "true",
				"TALLY_SWAGGER_REQUIRE_AUTH": "false",
			}),
			wantErr: "swagger endpoint must be disabled, require authentication, or have IP restriction",
		},
	}

	for name, tc := range failures {
		t.Run(name, func(t *testing.T) {
			setEnv(t, tc.env)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	t.Run("valid production config passes", func(t *testing.T) {
		setEnv(t, productionEnv(nil))

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
		assert.False(t, cfg.Swagger.Enabled)
	})

	t.Run("swagger allowed when authenticated", func(t *testing.T) {
		setEnv(t, productionEnv(map[string]string{
			"TALLY_SWAGGER_ENABLED":      "true",
			"TALLY_SWAGGER_REQUIRE_AUTH": "true",
		}))

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Swagger.Enabled)
		assert.True(t, cfg.Swagger.RequireAuth)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	base := DatabaseConfig{
		Host:    "localhost",
		Port:    5432,
		User:    "testuser",
		DBName:  "testdb",
		SSLMode: "disable",
	}

	t.Run("contains every connection component", func(t *testing.T) {
		cfg := base
		cfg.Password = "testpass"

		dsn := cfg.DSN()
		for _, part := range []string{"localhost", "5432", "testuser", "testdb", "sslmode=disable"} {
			assert.Contains(t, dsn, part)
		}
	})

	t.Run("escapes special characters in the password", func(t *testing.T) {
		cfg := base
		cfg.Password = "pass@word#123"

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})

	t.Run("empty password still produces a DSN", func(t *testing.T) {
		assert.NotEmpty(t, base.DSN())
	})
}
