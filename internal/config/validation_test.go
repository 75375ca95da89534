package config

import (
	"strings"
	"testing"
	"time"
)

func validTestConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			Database: "testdb",
			Username: "testuser",
			Password: "testpass",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		OpenAI: OpenAIConfig{
			APIKey:  "sk-test",
			Model:   "gpt-4o-mini",
			Timeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret:     "test-secret-key",
			JWTExpiry:     24 * time.Hour,
			SessionExpiry: 7 * 24 * time.Hour,
			RateLimit:     100,
		},
		Server: ServerConfig{
			Port:    "8080",
			GinMode: "debug",
		},
		Query: QueryConfig{
			MaxRows:           1000,
			MaxQuestionLength: 500,
			Timeout:           30 * time.Second,
			CacheTTL:          5 * time.Minute,
			ExemplarLimit:     3,
		},
		Chart: ChartConfig{
			PieMaxCategories:     8,
			SeriesMaxCardinality: 8,
		},
	}
}

func TestConfigValidation(t *testing.T) {
	t.Run("valid config passes validation", func(t *testing.T) {
		cfg := validTestConfig()

		err := cfg.Validate()
		if err != nil {
			t.Errorf("expected no validation errors, got: %v", err)
		}
	})

	t.Run("missing database host fails validation", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Database.Host = ""

		err := cfg.Validate()
		if err == nil {
			t.Error("expected validation error for missing database host")
		}
		if !strings.Contains(err.Error(), "Database.Host") {
			t.Errorf("expected error about Database.Host, got: %v", err)
		}
	})

	t.Run("missing OpenAI API key is allowed", func(t *testing.T) {
		// The resolver falls back to the curated catalog without a translator
		cfg := validTestConfig()
		cfg.OpenAI.APIKey = ""

		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no validation errors, got: %v", err)
		}
	})

	t.Run("missing OpenAI model fails validation", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.OpenAI.Model = ""

		err := cfg.Validate()
		if err == nil {
			t.Error("expected validation error for missing OpenAI model")
		}
		if !strings.Contains(err.Error(), "OpenAI.Model") {
			t.Errorf("expected error about OpenAI.Model, got: %v", err)
		}
	})

	t.Run("invalid gin mode fails validation", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Server.GinMode = "invalid-mode"

		err := cfg.Validate()
		if err == nil {
			t.Error("expected validation error for invalid gin mode")
		}
		if !strings.Contains(err.Error(), "Server.GinMode") {
			t.Errorf("expected error about Server.GinMode, got: %v", err)
		}
	})

	t.Run("zero max rows fails validation", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Query.MaxRows = 0

		err := cfg.Validate()
		if err == nil {
			t.Error("expected validation error for zero max rows")
		}
		if !strings.Contains(err.Error(), "Query.MaxRows") {
			t.Errorf("expected error about Query.MaxRows, got: %v", err)
		}
	})

	t.Run("missing JWT secret fails when anonymous access disabled", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Auth.JWTSecret = ""
		cfg.Auth.AllowAnonymous = false

		err := cfg.Validate()
		if err == nil {
			t.Error("expected validation error for missing JWT secret")
		}
		if !strings.Contains(err.Error(), "Auth.JWTSecret") {
			t.Errorf("expected error about Auth.JWTSecret, got: %v", err)
		}
	})

	t.Run("missing JWT secret is allowed with anonymous access", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Auth.JWTSecret = ""
		cfg.Auth.AllowAnonymous = true

		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no validation errors, got: %v", err)
		}
	})

	t.Run("zero pie max categories fails validation", func(t *testing.T) {
		cfg := validTestConfig()
		cfg.Chart.PieMaxCategories = 0

		err := cfg.Validate()
		if err == nil {
			t.Error("expected validation error for zero pie max categories")
		}
		if !strings.Contains(err.Error(), "Chart.PieMaxCategories") {
			t.Errorf("expected error about Chart.PieMaxCategories, got: %v", err)
		}
	})
}

func productionTestConfig() *Config {
	cfg := validTestConfig()
	cfg.Database.Password = "secure-random-password-123"
	cfg.Redis.Password = "secure-redis-password"
	cfg.Auth.JWTSecret = "super-secure-jwt-secret-with-at-least-32-characters"
	cfg.Auth.AllowAnonymous = false
	cfg.Server.GinMode = "release"
	return cfg
}

func TestProductionValidation(t *testing.T) {
	t.Run("production config with secure values passes", func(t *testing.T) {
		cfg := productionTestConfig()

		err := cfg.ValidateProduction()
		if err != nil {
			t.Errorf("expected no production validation errors, got: %v", err)
		}
	})

	t.Run("default database password fails production validation", func(t *testing.T) {
		cfg := productionTestConfig()
		cfg.Database.Password = "changeme"

		err := cfg.ValidateProduction()
		if err == nil {
			t.Error("expected production validation error for default database password")
		}
		if !strings.Contains(err.Error(), "Database.Password") {
			t.Errorf("expected error about Database.Password, got: %v", err)
		}
	})

	t.Run("short JWT secret fails production validation", func(t *testing.T) {
		cfg := productionTestConfig()
		cfg.Auth.JWTSecret = "short"

		err := cfg.ValidateProduction()
		if err == nil {
			t.Error("expected production validation error for short JWT secret")
		}
		if !strings.Contains(err.Error(), "JWT secret should be at least 32 characters") {
			t.Errorf("expected error about JWT secret length, got: %v", err)
		}
	})

	t.Run("missing OpenAI API key fails production validation", func(t *testing.T) {
		cfg := productionTestConfig()
		cfg.OpenAI.APIKey = ""

		err := cfg.ValidateProduction()
		if err == nil {
			t.Error("expected production validation error for missing OpenAI API key")
		}
		if !strings.Contains(err.Error(), "OpenAI.APIKey") {
			t.Errorf("expected error about OpenAI.APIKey, got: %v", err)
		}
	})

	t.Run("debug mode fails production validation", func(t *testing.T) {
		cfg := productionTestConfig()
		cfg.Server.GinMode = "debug"

		err := cfg.ValidateProduction()
		if err == nil {
			t.Error("expected production validation error for debug mode")
		}
		if !strings.Contains(err.Error(), "release") {
			t.Errorf("expected error about release mode, got: %v", err)
		}
	})

	t.Run("anonymous access enabled fails production validation", func(t *testing.T) {
		cfg := productionTestConfig()
		cfg.Auth.AllowAnonymous = true

		err := cfg.ValidateProduction()
		if err == nil {
			t.Error("expected production validation error for anonymous access")
		}
		if !strings.Contains(err.Error(), "AllowAnonymous") {
			t.Errorf("expected error about AllowAnonymous, got: %v", err)
		}
	})
}

func TestIsProduction(t *testing.T) {
	tests := []struct {
		name     string
		ginMode  string
		expected bool
	}{
		{"release mode is production", "release", true},
		{"debug mode is not production", "debug", false},
		{"test mode is not production", "test", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server: ServerConfig{
					GinMode: tt.ginMode,
				},
			}

			if cfg.IsProduction() != tt.expected {
				t.Errorf("expected IsProduction() = %v, got %v", tt.expected, cfg.IsProduction())
			}
		})
	}
}
