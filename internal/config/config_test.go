package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default values",
			env:  map[string]string{},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != "8080" {
					t.Errorf("expected port 8080, got %s", cfg.Port)
				}
				if cfg.LogLevel != "info" {
					t.Errorf("expected log level info, got %s", cfg.LogLevel)
				}
				if cfg.AuthMode != AuthModeLocal {
					t.Errorf("expected auth mode local, got %s", cfg.AuthMode)
				}
				if cfg.TokenTTL != 12*time.Hour {
					t.Errorf("expected token TTL 12h, got %v", cfg.TokenTTL)
				}
				if cfg.WACountryCode != "91" {
					t.Errorf("expected WA country code 91, got %s", cfg.WACountryCode)
				}
				if cfg.DataDir != "./data" {
					t.Errorf("expected data dir ./data, got %s", cfg.DataDir)
				}
			},
		},
		{
			name: "custom values",
			env: map[string]string{
				"PORT":            "9000",
				"LOG_LEVEL":       "debug",
				"DATA_DIR":        "/var/lib/fieldcollect",
				"TOKEN_TTL_HOURS": "2",
				"ALLOWED_ORIGINS": "http://example.com, http://test.com",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Port != "9000" {
					t.Errorf("expected port 9000, got %s", cfg.Port)
				}
				if cfg.DataDir != "/var/lib/fieldcollect" {
					t.Errorf("expected custom data dir, got %s", cfg.DataDir)
				}
				if cfg.TokenTTL != 2*time.Hour {
					t.Errorf("expected token TTL 2h, got %v", cfg.TokenTTL)
				}
				if len(cfg.AllowedOrigins) != 2 {
					t.Fatalf("expected 2 allowed origins, got %d", len(cfg.AllowedOrigins))
				}
				if cfg.AllowedOrigins[1] != "http://test.com" {
					t.Errorf("expected origins trimmed, got %q", cfg.AllowedOrigins[1])
				}
			},
		},
		{
			name: "oidc mode requires issuer",
			env: map[string]string{
				"AUTH_MODE": "oidc",
			},
			wantErr: true,
		},
		{
			name: "oidc mode with issuer",
			env: map[string]string{
				"AUTH_MODE":   "oidc",
				"OIDC_ISSUER": "https://sso.example.com/realms/field",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.AuthMode != AuthModeOIDC {
					t.Errorf("expected auth mode oidc, got %s", cfg.AuthMode)
				}
			},
		},
		{
			name: "invalid auth mode",
			env: map[string]string{
				"AUTH_MODE": "keycloak",
			},
			wantErr: true,
		},
		{
			name: "invalid TOKEN_TTL_HOURS",
			env: map[string]string{
				"TOKEN_TTL_HOURS": "invalid",
			},
			wantErr: true,
		},
		{
			name: "invalid WS_READ_TIMEOUT",
			env: map[string]string{
				"WS_READ_TIMEOUT": "invalid",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestWebSocketConstants(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.PongWait != cfg.WSReadTimeout {
		t.Errorf("PongWait (%v) should equal WSReadTimeout (%v)", cfg.PongWait, cfg.WSReadTimeout)
	}
	if cfg.PingPeriod >= cfg.PongWait {
		t.Errorf("PingPeriod (%v) must be less than PongWait (%v)", cfg.PingPeriod, cfg.PongWait)
	}
	if cfg.WriteWait != cfg.WSWriteTimeout {
		t.Errorf("WriteWait (%v) should equal WSWriteTimeout (%v)", cfg.WriteWait, cfg.WSWriteTimeout)
	}
}
