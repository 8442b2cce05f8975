package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Listen:         ":8082",
		LogFormat:      "text",
		LogLevel:       "info",
		Storage:        "memory",
		APIURL:         "https://api.amber.com.au",
		APIToken:       "token-1",
		Site:           "site-a",
		ClientTimeout:  10 * time.Second,
		IntervalLength: 5 * time.Minute,
		Tick:           time.Second,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:   "valid redis backend",
			mutate: func(c *Config) { c.Storage = "redis" },
		},
		{
			name:    "missing site",
			mutate:  func(c *Config) { c.Site = "" },
			wantErr: true,
		},
		{
			name:    "invalid site name",
			mutate:  func(c *Config) { c.Site = "bad site!" },
			wantErr: true,
		},
		{
			name:    "missing api token",
			mutate:  func(c *Config) { c.APIToken = "" },
			wantErr: true,
		},
		{
			name:    "empty api url",
			mutate:  func(c *Config) { c.APIURL = "" },
			wantErr: true,
		},
		{
			name:    "unknown storage backend",
			mutate:  func(c *Config) { c.Storage = "postgres" },
			wantErr: true,
		},
		{
			name:    "zero interval length",
			mutate:  func(c *Config) { c.IntervalLength = 0 },
			wantErr: true,
		},
		{
			name:    "zero tick",
			mutate:  func(c *Config) { c.Tick = 0 },
			wantErr: true,
		},
		{
			name:    "tick not shorter than interval",
			mutate:  func(c *Config) { c.Tick = 5 * time.Minute },
			wantErr: true,
		},
		{
			name:    "negative default budget",
			mutate:  func(c *Config) { c.DefaultBudget = -1 },
			wantErr: true,
		},
		{
			name:    "zero client timeout",
			mutate:  func(c *Config) { c.ClientTimeout = 0 },
			wantErr: true,
		},
		{
			name: "tls enabled without cert",
			mutate: func(c *Config) {
				c.TLS.Enabled = true
				c.TLS.KeyFile = "key.pem"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestSiteNameRegex(t *testing.T) {
	tests := []struct {
		site string
		ok   bool
	}{
		{site: "a", ok: true},
		{site: "site-a", ok: true},
		{site: "Site_01", ok: true},
		{site: "-leading", ok: false},
		{site: "trailing-", ok: false},
		{site: "has space", ok: false},
		{site: "", ok: false},
	}

	for _, tt := range tests {
		if got := siteNameRegex.MatchString(tt.site); got != tt.ok {
			t.Errorf("siteNameRegex.MatchString(%q) = %v, want %v", tt.site, got, tt.ok)
		}
	}
}
