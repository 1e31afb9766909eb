package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("REVERB_APP_KEY", "app-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, TransportPusher, cfg.Broadcast.Transport)
	assert.Equal(t, CacheStoreMemory, cfg.Cache.Store)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "laravel_database_", cfg.Broadcast.RedisPrefix)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Reverb.Secure())
	assert.Equal(t, "http://localhost:8000/broadcasting/auth", cfg.AuthEndpoint())
	assert.NoError(t, cfg.ValidateListen())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown transport", env: map[string]string{"BROADCAST_TRANSPORT": "sse"}},
		{name: "unknown cache store", env: map[string]string{"CACHE_STORE": "disk"}},
		{name: "redis cache without host", env: map[string]string{"CACHE_STORE": "redis"}},
		{name: "bad redis port", env: map[string]string{"REDIS_HOST": "localhost", "REDIS_PORT": "70000"}},
		{name: "bad duration", env: map[string]string{"CACHE_TTL": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidateListen(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "pusher", mutate: func(c *Config) {}},
		{name: "pusher without key", mutate: func(c *Config) { c.Reverb.AppKey = "" }, wantErr: true},
		{name: "redis without host", mutate: func(c *Config) { c.Broadcast.Transport = TransportRedis }, wantErr: true},
		{
			name: "redis",
			mutate: func(c *Config) {
				c.Broadcast.Transport = TransportRedis
				c.Redis.Host = "localhost"
			},
		},
		{name: "no api", mutate: func(c *Config) { c.API.BaseURL = " " }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Broadcast: BroadcastConfig{Transport: TransportPusher},
				Reverb:    ReverbConfig{Host: "localhost", AppKey: "key"},
				API:       APIConfig{BaseURL: "http://api"},
			}
			tt.mutate(cfg)
			err := cfg.ValidateListen()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAuthEndpoint_Override(t *testing.T) {
	cfg := &Config{
		API:    APIConfig{BaseURL: "http://api/"},
		Reverb: ReverbConfig{AuthEndpoint: "http://auth/broadcasting/auth"},
	}
	assert.Equal(t, "http://auth/broadcasting/auth", cfg.AuthEndpoint())

	cfg.Reverb.AuthEndpoint = ""
	assert.Equal(t, "http://api/broadcasting/auth", cfg.AuthEndpoint())
}
