package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	var nilCfg *Config
	assert.ErrorIs(t, nilCfg.Validate(), ErrNilConfig)
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"empty host", func(c *Config) { c.Host = "" }},
		{"bad port", func(c *Config) { c.Port = 70000 }},
		{"empty user", func(c *Config) { c.User = "" }},
		{"empty db", func(c *Config) { c.DBName = "" }},
		{"no conns", func(c *Config) { c.Pool.MaxConns = 0 }},
		{"min over max", func(c *Config) { c.Pool.MinConns = c.Pool.MaxConns + 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConnString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "secret"
	cfg.ConnectTimeout = 3 * time.Second

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=flotilla sslmode=disable connect_timeout=3",
		cfg.ConnString())
}

func TestMergeConfigKeepsDefaults(t *testing.T) {
	cfg, err := MergeConfig(DefaultConfig(), &Config{Host: "db.internal", DBName: "fleet"})
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, "fleet", cfg.DBName)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, int32(10), cfg.Pool.MaxConns)
}

func TestApplyQueryTimeout(t *testing.T) {
	c := &Client{cfg: &Config{QueryTimeout: time.Second}}

	ctx, cancel := c.applyQueryTimeout(context.Background())
	defer cancel()
	_, ok := ctx.Deadline()
	assert.True(t, ok)

	parent, parentCancel := context.WithTimeout(context.Background(), time.Minute)
	defer parentCancel()
	ctx2, cancel2 := c.applyQueryTimeout(parent)
	defer cancel2()
	assert.Equal(t, parent, ctx2)
}
