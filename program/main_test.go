package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/keilerkonzept/editstream/aggregate"
	"github.com/keilerkonzept/editstream/chart"
)

func parseArgs(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	var (
		cfg    Config
		cfgErr error
	)
	cmd := newRootCommand()
	cmd.Action = func(ctx context.Context, c *cli.Command) error {
		cfg, cfgErr = configFromCommand(c)
		return nil
	}
	require.NoError(t, cmd.Run(context.Background(), append([]string{"editstream"}, args...)))
	return cfg, cfgErr
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := parseArgs(t)
	require.NoError(t, err)

	def := defaultConfig()
	assert.Equal(t, def.URL, cfg.URL)
	assert.Equal(t, 1200, cfg.Retention)
	assert.Equal(t, 10, cfg.TopN)
	assert.Equal(t, 300, cfg.Sample)
	assert.Equal(t, 20, cfg.Bins)
	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.Equal(t, aggregate.ModeTitles, cfg.Mode)
	assert.Equal(t, chart.SVG, cfg.ExportFormat)
	assert.True(t, cfg.Reconnect)
	require.NoError(t, validateConfig(&cfg))
}

func TestConfigFlags(t *testing.T) {
	cfg, err := parseArgs(t,
		"--top", "5",
		"--mode", "bytes",
		"--interval", "500ms",
		"--wiki", "enwiki", "--wiki", "dewiki",
		"--no-bots",
		"--export-format", "png",
		"--in", "edits.ndjson",
	)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.TopN)
	assert.Equal(t, aggregate.ModeBytes, cfg.Mode)
	assert.Equal(t, 500*time.Millisecond, cfg.Interval)
	assert.Equal(t, []string{"enwiki", "dewiki"}, cfg.Wikis)
	assert.True(t, cfg.NoBots)
	assert.Equal(t, chart.PNG, cfg.ExportFormat)
	assert.Equal(t, "edits.ndjson", cfg.InputPath)
}

func TestConfigBadMode(t *testing.T) {
	_, err := parseArgs(t, "--mode", "pie")
	assert.ErrorContains(t, err, "--mode")

	_, err = parseArgs(t, "--export-format", "gif")
	assert.ErrorContains(t, err, "--export-format")
}

func TestValidateConfig(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"retention":       func(c *Config) { c.Retention = 0 },
		"top":             func(c *Config) { c.TopN = 0 },
		"sample":          func(c *Config) { c.Sample = 0 },
		"sample>retained": func(c *Config) { c.Sample = c.Retention + 1 },
		"bins":            func(c *Config) { c.Bins = 0 },
		"log-lines":       func(c *Config) { c.LogLines = 0 },
		"interval":        func(c *Config) { c.Interval = 0 },
		"pace":            func(c *Config) { c.Pace = -time.Second },
		"max-records":     func(c *Config) { c.MaxRecords = -1 },
		"trending-tick":   func(c *Config) { c.TrendingTick = 0 },
		"window<tick":     func(c *Config) { c.TrendingWindow = time.Second },
		"window%tick":     func(c *Config) { c.TrendingWindow = 95 * time.Second },
		"url":             func(c *Config) { c.URL = "" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig()
			mutate(&cfg)
			assert.Error(t, validateConfig(&cfg))
		})
	}

	cfg := defaultConfig()
	cfg.StatsWindow = 1
	cfg.ExportDir = t.TempDir() + "/charts"
	require.NoError(t, validateConfig(&cfg))
	assert.Equal(t, 16, cfg.StatsWindow)
	assert.DirExists(t, cfg.ExportDir)
}
