package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every PROJDASH_ variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "ROOT", "TITLE", "SCHEME", "RULES", "WATCH", "INTRO",
		"HIGHLIGHT_THEME", "DIR_LISTING", "SHOW_NAMES", "BANDWIDTH",
		"METRICS_PATH", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv("PROJDASH_"+k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	cfg, err := Load([]string{root})
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, "Global Sales Project Dashboard", cfg.Title)
	assert.Equal(t, "pair", cfg.Scheme)
	assert.Equal(t, "", cfg.RulesPath)
	assert.False(t, cfg.Watch)
	assert.False(t, cfg.DirListing)
	assert.False(t, cfg.ShowNames)
	assert.Equal(t, 0.0, cfg.BandwidthLimit)
	assert.Equal(t, "/-/metrics", cfg.MetricsPath)
	assert.Equal(t, "catppuccin-mocha", cfg.HighlightTheme)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoadRootDefaultsToWorkingDir(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Root)
}

func TestLoadEnvFallback(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	t.Setenv("PROJDASH_PORT", "9090")
	t.Setenv("PROJDASH_ROOT", root)
	t.Setenv("PROJDASH_SCHEME", "Both")
	t.Setenv("PROJDASH_WATCH", "yes")
	t.Setenv("PROJDASH_SHOW_NAMES", "on")
	t.Setenv("PROJDASH_BANDWIDTH", "8kbps")
	t.Setenv("PROJDASH_METRICS_PATH", "off")
	t.Setenv("PROJDASH_LOG_FORMAT", "JSON")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, "both", cfg.Scheme)
	assert.True(t, cfg.Watch)
	assert.True(t, cfg.ShowNames)
	assert.Equal(t, 1000.0, cfg.BandwidthLimit)
	assert.Equal(t, "", cfg.MetricsPath)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadFlagsBeatEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROJDASH_PORT", "9090")
	t.Setenv("PROJDASH_SCHEME", "label")
	t.Setenv("PROJDASH_WATCH", "true")
	t.Setenv("PROJDASH_TITLE", "From env")

	cfg, err := Load([]string{"-port", "7000", "-scheme", "pair", "-watch", "false", "-title", "From flag", t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "pair", cfg.Scheme)
	assert.False(t, cfg.Watch)
	assert.Equal(t, "From flag", cfg.Title)
}

func TestLoadOptionalFiles(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.toml")
	intro := filepath.Join(dir, "intro.md")
	require.NoError(t, os.WriteFile(rules, []byte("[[rule]]\npattern = \"x\"\n"), 0o644))
	require.NoError(t, os.WriteFile(intro, []byte("hi"), 0o644))

	cfg, err := Load([]string{"-rules", rules, "-intro", intro, dir})
	require.NoError(t, err)
	assert.Equal(t, rules, cfg.RulesPath)
	assert.Equal(t, intro, cfg.IntroPath)

	_, err = Load([]string{"-rules", filepath.Join(dir, "missing.toml"), dir})
	assert.Error(t, err)
	_, err = Load([]string{"-intro", dir, dir})
	assert.Error(t, err)
}

func TestLoadRejects(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	cases := map[string][]string{
		"unknown scheme":    {"-scheme", "hash", root},
		"port out of range": {"-port", "70000", root},
		"relative metrics":  {"-metrics-path", "metrics", root},
		"metrics at root":   {"-metrics-path", "/", root},
		"bad bandwidth":     {"-bandwidth", "fast", root},
		"bad log level":     {"-log-level", "loud", root},
		"bad log format":    {"-log-format", "xml", root},
		"missing root":      {filepath.Join(root, "nope")},
		"root is a file":    {file},
		"two roots":         {root, root},
		"root flag and arg": {"-root", root, root},
		"unknown flag":      {"-nope", root},
		"bad watch value":   {"-watch", "maybe", root},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(args)
			assert.Error(t, err)
		})
	}
}

func TestLoadBadEnvPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROJDASH_PORT", "eighty")
	_, err := Load([]string{t.TempDir()})
	assert.Error(t, err)
}

func TestLoadHelp(t *testing.T) {
	clearEnv(t)
	_, err := Load([]string{"-h"})
	assert.True(t, errors.Is(err, flag.ErrHelp))
}

func TestParseBandwidth(t *testing.T) {
	cases := map[string]float64{
		"":         0,
		"0":        0,
		"800":      100,
		"8 bps":    1,
		"10mbps":   1_250_000,
		"500 KBPS": 62_500,
		"1gbps":    125_000_000,
		"1.5mbps":  187_500,
	}
	for in, want := range cases {
		got, err := parseBandwidth(in)
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 0.001, in)
	}

	for _, bad := range []string{"mbps", "10 tbps", "-5mbps", "fast", "1.2.3kbps"} {
		_, err := parseBandwidth(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"1", "t", "TRUE", " yes ", "on"} {
		b, ok := parseBool(s)
		assert.True(t, ok, s)
		assert.True(t, b, s)
	}
	for _, s := range []string{"0", "f", "False", "no", "OFF"} {
		b, ok := parseBool(s)
		assert.True(t, ok, s)
		assert.False(t, b, s)
	}
	_, ok := parseBool("maybe")
	assert.False(t, ok)
}

func TestBoolOption(t *testing.T) {
	t.Setenv("PROJDASH_TEST_BOOL", "yes")
	b, err := boolOption("test", "", "PROJDASH_TEST_BOOL")
	require.NoError(t, err)
	assert.True(t, b)

	b, err = boolOption("test", "off", "PROJDASH_TEST_BOOL")
	require.NoError(t, err)
	assert.False(t, b, "flag beats env")

	t.Setenv("PROJDASH_TEST_BOOL", "")
	b, err = boolOption("test", "", "PROJDASH_TEST_BOOL")
	require.NoError(t, err)
	assert.False(t, b)

	_, err = boolOption("test", "maybe", "PROJDASH_TEST_BOOL")
	assert.Error(t, err)
}
