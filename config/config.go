// Package config loads the dashboard configuration from command-line flags,
// falling back to PROJDASH_* environment variables and then defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap/zapcore"
)

// Config is the validated runtime configuration.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port int
	// Root is the directory whose immediate subdirectories are the projects.
	Root string
	// Title is the heading and page title of the dashboard.
	Title string
	// Scheme selects the project routing scheme: "pair", "label" or "both".
	Scheme string
	// RulesPath is an optional TOML file replacing the built-in
	// classification rules.
	RulesPath string
	// Watch enables rescanning Root when top-level entries change. When
	// false the project list is read once and kept until restart.
	Watch bool
	// IntroPath is an optional Markdown, Org-mode or HTML document rendered
	// above the project list.
	IntroPath string
	// HighlightTheme is the Chroma theme for code blocks in the intro.
	HighlightTheme string
	// DirListing exposes generated directory listings for directories
	// without an index.html.
	DirListing bool
	// ShowNames shows real directory names on the dashboard cards.
	ShowNames bool
	// BandwidthLimit is the total cap on served file bytes per second.
	// 0 means unlimited.
	BandwidthLimit float64
	// MetricsPath is where Prometheus metrics are served. Empty disables it.
	MetricsPath string
	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string
	// LogFormat is "console" or "json".
	LogFormat string
}

const (
	defaultPort        = 8000
	defaultTitle       = "Global Sales Project Dashboard"
	defaultTheme       = "catppuccin-mocha"
	defaultMetricsPath = "/-/metrics"
)

// Load parses args (without the program name) and environment variables,
// returning a validated Config.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("projdash", flag.ContinueOnError)
	portFlag := fs.Int("port", 0, "HTTP port to listen on (env: PROJDASH_PORT, default: 8000)")
	rootFlag := fs.String("root", "", "Directory containing the project folders (env: PROJDASH_ROOT, default: current directory)")
	titleFlag := fs.String("title", "", "Dashboard title (env: PROJDASH_TITLE)")
	schemeFlag := fs.String("scheme", "", "Project routing scheme: pair, label or both (env: PROJDASH_SCHEME, default: pair)")
	rulesFlag := fs.String("rules", "", "TOML file with classification rules (env: PROJDASH_RULES, default: built-in)")
	watchFlag := fs.String("watch", "", "Rescan the root when projects are added or removed: true or false (env: PROJDASH_WATCH, default: false)")
	introFlag := fs.String("intro", "", "Markdown, Org or HTML document shown above the projects (env: PROJDASH_INTRO)")
	themeFlag := fs.String("highlight-theme", "", "Chroma theme for intro code blocks (env: PROJDASH_HIGHLIGHT_THEME, default: catppuccin-mocha)")
	listingFlag := fs.String("dir-listing", "", "Serve directory listings for folders without index.html: true or false (env: PROJDASH_DIR_LISTING, default: false)")
	namesFlag := fs.String("show-names", "", "Show real folder names on the dashboard: true or false (env: PROJDASH_SHOW_NAMES, default: false)")
	bandwidthFlag := fs.String("bandwidth", "", "Total bandwidth cap, e.g. 10mbps, 500kbps, 1gbps (env: PROJDASH_BANDWIDTH, default: unlimited)")
	metricsFlag := fs.String("metrics-path", "", "Path serving Prometheus metrics, or off (env: PROJDASH_METRICS_PATH, default: /-/metrics)")
	levelFlag := fs.String("log-level", "", "Log level: debug, info, warn, error (env: PROJDASH_LOG_LEVEL, default: info)")
	formatFlag := fs.String("log-format", "", "Log format: console or json (env: PROJDASH_LOG_FORMAT, default: console)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := &Config{
		Title:          stringOption(*titleFlag, "PROJDASH_TITLE", defaultTitle),
		HighlightTheme: stringOption(*themeFlag, "PROJDASH_HIGHLIGHT_THEME", defaultTheme),
	}
	var err error

	if cfg.Port, err = portOption(*portFlag, "PROJDASH_PORT"); err != nil {
		return nil, err
	}

	// A single positional argument is accepted in place of -root.
	cfg.Root = stringOption(*rootFlag, "PROJDASH_ROOT", ".")
	switch fs.NArg() {
	case 0:
	case 1:
		if *rootFlag != "" {
			return nil, fmt.Errorf("root given both as -root and as argument")
		}
		cfg.Root = fs.Arg(0)
	default:
		return nil, fmt.Errorf("expected at most one root directory, got %d", fs.NArg())
	}
	if err := requireDir(cfg.Root); err != nil {
		return nil, err
	}

	cfg.Scheme = strings.ToLower(stringOption(*schemeFlag, "PROJDASH_SCHEME", "pair"))
	if !slices.Contains([]string{"pair", "label", "both"}, cfg.Scheme) {
		return nil, fmt.Errorf("invalid scheme %q: must be pair, label or both", cfg.Scheme)
	}

	cfg.RulesPath = stringOption(*rulesFlag, "PROJDASH_RULES", "")
	if err := requireFile("rules", cfg.RulesPath); err != nil {
		return nil, err
	}
	cfg.IntroPath = stringOption(*introFlag, "PROJDASH_INTRO", "")
	if err := requireFile("intro", cfg.IntroPath); err != nil {
		return nil, err
	}

	for _, b := range []struct {
		dst    *bool
		name   string
		flag   string
		envKey string
	}{
		{&cfg.Watch, "watch", *watchFlag, "PROJDASH_WATCH"},
		{&cfg.DirListing, "dir-listing", *listingFlag, "PROJDASH_DIR_LISTING"},
		{&cfg.ShowNames, "show-names", *namesFlag, "PROJDASH_SHOW_NAMES"},
	} {
		if *b.dst, err = boolOption(b.name, b.flag, b.envKey); err != nil {
			return nil, err
		}
	}

	if raw := stringOption(*bandwidthFlag, "PROJDASH_BANDWIDTH", ""); raw != "" {
		if cfg.BandwidthLimit, err = parseBandwidth(raw); err != nil {
			return nil, fmt.Errorf("invalid bandwidth %q: %w", raw, err)
		}
	}

	cfg.MetricsPath = stringOption(*metricsFlag, "PROJDASH_METRICS_PATH", defaultMetricsPath)
	if on, isBool := parseBool(cfg.MetricsPath); (isBool && !on) || strings.EqualFold(cfg.MetricsPath, "none") {
		cfg.MetricsPath = ""
	}
	if cfg.MetricsPath != "" && (!strings.HasPrefix(cfg.MetricsPath, "/") || cfg.MetricsPath == "/") {
		return nil, fmt.Errorf("invalid metrics path %q: must start with / and not be /", cfg.MetricsPath)
	}

	cfg.LogLevel = strings.ToLower(stringOption(*levelFlag, "PROJDASH_LOG_LEVEL", "info"))
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	cfg.LogFormat = strings.ToLower(stringOption(*formatFlag, "PROJDASH_LOG_FORMAT", "console"))
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid log format %q: must be console or json", cfg.LogFormat)
	}

	return cfg, nil
}

// stringOption resolves a string option: flag value, then environment
// variable, then default.
func stringOption(flagVal, envKey, defaultVal string) string {
	if flagVal != "" {
		return flagVal
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultVal
}

func portOption(flagVal int, envKey string) (int, error) {
	port := flagVal
	if port == 0 {
		v := os.Getenv(envKey)
		if v == "" {
			return defaultPort, nil
		}
		p, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q", envKey, v)
		}
		port = p
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %d", port)
	}
	return port, nil
}

// boolOption resolves a boolean option in the same order as stringOption,
// defaulting to false. Unrecognised values are an error.
func boolOption(name, flagVal, envKey string) (bool, error) {
	raw := stringOption(flagVal, envKey, "")
	if raw == "" {
		return false, nil
	}
	b, ok := parseBool(raw)
	if !ok {
		return false, fmt.Errorf("invalid %s value %q: want true or false", name, raw)
	}
	return b, nil
}

var boolWords = map[string]bool{
	"1": true, "t": true, "true": true, "yes": true, "on": true,
	"0": false, "f": false, "false": false, "no": false, "off": false,
}

// parseBool accepts the usual spellings of on and off, case-insensitively.
func parseBool(s string) (value, ok bool) {
	value, ok = boolWords[strings.ToLower(strings.TrimSpace(s))]
	return value, ok
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("root %q: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %q is not a directory", path)
	}
	return nil
}

// requireFile checks that an optional path, when set, names a regular file.
func requireFile(what, path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s %q: %w", what, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s %q is a directory, not a file", what, path)
	}
	return nil
}

// bitUnits maps -bandwidth units to bits.
var bitUnits = map[string]float64{"": 1, "bps": 1, "kbps": 1e3, "mbps": 1e6, "gbps": 1e9}

// parseBandwidth converts a bit rate such as "10mbps", "500 kbps" or a bare
// number of bits per second into bytes per second.
func parseBandwidth(s string) (float64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	num := strings.TrimRightFunc(s, unicode.IsLetter)
	unit := s[len(num):]
	num = strings.TrimSpace(num)
	if num == "" {
		if unit == "" {
			return 0, nil
		}
		return 0, fmt.Errorf("no numeric value found")
	}
	scale, ok := bitUnits[unit]
	if !ok {
		return 0, fmt.Errorf("unknown unit %q (accepted: bps, kbps, mbps, gbps)", unit)
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid number %q", num)
	}
	return v * scale / 8, nil
}
