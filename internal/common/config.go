package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/insider-e2e/internal/browser"
)

// Config represents the suite configuration
type Config struct {
	Browser BrowserConfig `toml:"browser"`
	Site    SiteConfig    `toml:"site"`
	Output  OutputConfig  `toml:"output"`
	Logging LoggingConfig `toml:"logging"`
	Runner  RunnerConfig  `toml:"runner"`
}

type BrowserConfig struct {
	// "chrome" or "firefox"
	Name     string `toml:"name" validate:"required"`
	Headless bool   `toml:"headless"`
	// Empty = local install, else a downloaded Chromium
	ChromePath      string `toml:"chrome_path"`
	GeckoDriverPath string `toml:"gecko_driver_path" validate:"required_if=Name firefox"`
	WindowWidth     int    `toml:"window_width" validate:"gt=0"`
	WindowHeight    int    `toml:"window_height" validate:"gt=0"`
	LaunchTimeout   string `toml:"launch_timeout" validate:"required"` // e.g. "30s"
}

type SiteConfig struct {
	BaseURL      string `toml:"base_url" validate:"required,url"`       // Home page of the site under test
	QACareersURL string `toml:"qa_careers_url" validate:"required,url"` // Quality Assurance careers page
}

type OutputConfig struct {
	ScreenshotDir string `toml:"screenshot_dir" validate:"required"` // Failure screenshots
	ResultsDir    string `toml:"results_dir" validate:"required"`    // Runner output ({suite}-{datetime}/test.log)
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"`
	Output []string `toml:"output" validate:"dive,oneof=stdout console file"`
}

// RunnerConfig controls how the runner invokes the browser suites
type RunnerConfig struct {
	Package   string `toml:"package" validate:"required"`    // Go package holding the suites
	BuildTags string `toml:"build_tags" validate:"required"` // Tags gating the browser suites
	Timeout   string `toml:"timeout" validate:"required"`    // go test -timeout
}

// NewDefaultConfig returns the configuration used when no file is given
func NewDefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Name:            string(browser.Chrome),
			Headless:        true,
			GeckoDriverPath: "geckodriver",
			WindowWidth:     1920,
			WindowHeight:    1080,
			LaunchTimeout:   "30s",
		},
		Site: SiteConfig{
			BaseURL:      "https://useinsider.com/",
			QACareersURL: "https://useinsider.com/careers/quality-assurance/",
		},
		Output: OutputConfig{
			ScreenshotDir: "error_screenshots",
			ResultsDir:    "test/results",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Runner: RunnerConfig{
			Package:   "./test/ui",
			BuildTags: "e2e",
			Timeout:   "20m",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env
// Later files override earlier files. CLI flags are applied separately via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies INSIDER_E2E_* environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if name := os.Getenv("INSIDER_E2E_BROWSER"); name != "" {
		config.Browser.Name = name
	}
	if headless := os.Getenv("INSIDER_E2E_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}
	if path := os.Getenv("INSIDER_E2E_CHROME_PATH"); path != "" {
		config.Browser.ChromePath = path
	}
	if path := os.Getenv("INSIDER_E2E_GECKODRIVER"); path != "" {
		config.Browser.GeckoDriverPath = path
	}

	if baseURL := os.Getenv("INSIDER_E2E_BASE_URL"); baseURL != "" {
		config.Site.BaseURL = baseURL
	}
	if qaURL := os.Getenv("INSIDER_E2E_QA_CAREERS_URL"); qaURL != "" {
		config.Site.QACareersURL = qaURL
	}

	if dir := os.Getenv("INSIDER_E2E_SCREENSHOT_DIR"); dir != "" {
		config.Output.ScreenshotDir = dir
	}
	// Set by the runner for each suite it launches
	if dir := os.Getenv("TEST_RESULTS_DIR"); dir != "" {
		config.Output.ResultsDir = dir
	}

	if level := os.Getenv("INSIDER_E2E_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if output := os.Getenv("INSIDER_E2E_LOG_OUTPUT"); output != "" {
		config.Logging.Output = splitString(output, ",")
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, browserName string, baseURL string) {
	if browserName != "" {
		config.Browser.Name = browserName
	}
	if baseURL != "" {
		config.Site.BaseURL = baseURL
	}
}

// Validate checks the browser selection first so an unsupported browser
// fails with browser.ErrUnsupportedBrowser before anything else is reported.
func (c *Config) Validate() error {
	if _, err := browser.ParseName(c.Browser.Name); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.Browser.LaunchTimeout); err != nil {
		return fmt.Errorf("invalid browser.launch_timeout %q: %w", c.Browser.LaunchTimeout, err)
	}
	if _, err := time.ParseDuration(c.Runner.Timeout); err != nil {
		return fmt.Errorf("invalid runner.timeout %q: %w", c.Runner.Timeout, err)
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// BrowserOptions converts the browser section into session options
func (c *Config) BrowserOptions() browser.Options {
	opts := browser.DefaultOptions()
	opts.Browser = c.Browser.Name
	opts.Headless = c.Browser.Headless
	opts.ChromePath = c.Browser.ChromePath
	opts.GeckoDriverPath = c.Browser.GeckoDriverPath
	opts.WindowWidth = c.Browser.WindowWidth
	opts.WindowHeight = c.Browser.WindowHeight
	if d, err := time.ParseDuration(c.Browser.LaunchTimeout); err == nil {
		opts.LaunchTimeout = d
	}
	return opts
}

// splitString splits s by sep and drops empty, space-trimmed parts
func splitString(s, sep string) []string {
	var result []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
