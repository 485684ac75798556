// Command insider-e2e-runner runs the browser suites and stores each
// suite's output under {results_dir}/{suite}-{datetime}/test.log.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/insider-e2e/internal/common"
	"github.com/ternarybob/insider-e2e/internal/fixturesite"
)

const defaultConfigFile = "insider-e2e.toml"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run executes the runner and returns the process exit code, so deferred
// cleanup completes before main exits.
func run(args []string, out io.Writer) (exitCode int) {
	fs := flag.NewFlagSet("insider-e2e-runner", flag.ContinueOnError)
	fs.SetOutput(out)
	var (
		configPath  = fs.String("config", "", "Path to a TOML configuration file (default: "+defaultConfigFile+" if present)")
		browserName = fs.String("browser", "", "Driver selection: chrome or firefox")
		baseURL     = fs.String("base-url", "", "Override the live site base URL")
		suiteNames  = fs.String("suites", "fixture,live", "Comma separated suites to run: fixture, live")
		skipProbe   = fs.Bool("skip-probe", false, "Skip the browser smoke probe")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	defer func() {
		if r := recover(); r != nil {
			path, _ := common.WriteCrashFile(filepath.Join(os.TempDir(), "insider-e2e"), r, common.GetStackTrace())
			fmt.Fprintf(out, "FATAL: runner crashed: %v (report: %s)\n", r, path)
			exitCode = 1
		}
	}()

	// Load configuration
	cfgFile := resolveConfigPath(*configPath)
	config, err := common.LoadFromFiles(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "ERROR: Failed to load configuration: %v\n", err)
		return 1
	}
	common.ApplyFlagOverrides(config, *browserName, *baseURL)
	if err := config.Validate(); err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		return 2
	}

	common.PrintBanner(common.GetVersion())
	logger := common.InitLogger(config)

	fmt.Fprintf(out, "Configuration:\n")
	fmt.Fprintf(out, "  Config File: %s\n", displayPath(cfgFile))
	fmt.Fprintf(out, "  Browser: %s (headless: %t)\n", config.Browser.Name, config.Browser.Headless)
	fmt.Fprintf(out, "  Live Site: %s\n", config.Site.BaseURL)
	fmt.Fprintf(out, "  Output Directory: %s\n\n", config.Output.ResultsDir)

	// Step 1: Fixture site for the browser probe
	fmt.Fprintln(out, "STEP 1: Starting fixture site...")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	site, err := fixturesite.NewServer(fixturesite.DefaultConfig(), logger)
	if err != nil {
		fmt.Fprintf(out, "ERROR: Failed to create fixture site: %v\n", err)
		return 1
	}
	if _, err := site.Start(); err != nil {
		fmt.Fprintf(out, "ERROR: Failed to start fixture site: %v\n", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		site.Shutdown(ctx)
		fmt.Fprintln(out, "✓ Fixture site stopped")
	}()
	if err := waitForService(site.URL()+"status", 5*time.Second); err != nil {
		fmt.Fprintf(out, "ERROR: Fixture site did not become ready: %v\n", err)
		return 1
	}
	fmt.Fprintf(out, "✓ Fixture site ready on %s\n\n", site.URL())

	// Step 2: Browser probe
	if !*skipProbe {
		fmt.Fprintf(out, "STEP 2: Verifying %s can be driven...\n", config.Browser.Name)
		fmt.Fprintln(out, strings.Repeat("-", 80))
		title, err := probeBrowser(context.Background(), config, site.URL(), logger)
		if err != nil {
			fmt.Fprintf(out, "ERROR: Browser probe failed: %v\n", err)
			return 1
		}
		fmt.Fprintf(out, "✓ Browser loaded fixture home page: %q\n\n", title)
	}

	// Step 3: Live site reachability
	fmt.Fprintln(out, "STEP 3: Checking live site...")
	fmt.Fprintln(out, strings.Repeat("-", 80))
	if err := checkConnectivity(config.Site.BaseURL); err != nil {
		fmt.Fprintf(out, "WARNING: %v\n", err)
		fmt.Fprintln(out, "Continuing with tests...")
	} else {
		fmt.Fprintln(out, "✓ Live site reachable")
	}
	fmt.Fprintln(out)

	// Step 4: Run suites
	fmt.Fprintln(out, "STEP 4: Running tests...")
	fmt.Fprintln(out, strings.Repeat("-", 80))

	suites, err := selectSuites(buildSuites(config, cfgFile), *suiteNames)
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		return 2
	}

	fmt.Fprintf(out, "Test results will be saved to: %s/{suite}-{datetime}/\n\n", config.Output.ResultsDir)

	results := make([]TestResult, 0, len(suites))
	allPassed := true

	for _, suite := range suites {
		fmt.Fprintf(out, "Running %s...\n", suite.Name)
		fmt.Fprintln(out, strings.Repeat("-", 80))

		result := runTestSuite(suite, config.Output.ResultsDir)
		results = append(results, result)

		if result.Success {
			fmt.Fprintf(out, "✓ %s PASSED (%.2fs)\n\n", suite.Name, result.Duration.Seconds())
		} else {
			fmt.Fprintf(out, "✗ %s FAILED (%.2fs)\n", suite.Name, result.Duration.Seconds())
			fmt.Fprintf(out, "  Log: %s\n\n", result.LogFile)
			allPassed = false
		}
	}

	printSummary(results, allPassed)

	if !allPassed {
		return 1
	}
	return 0
}

// resolveConfigPath returns the explicit path, else insider-e2e.toml next to
// the executable or in the working directory, else "" (defaults only).
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if exePath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exePath), defaultConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

func displayPath(path string) string {
	if path == "" {
		return "(defaults)"
	}
	return path
}

// checkConnectivity reports whether the live site answers at all
func checkConnectivity(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL)
	if err != nil {
		return fmt.Errorf("live site not reachable at %s: %w", baseURL, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("live site returned status %d", resp.StatusCode)
	}
	return nil
}

// waitForService waits for url to answer 200 OK
func waitForService(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 2 * time.Second}

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		time.Sleep(250 * time.Millisecond)
	}

	return fmt.Errorf("service did not become ready within %v", timeout)
}
