package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/insider-e2e/internal/common"
)

type TestSuite struct {
	Name    string
	Key     string
	Command []string
	Env     []string
}

type TestResult struct {
	Suite    string
	Success  bool
	Output   string
	LogFile  string
	Duration time.Duration
}

// buildSuites returns the fixture and live suites as go test invocations
// carrying the resolved browser and site settings.
func buildSuites(config *common.Config, configFile string) []TestSuite {
	pkg := config.Runner.Package
	if !strings.HasPrefix(pkg, ".") && !strings.HasPrefix(pkg, "/") {
		// Use ./ prefix for go test to recognize as relative path
		pkg = "./" + pkg
	}

	testArgs := []string{"-browser=" + config.Browser.Name}
	if configFile != "" {
		if abs, err := filepath.Abs(configFile); err == nil {
			configFile = abs
		}
		testArgs = append(testArgs, "-config="+configFile)
	}

	env := []string{
		fmt.Sprintf("INSIDER_E2E_HEADLESS=%t", config.Browser.Headless),
		"INSIDER_E2E_BASE_URL=" + config.Site.BaseURL,
		"INSIDER_E2E_QA_CAREERS_URL=" + config.Site.QACareersURL,
	}

	command := func(run string) []string {
		args := []string{"go", "test", "-v", "-count=1",
			"-tags", config.Runner.BuildTags,
			"-timeout", config.Runner.Timeout,
			"-run", run,
			pkg, "-args"}
		return append(args, testArgs...)
	}

	return []TestSuite{
		{
			Name:    "Fixture Site Tests",
			Key:     "fixture",
			Command: command("^(TestFixture_|TestUnsupported)"),
			Env:     env,
		},
		{
			Name:    "Live Site Tests",
			Key:     "live",
			Command: command("^TestInsider_"),
			Env:     env,
		},
	}
}

// selectSuites keeps the suites named in the comma separated list
func selectSuites(all []TestSuite, names string) ([]TestSuite, error) {
	wanted := make(map[string]bool)
	for _, name := range strings.Split(names, ",") {
		if name = strings.TrimSpace(strings.ToLower(name)); name != "" {
			wanted[name] = true
		}
	}

	var selected []TestSuite
	for _, suite := range all {
		if wanted[suite.Key] {
			selected = append(selected, suite)
			delete(wanted, suite.Key)
		}
	}
	for name := range wanted {
		return nil, fmt.Errorf("unknown suite %q: select from fixture, live", name)
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no suites selected")
	}
	return selected, nil
}

func runTestSuite(suite TestSuite, outputDir string) TestResult {
	startTime := time.Now()
	timestamp := startTime.Format("2006-01-02_15-04-05")

	// Create results directory structure: {output_dir}/{suite}-{datetime}/
	suiteDir := filepath.Join(outputDir, fmt.Sprintf("%s-%s", sanitizeFilename(suite.Name), timestamp))
	if err := os.MkdirAll(suiteDir, 0755); err != nil {
		fmt.Printf("ERROR: Failed to create suite directory: %v\n", err)
	}

	// Convert to absolute path for environment variable
	absSuiteDir, err := filepath.Abs(suiteDir)
	if err != nil {
		fmt.Printf("ERROR: Failed to resolve absolute path: %v\n", err)
		absSuiteDir = suiteDir
	}

	cmd := exec.Command(suite.Command[0], suite.Command[1:]...)
	cmd.Dir = "."

	// Pass environment variables to test process with ABSOLUTE paths
	cmd.Env = append(os.Environ(), suite.Env...)
	cmd.Env = append(cmd.Env,
		fmt.Sprintf("TEST_RESULTS_DIR=%s", absSuiteDir),
		fmt.Sprintf("INSIDER_E2E_SCREENSHOT_DIR=%s", filepath.Join(absSuiteDir, "screenshots")),
	)

	output, err := cmd.CombinedOutput()
	duration := time.Since(startTime)

	// Save output to test.log in the suite directory
	logFile := filepath.Join(suiteDir, "test.log")
	if writeErr := os.WriteFile(logFile, output, 0644); writeErr != nil {
		fmt.Printf("ERROR: Failed to write %s: %v\n", logFile, writeErr)
	}

	return TestResult{
		Suite:    suite.Name,
		Success:  err == nil,
		Output:   string(output),
		LogFile:  logFile,
		Duration: duration,
	}
}

func printSummary(results []TestResult, allPassed bool) {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("TEST SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	totalDuration := time.Duration(0)
	passed := 0
	failed := 0

	for _, result := range results {
		status := "PASS"
		if !result.Success {
			status = "FAIL"
			failed++
		} else {
			passed++
		}

		fmt.Printf("%-30s %s (%.2fs)\n", result.Suite, status, result.Duration.Seconds())
		totalDuration += result.Duration
	}

	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("Total: %d passed, %d failed (%.2fs)\n", passed, failed, totalDuration.Seconds())

	if allPassed {
		fmt.Println("\n✓ ALL TESTS PASSED")
	} else {
		fmt.Println("\n✗ SOME TESTS FAILED")
	}
}

func sanitizeFilename(name string) string {
	// Replace spaces and special characters with underscores
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "_",
		"\\", "_",
		":", "_",
	)
	return strings.ToLower(replacer.Replace(name))
}
