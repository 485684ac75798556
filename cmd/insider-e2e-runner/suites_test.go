package main

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/insider-e2e/internal/common"
)

func TestBuildSuites(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Browser.Name = "firefox"

	suites := buildSuites(config, "")
	require.Len(t, suites, 2)

	fixture := suites[0]
	assert.Equal(t, "fixture", fixture.Key)
	assert.Equal(t, []string{
		"go", "test", "-v", "-count=1",
		"-tags", "e2e",
		"-timeout", "20m",
		"-run", "^(TestFixture_|TestUnsupported)",
		"./test/ui", "-args", "-browser=firefox",
	}, fixture.Command)
	assert.Contains(t, fixture.Env, "INSIDER_E2E_BASE_URL=https://useinsider.com/")
	assert.Contains(t, fixture.Env, "INSIDER_E2E_HEADLESS=true")

	live := suites[1]
	assert.Equal(t, "live", live.Key)
	assert.Contains(t, live.Command, "^TestInsider_")
}

func TestBuildSuites_ForwardsConfigFile(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Runner.Package = "test/ui"

	suites := buildSuites(config, "insider-e2e.toml")
	cmd := suites[0].Command

	assert.Contains(t, cmd, "./test/ui")
	last := cmd[len(cmd)-1]
	assert.True(t, strings.HasPrefix(last, "-config="), last)
	assert.True(t, filepath.IsAbs(strings.TrimPrefix(last, "-config=")))
}

func TestSelectSuites(t *testing.T) {
	all := buildSuites(common.NewDefaultConfig(), "")

	selected, err := selectSuites(all, "live")
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "live", selected[0].Key)

	selected, err = selectSuites(all, " Fixture , live ")
	require.NoError(t, err)
	assert.Len(t, selected, 2)

	_, err = selectSuites(all, "fixture,smoke")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smoke")

	_, err = selectSuites(all, " , ")
	assert.Error(t, err)
}

func TestRunTestSuite_WritesLog(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	outputDir := t.TempDir()

	suite := TestSuite{
		Name:    "Fixture Site Tests",
		Command: []string{"sh", "-c", `echo "results=$TEST_RESULTS_DIR"; echo "$INSIDER_E2E_BROWSER_MARK"`},
		Env:     []string{"INSIDER_E2E_BROWSER_MARK=chrome"},
	}
	result := runTestSuite(suite, outputDir)

	assert.True(t, result.Success)
	assert.Equal(t, "Fixture Site Tests", result.Suite)
	assert.True(t, strings.HasPrefix(filepath.Base(filepath.Dir(result.LogFile)), "fixture_site_tests-"))

	data, err := os.ReadFile(result.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "results=")
	assert.Contains(t, string(data), "chrome")

	failing := runTestSuite(TestSuite{Name: "Broken", Command: []string{"sh", "-c", "exit 3"}}, outputDir)
	assert.False(t, failing.Success)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "live_site_tests", sanitizeFilename("Live Site Tests"))
	assert.Equal(t, "a_b_c_d", sanitizeFilename("a/b\\c:d"))
}

func TestResolveConfigPath(t *testing.T) {
	assert.Equal(t, "custom.toml", resolveConfigPath("custom.toml"))

	dir := t.TempDir()
	t.Chdir(dir)
	assert.Equal(t, "", resolveConfigPath(""))

	require.NoError(t, os.WriteFile(filepath.Join(dir, defaultConfigFile), []byte(""), 0644))
	assert.Equal(t, defaultConfigFile, resolveConfigPath(""))
}
