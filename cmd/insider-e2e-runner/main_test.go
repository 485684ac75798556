package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_StopsFixtureSiteOnEarlyExit(t *testing.T) {
	t.Setenv("INSIDER_E2E_BROWSER", "")
	t.Setenv("TEST_RESULTS_DIR", t.TempDir())

	var out bytes.Buffer
	code := run([]string{
		"-skip-probe",
		"-suites=nightly",
		"-base-url=http://127.0.0.1:1/",
	}, &out)

	assert.Equal(t, 2, code)
	assert.Contains(t, out.String(), `unknown suite "nightly"`)
	assert.Contains(t, out.String(), "Fixture site stopped")
}

func TestRun_InvalidBrowserExitsBeforeStartingSite(t *testing.T) {
	var out bytes.Buffer
	code := run([]string{"-browser=safari"}, &out)

	assert.Equal(t, 2, code)
	assert.NotContains(t, out.String(), "Fixture site")
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, 0, run([]string{"-h"}, &out))
	assert.Contains(t, out.String(), "-suites")
}
