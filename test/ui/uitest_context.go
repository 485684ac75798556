//go:build e2e

// uitest_context.go - Shared browser test context for the Insider scenarios.
// NOTE: This is NOT a test file - it contains shared test infrastructure.

package ui

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/insider-e2e/internal/artifacts"
	"github.com/ternarybob/insider-e2e/internal/browser"
	"github.com/ternarybob/insider-e2e/internal/common"
	"github.com/ternarybob/insider-e2e/internal/fixturesite"
)

const (
	// ScenarioTimeout bounds a whole scenario, browser launch included.
	ScenarioTimeout = 5 * time.Minute

	// artifactTimeout bounds failure capture, which runs after the
	// scenario context may have expired.
	artifactTimeout = 15 * time.Second
)

// Site is the set of entry URLs a scenario starts from.
type Site struct {
	BaseURL      string
	QACareersURL string
	// SettleDelay is how long the job list gets to finish re-rendering
	// after a filter before the counter is read.
	SettleDelay time.Duration
	// Fixture is set for the local replica, whose page source must agree
	// exactly with the elements the page objects walk.
	Fixture bool
}

// LiveSite returns the configured live site.
func LiveSite() Site {
	return Site{
		BaseURL:      suiteConfig.Site.BaseURL,
		QACareersURL: suiteConfig.Site.QACareersURL,
		SettleDelay:  5 * time.Second,
	}
}

// FixtureSite starts the local replica for the duration of the test.
func FixtureSite(t *testing.T) Site {
	t.Helper()

	srv, err := fixturesite.NewServer(fixturesite.DefaultConfig(), common.GetLogger())
	if err != nil {
		t.Fatalf("Failed to create fixture site: %v", err)
	}
	if _, err := srv.Start(); err != nil {
		t.Fatalf("Failed to start fixture site: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Logf("Warning: fixture site shutdown returned: %v", err)
		}
	})

	return Site{
		BaseURL:      srv.URL(),
		QACareersURL: srv.QACareersURL(),
		SettleDelay:  500 * time.Millisecond,
		Fixture:      true,
	}
}

// UITestContext holds shared state for one scenario: a maximized browser
// session and a logger tagged with the session's correlation id.
type UITestContext struct {
	T       *testing.T
	Ctx     context.Context
	Site    Site
	Session browser.Session
	Logger  arbor.ILogger

	// Internal cleanup functions
	cleanup []func()
}

// NewUITestContext launches the configured browser for site.
func NewUITestContext(t *testing.T, site Site, timeout time.Duration) *UITestContext {
	logger, correlationID := common.NewRunLogger()

	ctx, cancelTimeout := context.WithTimeout(context.Background(), timeout)

	opts := suiteConfig.BrowserOptions()
	opts.Logger = logger
	session, err := browser.New(ctx, opts)
	if err != nil {
		cancelTimeout()
		t.Fatalf("Failed to start %s: %v", opts.Browser, err)
	}

	if err := session.Maximize(ctx); err != nil {
		logger.Warn().Err(err).Msg("Failed to maximize browser window")
	}

	logger.Info().
		Str("test", t.Name()).
		Str("correlation_id", correlationID).
		Str("base_url", site.BaseURL).
		Msg("Scenario started")

	utc := &UITestContext{
		T:       t,
		Ctx:     ctx,
		Site:    site,
		Session: session,
		Logger:  logger,
		cleanup: make([]func(), 0),
	}

	// Add cleanup functions in reverse order (LIFO)
	utc.cleanup = append(utc.cleanup, func() { cancelTimeout() })
	utc.cleanup = append(utc.cleanup, func() {
		if err := session.Quit(); err != nil {
			t.Logf("Warning: browser quit returned: %v", err)
		}
	})
	utc.cleanup = append(utc.cleanup, utc.captureFailure)

	return utc
}

// Cleanup releases all resources. Call this with defer.
func (utc *UITestContext) Cleanup() {
	if utc.T.Failed() {
		utc.Logger.Warn().Str("test", utc.T.Name()).Msg("=== TEST RESULT: FAIL ===")
	} else {
		utc.Logger.Info().Str("test", utc.T.Name()).Msg("=== TEST RESULT: PASS ===")
	}

	// Execute cleanup functions in reverse order
	for i := len(utc.cleanup) - 1; i >= 0; i-- {
		utc.cleanup[i]()
	}
}

// captureFailure stores a screenshot and the page source of a failed test.
func (utc *UITestContext) captureFailure() {
	if !utc.T.Failed() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), artifactTimeout)
	defer cancel()

	saved, err := artifacts.SaveFailure(ctx, utc.Session, suiteConfig.Output.ScreenshotDir, utc.T.Name(), time.Now())
	if saved.Screenshot != "" {
		utc.T.Logf("Screenshot of the error saved to %s", saved.Screenshot)
	}
	if saved.PageSource != "" {
		utc.T.Logf("Page source of the error saved to %s", saved.PageSource)
	}
	if err != nil {
		utc.T.Logf("Warning: failure artifacts incomplete: %v", err)
	}
}
