//go:build e2e

package ui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/insider-e2e/internal/browser"
	"github.com/ternarybob/insider-e2e/internal/pages"
)

// The same scenarios against the local replica.

func TestFixture_OpenSite(t *testing.T) {
	utc := NewUITestContext(t, FixtureSite(t), ScenarioTimeout)
	defer utc.Cleanup()

	runOpenSite(utc)
}

func TestFixture_OpenCareersFromCompanyMenu(t *testing.T) {
	utc := NewUITestContext(t, FixtureSite(t), ScenarioTimeout)
	defer utc.Cleanup()

	runOpenCareersFromCompanyMenu(utc)
}

func TestFixture_QualityAssuranceJobSearchForIstanbulTurkey(t *testing.T) {
	utc := NewUITestContext(t, FixtureSite(t), ScenarioTimeout)
	defer utc.Cleanup()

	runQAJobSearchForIstanbul(utc)
}

func TestFixture_TitleIsStableAcrossReads(t *testing.T) {
	utc := NewUITestContext(t, FixtureSite(t), ScenarioTimeout)
	defer utc.Cleanup()

	page := pages.NewBasePage(utc.Session, pageOptions(utc)...)
	var titles []string
	for i := 0; i < 2; i++ {
		require.NoError(t, page.Open(utc.Ctx, utc.Site.BaseURL))
		for j := 0; j < 2; j++ {
			title, err := page.Title(utc.Ctx)
			require.NoError(t, err)
			titles = append(titles, title)
		}
	}
	for _, title := range titles {
		assert.Equal(t, titles[0], title)
	}
}

func TestFixture_MissingElementFailsAfterTimeout(t *testing.T) {
	utc := NewUITestContext(t, FixtureSite(t), ScenarioTimeout)
	defer utc.Cleanup()

	page := pages.NewBasePage(utc.Session, append(pageOptions(utc), pages.WithTimeout(pages.DefaultTimeout/5))...)
	require.NoError(t, page.Open(utc.Ctx, utc.Site.BaseURL))

	err := page.WaitClickableAndClick(utc.Ctx, browser.ID("no-such-element"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnsupportedBrowserFailsBeforeLaunch(t *testing.T) {
	opts := suiteConfig.BrowserOptions()
	opts.Browser = "safari"

	session, err := browser.New(context.Background(), opts)
	require.ErrorIs(t, err, browser.ErrUnsupportedBrowser)
	assert.Nil(t, session)
	assert.Contains(t, err.Error(), "'chrome' or 'firefox'")
}
