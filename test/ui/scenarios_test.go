//go:build e2e

package ui

import (
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/insider-e2e/internal/pages"
)

const (
	HomeTitle    = "#1 Leader in Individualized, Cross-Channel CX — Insider"
	CareersTitle = "Ready to disrupt? | Insider Careers"
)

// CareersSections are headings the careers page must show.
var CareersSections = []string{"Our Locations", "Find your calling", "Life at Insider"}

func pageOptions(utc *UITestContext) []pages.Option {
	return []pages.Option{pages.WithLogger(utc.Logger)}
}

// runOpenSite opens the home page and checks its title.
func runOpenSite(utc *UITestContext) {
	t := utc.T
	page := pages.NewBasePage(utc.Session, pageOptions(utc)...)

	require.NoError(t, page.Open(utc.Ctx, utc.Site.BaseURL))
	title, err := page.Title(utc.Ctx)
	require.NoError(t, err)
	assert.Contains(t, title, HomeTitle, "Homepage title does not match.")
}

// runOpenCareersFromCompanyMenu reaches the careers page through the
// Company menu and checks its title and section headings.
func runOpenCareersFromCompanyMenu(utc *UITestContext) {
	t := utc.T
	page := pages.NewCareersPage(utc.Session, pageOptions(utc)...)

	require.NoError(t, page.Open(utc.Ctx, utc.Site.BaseURL))
	require.NoError(t, page.NavigateToCareers(utc.Ctx))

	title, err := page.Title(utc.Ctx)
	require.NoError(t, err)
	assert.Contains(t, title, CareersTitle)

	headings, err := page.Headings(utc.Ctx)
	require.NoError(t, err)
	for _, section := range CareersSections {
		assert.Contains(t, headings, section)
	}
}

// runQAJobSearchForIstanbul filters the QA positions by Istanbul and checks
// every listed role, including its Lever page.
func runQAJobSearchForIstanbul(utc *UITestContext) {
	t := utc.T
	ctx := utc.Ctx
	page := pages.NewJobListingsPage(utc.Session, pageOptions(utc)...)

	require.NoError(t, page.Open(ctx, utc.Site.QACareersURL))
	require.NoError(t, page.OpenQAJobs(ctx))
	require.NoError(t, page.FilterByIstanbulLocation(ctx))

	page.ScrollDown(ctx, 600)
	_, err := page.WaitVisible(ctx, pages.TotalResults)
	require.NoError(t, err)
	time.Sleep(utc.Site.SettleDelay)

	total, err := page.TotalJobResults(ctx)
	require.NoError(t, err)
	require.Greater(t, total, 0, "No jobs found after filtering.")

	jobs, err := page.Jobs(ctx)
	require.NoError(t, err)

	snapshot, err := page.Snapshot(ctx)
	require.NoError(t, err)
	utc.Logger.Info().
		Int("counter", total).
		Int("elements", len(jobs)).
		Int("snapshot", len(snapshot)).
		Msg("Filtered job list")
	if utc.Site.Fixture {
		assert.Len(t, snapshot, len(jobs))
		assert.Equal(t, total, len(jobs))
	}

	for i, job := range jobs {
		require.True(t, page.ValidateJobDetails(ctx, job, pages.QualityAssurance, pages.IstanbulTurkey),
			"job %d is not a Quality Assurance role in Istanbul", i)

		details, err := page.ReadJob(ctx, job)
		require.NoError(t, err)

		require.NoError(t, page.OpenRole(ctx, job))
		require.True(t, page.ValidateLeverPageOfJob(ctx, details.Title),
			"Lever page of %q did not validate", details.Title)
	}
}
