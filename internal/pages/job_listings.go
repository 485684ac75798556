package pages

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/insider-e2e/internal/browser"
)

const (
	QualityAssurance = "Quality Assurance"
	IstanbulTurkey   = "Istanbul, Turkey"

	// LeverWindowTimeout bounds the wait for the role's new tab.
	LeverWindowTimeout = 10 * time.Second
	// LeverHost must appear in the URL of a role's detail page.
	LeverHost = "lever.co"
)

var (
	SeeAllQAJobsButton = browser.XPath(`//div[@class="button-group d-flex flex-row"]//a[text()="See all QA jobs"]`)
	LocationFilter     = browser.ID("select2-filter-by-location-container")
	DepartmentFilterQA = browser.XPath(`//span[@id="select2-filter-by-department-container" and text()="Quality Assurance"]`)
	IstanbulOption     = browser.XPath(`//li[contains(text(),'Istanbul, Turkey')]`)
	JobResults         = browser.ClassName("position-list-item")
	TotalResults       = browser.ClassName("totalResult")

	// Scoped to a single JobResults element.
	JobTitle       = browser.ClassName("position-title")
	JobDepartment  = browser.ClassName("position-department")
	JobLocation    = browser.ClassName("position-location")
	ViewRoleButton = browser.XPath(`.//a[contains(@class, "btn") and text()="View Role"]`)
)

// Job is one row of the open positions list.
type Job struct {
	Title      string
	Department string
	Location   string
}

// JobListingsPage drives the QA careers page and its open positions list.
type JobListingsPage struct {
	*BasePage
}

func NewJobListingsPage(session browser.Session, opts ...Option) *JobListingsPage {
	return &JobListingsPage{BasePage: NewBasePage(session, opts...)}
}

// OpenQAJobs clicks "See all QA jobs" and waits until the department filter
// shows Quality Assurance, by which time the location options are loaded.
func (p *JobListingsPage) OpenQAJobs(ctx context.Context) error {
	if err := p.WaitClickableAndClick(ctx, SeeAllQAJobsButton); err != nil {
		return err
	}
	_, err := p.WaitVisible(ctx, DepartmentFilterQA)
	return err
}

// FilterByIstanbulLocation opens the location filter and picks Istanbul, Turkey.
func (p *JobListingsPage) FilterByIstanbulLocation(ctx context.Context) error {
	if err := p.WaitVisibleAndClick(ctx, LocationFilter); err != nil {
		return err
	}
	return p.WaitVisibleAndClick(ctx, IstanbulOption)
}

// TotalJobResults returns the value of the result counter.
func (p *JobListingsPage) TotalJobResults(ctx context.Context) (int, error) {
	text, err := p.WaitAndGetText(ctx, TotalResults)
	if err != nil {
		return 0, err
	}
	total, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("result counter %q is not a number: %w", text, err)
	}
	return total, nil
}

// Jobs waits for the listed positions and returns them.
func (p *JobListingsPage) Jobs(ctx context.Context) ([]browser.Element, error) {
	return p.WaitForAll(ctx, JobResults)
}

// ReadJob extracts title, department and location from a listed position.
func (p *JobListingsPage) ReadJob(ctx context.Context, job browser.Element) (Job, error) {
	var j Job
	fields := []struct {
		loc  browser.Locator
		dest *string
	}{
		{JobTitle, &j.Title},
		{JobDepartment, &j.Department},
		{JobLocation, &j.Location},
	}
	for _, f := range fields {
		text, err := childText(ctx, job, f.loc)
		if err != nil {
			return Job{}, err
		}
		*f.dest = text
	}
	return j, nil
}

// OpenRole clicks the position's View Role button, which opens the role in
// a new tab.
func (p *JobListingsPage) OpenRole(ctx context.Context, job browser.Element) error {
	btn, err := job.Find(ctx, ViewRoleButton)
	if err != nil {
		return err
	}
	return click(ctx, btn, ViewRoleButton)
}

// ValidateJobDetails reports whether the position's department and location
// equal the expected values exactly. Mismatches and lookup failures are
// logged and reported as false.
func (p *JobListingsPage) ValidateJobDetails(ctx context.Context, job browser.Element, expectedDepartment, expectedLocation string) bool {
	department, err := childText(ctx, job, JobDepartment)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Could not read job department")
		return false
	}
	location, err := childText(ctx, job, JobLocation)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Could not read job location")
		return false
	}

	if department != expectedDepartment {
		p.logger.Warn().
			Str("actual", department).
			Str("expected", expectedDepartment).
			Msg("Job department does not match")
		return false
	}
	if location != expectedLocation {
		p.logger.Warn().
			Str("actual", location).
			Str("expected", expectedLocation).
			Msg("Job location does not match")
		return false
	}
	return true
}

// ValidateLeverPageOfJob switches to the tab opened by OpenRole and checks
// that it is the role's Lever page: the URL contains lever.co and the title
// contains jobTitle. The tab is closed and focus returned to the listing
// whatever the outcome.
func (p *JobListingsPage) ValidateLeverPageOfJob(ctx context.Context, jobTitle string) bool {
	waitCtx, cancel := context.WithTimeout(ctx, LeverWindowTimeout)
	handles, err := p.session.WaitForWindows(waitCtx, 2)
	cancel()
	if err != nil {
		p.logger.Warn().Dur("timeout", LeverWindowTimeout).Err(err).Msg("Role page did not open in a new tab")
		return false
	}

	current, err := p.session.CurrentWindow(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Could not read current window")
		return false
	}
	var roleTab string
	for _, h := range handles {
		if h != current {
			roleTab = h
			break
		}
	}
	if roleTab == "" {
		p.logger.Warn().Strs("handles", handles).Msg("No role tab besides the listing")
		return false
	}

	if err := p.session.SwitchWindow(ctx, roleTab); err != nil {
		p.logger.Warn().Err(err).Msg("Could not switch to role tab")
		return false
	}
	defer func() {
		if err := p.session.CloseWindow(ctx); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to close role tab")
		}
		if err := p.session.SwitchWindow(ctx, current); err != nil {
			p.logger.Warn().Err(err).Msg("Failed to switch back to listing")
		}
	}()

	p.WaitForHeader(ctx)

	url, err := p.session.CurrentURL(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Could not read role page URL")
		return false
	}
	if !strings.Contains(url, LeverHost) {
		p.logger.Warn().Str("url", url).Msg("Redirected URL is not lever page")
		return false
	}

	title, err := p.session.Title(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Could not read role page title")
		return false
	}
	if !strings.Contains(title, jobTitle) {
		p.logger.Warn().
			Str("job_title", jobTitle).
			Str("page_title", title).
			Msg("Job title does not match on Lever page")
		return false
	}
	return true
}

// Snapshot parses the current page source into the listed jobs.
func (p *JobListingsPage) Snapshot(ctx context.Context) ([]Job, error) {
	src, err := p.session.PageSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page source: %w", err)
	}
	return ParseJobListing(src)
}

func childText(ctx context.Context, parent browser.Element, loc browser.Locator) (string, error) {
	el, err := parent.Find(ctx, loc)
	if err != nil {
		return "", err
	}
	text, err := el.Text(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read text of %s: %w", loc, err)
	}
	return text, nil
}
