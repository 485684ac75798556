package fixturesite

import (
	"strings"
	"unicode"
)

// Job is one open position served by the fixture site.
type Job struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Department string `json:"department"`
	Location   string `json:"location"`
}

// LeverPath is the site-relative path of the job's role page. The host
// segment keeps "lever.co" in the URL the role tab ends up on.
func (j Job) LeverPath() string {
	return "/jobs.lever.co/useinsider/" + j.ID
}

// DefaultJobs mixes Istanbul QA roles with roles the QA/Istanbul filters
// must hide.
func DefaultJobs() []Job {
	return []Job{
		{ID: "qa-1", Title: "Senior Software Quality Assurance Engineer", Department: "Quality Assurance", Location: "Istanbul, Turkey"},
		{ID: "qa-2", Title: "Software QA Tester - Insider Testinium Tech Hub", Department: "Quality Assurance", Location: "Istanbul, Turkey"},
		{ID: "qa-3", Title: "Quality Assurance Engineer", Department: "Quality Assurance", Location: "Istanbul, Turkey"},
		{ID: "qa-4", Title: "QA Engineer - Mobile", Department: "Quality Assurance", Location: "London, United Kingdom"},
		{ID: "dev-1", Title: "Senior Backend Engineer", Department: "Software Development", Location: "Istanbul, Turkey"},
		{ID: "bi-1", Title: "Data Analyst", Department: "Business Intelligence", Location: "Amsterdam, Netherlands"},
	}
}

// Slug turns a department name into its query form:
// "Quality Assurance" -> "qualityassurance".
func Slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FilterJobs keeps jobs whose department slug equals departmentSlug and
// whose location equals location. Empty arguments match everything.
func FilterJobs(jobs []Job, departmentSlug, location string) []Job {
	var out []Job
	for _, j := range jobs {
		if departmentSlug != "" && Slug(j.Department) != departmentSlug {
			continue
		}
		if location != "" && j.Location != location {
			continue
		}
		out = append(out, j)
	}
	return out
}

// Locations returns the distinct job locations in first-seen order.
func Locations(jobs []Job) []string {
	seen := make(map[string]bool)
	var out []string
	for _, j := range jobs {
		if !seen[j.Location] {
			seen[j.Location] = true
			out = append(out, j.Location)
		}
	}
	return out
}

// DepartmentName maps a department slug back to its display name.
func DepartmentName(jobs []Job, slug string) string {
	for _, j := range jobs {
		if Slug(j.Department) == slug {
			return j.Department
		}
	}
	return ""
}
