package pages

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseJobListing extracts the open positions from a job list page source.
// Whitespace inside each field is collapsed to single spaces.
func ParseJobListing(html string) ([]Job, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse job listing: %w", err)
	}

	var jobs []Job
	doc.Find(".position-list-item").Each(func(_ int, s *goquery.Selection) {
		jobs = append(jobs, Job{
			Title:      collapse(s.Find(".position-title").First().Text()),
			Department: collapse(s.Find(".position-department").First().Text()),
			Location:   collapse(s.Find(".position-location").First().Text()),
		})
	})
	return jobs, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
