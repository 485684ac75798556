package fixturesite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	assert.Equal(t, "qualityassurance", Slug("Quality Assurance"))
	assert.Equal(t, "softwaredevelopment", Slug(" Software-Development "))
}

func TestFilterJobs(t *testing.T) {
	jobs := DefaultJobs()

	assert.Len(t, FilterJobs(jobs, "", ""), len(jobs))
	assert.Len(t, FilterJobs(jobs, "qualityassurance", ""), 4)

	istanbulQA := FilterJobs(jobs, "qualityassurance", "Istanbul, Turkey")
	assert.Len(t, istanbulQA, 3)
	for _, j := range istanbulQA {
		assert.Equal(t, "Quality Assurance", j.Department)
		assert.Equal(t, "Istanbul, Turkey", j.Location)
	}

	assert.Empty(t, FilterJobs(jobs, "marketing", ""))
}

func TestLocationsAndDepartmentName(t *testing.T) {
	jobs := DefaultJobs()

	assert.Equal(t, []string{"Istanbul, Turkey", "London, United Kingdom", "Amsterdam, Netherlands"}, Locations(jobs))
	assert.Equal(t, "Quality Assurance", DepartmentName(jobs, "qualityassurance"))
	assert.Empty(t, DepartmentName(jobs, "unknown"))
}

func TestLeverPath(t *testing.T) {
	assert.Equal(t, "/jobs.lever.co/useinsider/qa-1", Job{ID: "qa-1"}.LeverPath())
}
