package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobBoardURLs(t *testing.T) {
	urls := JobBoardURLs("Senior Go Developer", "New York")

	assert.Equal(t, "https://www.linkedin.com/jobs/search/?keywords=Senior+Go+Developer&location=New+York", urls.LinkedIn)
	assert.Equal(t, "https://www.indeed.com/jobs?l=New+York&q=Senior+Go+Developer", urls.Indeed)
	assert.Equal(t, "https://www.glassdoor.com/Job/jobs.htm?locKeyword=New+York&sc.keyword=Senior+Go+Developer", urls.Glassdoor)
	assert.Equal(t, "https://www.naukri.com/senior-go-developer-jobs-in-new-york", urls.Naukri)
	assert.Equal(t, "https://www.google.com/search?ibp=htl%3Bjobs&q=Senior+Go+Developer+jobs+in+New+York", urls.Google)
}

func TestJobBoardURLsWithoutLocation(t *testing.T) {
	urls := JobBoardURLs("C++ Engineer", "")

	assert.Equal(t, "https://www.naukri.com/c-engineer-jobs", urls.Naukri)
	assert.Equal(t, "https://www.indeed.com/jobs?q=C%2B%2B+Engineer", urls.Indeed)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "data-analyst", slug("  Data   Analyst! "))
	assert.Equal(t, "", slug("!!!"))
}
