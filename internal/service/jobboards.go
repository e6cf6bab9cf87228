package service

import (
	"net/url"
	"strings"

	"github.com/digkill/QuickAI/internal/models"
)

// JobBoardURLs builds the search links for title and location on each supported board.
// It depends on nothing the model returns.
func JobBoardURLs(title, location string) models.JobSearchURLs {
	title = strings.TrimSpace(title)
	location = strings.TrimSpace(location)

	linkedin := url.Values{"keywords": {title}}
	indeed := url.Values{"q": {title}}
	glassdoor := url.Values{"sc.keyword": {title}}
	googleQuery := title + " jobs"
	naukri := slug(title) + "-jobs"
	if location != "" {
		linkedin.Set("location", location)
		indeed.Set("l", location)
		glassdoor.Set("locKeyword", location)
		googleQuery += " in " + location
		naukri += "-in-" + slug(location)
	}
	google := url.Values{"q": {googleQuery}, "ibp": {"htl;jobs"}}

	return models.JobSearchURLs{
		LinkedIn:  "https://www.linkedin.com/jobs/search/?" + linkedin.Encode(),
		Indeed:    "https://www.indeed.com/jobs?" + indeed.Encode(),
		Glassdoor: "https://www.glassdoor.com/Job/jobs.htm?" + glassdoor.Encode(),
		Naukri:    "https://www.naukri.com/" + naukri,
		Google:    "https://www.google.com/search?" + google.Encode(),
	}
}

// SearchURL is the fallback link for a resource the model named without a URL.
func SearchURL(query string) string {
	return "https://www.google.com/search?" + url.Values{"q": {strings.TrimSpace(query)}}.Encode()
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
