package settings

import (
	"strings"
	"unicode/utf8"
)

// SEOCheck is one line of the SEO score breakdown.
type SEOCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Hint   string `json:"hint"`
}

// SEOReport is the result of SEOScore.
type SEOReport struct {
	Score  int        `json:"score"`
	Checks []SEOCheck `json:"checks"`
}

// SEOScore rates the SEO settings from 0 to 100; each check weighs the same.
func SEOScore(seo SEO) SEOReport {
	title := utf8.RuneCountInString(strings.TrimSpace(seo.MetaTitle))
	desc := utf8.RuneCountInString(strings.TrimSpace(seo.MetaDescription))

	keywords := 0
	for _, k := range seo.Keywords {
		if strings.TrimSpace(k) != "" {
			keywords++
		}
	}

	checks := []SEOCheck{
		{
			Name:   "meta_title",
			Passed: title >= 30 && title <= 60,
			Hint:   "Use a meta title between 30 and 60 characters.",
		},
		{
			Name:   "meta_description",
			Passed: desc >= 120 && desc <= 160,
			Hint:   "Use a meta description between 120 and 160 characters.",
		},
		{
			Name:   "keywords",
			Passed: keywords >= 3,
			Hint:   "Add at least 3 keywords.",
		},
		{
			Name:   "og_image",
			Passed: strings.TrimSpace(seo.OGImage) != "",
			Hint:   "Set an Open Graph image for link previews.",
		},
		{
			Name:   "canonical_url",
			Passed: strings.TrimSpace(seo.CanonicalURL) != "",
			Hint:   "Set the canonical URL of the site.",
		},
		{
			Name:   "robots_index",
			Passed: seo.RobotsIndex,
			Hint:   "Allow search engines to index the site.",
		},
	}

	passed := 0
	for _, c := range checks {
		if c.Passed {
			passed++
		}
	}
	return SEOReport{Score: passed * 100 / len(checks), Checks: checks}
}
