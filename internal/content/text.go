package content

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	wordsPerMinute = 200
	maxSlugLength  = 80
)

var (
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	nonSlugRunes  = regexp.MustCompile(`[^a-z0-9]+`)
	markdownMarks = strings.NewReplacer("#", " ", "*", " ", "_", " ", "`", " ", ">", " ")
)

// Slugify folds accents, lowercases and joins the remaining words with dashes.
func Slugify(title string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, title)
	if err != nil {
		folded = title
	}
	slug := nonSlugRunes.ReplaceAllString(strings.ToLower(folded), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}

// WordCount counts words of body text, ignoring HTML tags and markdown markers.
func WordCount(body string) int {
	text := tagPattern.ReplaceAllString(body, " ")
	text = markdownMarks.Replace(text)
	return len(strings.Fields(text))
}

// ReadTime renders the reading-time label at 200 words per minute, never below one minute.
func ReadTime(body string) string {
	minutes := (WordCount(body) + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}
