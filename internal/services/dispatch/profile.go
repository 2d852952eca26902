package dispatch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/courier/internal/target"
)

// extractProfileName pulls the recipient's display name out of the
// profile page markup. Extraction failures are not delivery failures;
// callers treat an empty result as "name unknown".
func extractProfileName(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	name := strings.TrimSpace(doc.Find(target.ProfileNameHeading).First().Text())
	if name == "" {
		// Fall back to the document title, which carries the profile
		// name ahead of the site suffix
		title := strings.TrimSpace(doc.Find("title").First().Text())
		if idx := strings.IndexAny(title, "|-"); idx > 0 {
			title = strings.TrimSpace(title[:idx])
		}
		name = title
	}
	return name
}
