package discovery

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"expansion-evaluator/utils"
)

var (
	nextSelectors = []string{
		`a[rel="next"]`,
		`.pagination a:contains("Next")`,
		`.pagination a:contains(">")`,
		".pagination .next a",
		"a.next",
		`a[aria-label*="Next"]`,
	}

	loadMoreSelectors = []string{"[data-next-url]", "[data-next-page]", ".load-more[data-url]"}

	pageParam = regexp.MustCompile(`([?&]page=)(\d+)`)
)

// NextPageURL finds the URL of the page after currentURL: link rel=next,
// then pagination anchors, then load-more data attributes, and finally a
// synthesized page query parameter.
func NextPageURL(doc *goquery.Document, currentURL string) string {
	if doc != nil {
		if href, ok := doc.Find(`link[rel="next"]`).First().Attr("href"); ok {
			if next := utils.ResolveURL(currentURL, href); next != "" {
				return next
			}
		}

		for _, selector := range nextSelectors {
			if href, ok := doc.Find(selector).First().Attr("href"); ok {
				if next := utils.ResolveURL(currentURL, href); next != "" {
					return next
				}
			}
		}

		for _, selector := range loadMoreSelectors {
			el := doc.Find(selector).First()
			if el.Length() == 0 {
				continue
			}
			for _, attr := range []string{"data-next-url", "data-next-page", "data-url"} {
				if v, ok := el.Attr(attr); ok && strings.TrimSpace(v) != "" {
					if next := utils.ResolveURL(currentURL, v); next != "" {
						return next
					}
				}
			}
		}
	}

	if m := pageParam.FindStringSubmatchIndex(currentURL); m != nil {
		n, err := strconv.Atoi(currentURL[m[4]:m[5]])
		if err != nil {
			return ""
		}
		return currentURL[:m[4]] + strconv.Itoa(n+1) + currentURL[m[5]:]
	}
	if strings.Contains(currentURL, "?") {
		return currentURL + "&page=2"
	}
	return currentURL + "?page=2"
}
