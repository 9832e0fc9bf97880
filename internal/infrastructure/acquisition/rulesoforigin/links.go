package rulesoforigin

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type documentLink struct {
	Title string
	URL   string
}

// extractPDFLinks pulls agreement-text links out of the rendered results
// fragment. Relative hrefs resolve against the compare page URL.
func extractPDFLinks(html, baseURL string) ([]documentLink, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse results html: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	seen := make(map[string]struct{})
	var links []documentLink
	doc.Find(`a[href$=".pdf"]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref).String()
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}

		title := strings.TrimSpace(sel.Text())
		if title == "" {
			title = strings.TrimSuffix(path.Base(ref.Path), ".pdf")
		}
		links = append(links, documentLink{Title: title, URL: abs})
	})
	return links, nil
}

// fileNameForLink derives a stable local filename from the link URL.
func fileNameForLink(link documentLink, index int) string {
	ref, err := url.Parse(link.URL)
	if err == nil {
		if name := sanitizeFileName(path.Base(ref.Path)); name != "" && name != "." {
			return name
		}
	}
	return fmt.Sprintf("agreement_%d.pdf", index+1)
}

func sanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out != "" && !strings.HasSuffix(strings.ToLower(out), ".pdf") {
		out += ".pdf"
	}
	return out
}
