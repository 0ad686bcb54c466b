package mailbody

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
)

// DefaultLinkMarker identifies per-document downloads of the e-filing portal.
const DefaultLinkMarker = "document.nefdd?nai="

type LinkExtractor struct {
	marker string
}

func NewLinkExtractor(marker string) *LinkExtractor {
	if strings.TrimSpace(marker) == "" {
		marker = DefaultLinkMarker
	}
	return &LinkExtractor{marker: marker}
}

// DocumentLinks returns the individual document links of a service email in
// body order. The portal always lists the bundled ZIP download first, so the
// first match is dropped, and a lone match is the bundle itself.
func (e *LinkExtractor) DocumentLinks(bodyHTML string) ([]domain.DocumentLink, error) {
	if strings.TrimSpace(bodyHTML) == "" {
		return nil, nil
	}
	root, err := html.Parse(strings.NewReader(bodyHTML))
	if err != nil {
		return nil, fmt.Errorf("parse email html: %w", err)
	}

	var links []domain.DocumentLink
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if href := attr(n, "href"); strings.Contains(href, e.marker) {
				links = append(links, domain.DocumentLink{
					Title: linkTitle(n),
					URL:   strings.ReplaceAll(href, "&amp;", "&"),
				})
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	if len(links) <= 1 {
		return nil, nil
	}
	return links[1:], nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func linkTitle(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			collect(child)
		}
	}
	collect(n)
	title := strings.Join(strings.Fields(b.String()), " ")
	if strings.HasSuffix(strings.ToLower(title), ".pdf") {
		title = strings.TrimSpace(title[:len(title)-4])
	}
	return title
}
