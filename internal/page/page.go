// Package page turns rendered HTML into the plain data the scorers work on.
package page

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Link is an anchor with its href already resolved to an absolute URL.
type Link struct {
	Href string
	Text string
}

// Block is a DOM region that may hold a single job listing.
type Block struct {
	Text    string
	Heading string
	// Outer holds the indexes of the blocks that enclose this one, nearest
	// first.
	Outer []int
}

// Snapshot is what a loaded tab looks like to the scorers.
type Snapshot struct {
	URL    string
	Title  string
	Text   string // lowercased
	Links  []Link
	Blocks []Block
}

const maxTextLen = 200_000

var blockSelector = "article, section, li, div, tr"

var headingSelector = "h1, h2, h3, h4, h5, h6, .title, .job-title, [class*=title], strong"

// breakTags end a run of text when text is read out of the DOM.
var breakTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "section": true, "table": true, "td": true, "th": true, "tr": true,
	"ul": true,
}

// Parse builds a snapshot from the HTML of a document located at docURL. The
// visible text reported by the browser is preferred over the text goquery
// derives, when it is given.
func Parse(src, docURL, visibleText string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(docURL)
	if err != nil {
		return nil, err
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = b
		}
	}

	doc.Find("script, style, noscript, template").Remove()

	s := &Snapshot{
		URL:   docURL,
		Title: CleanText(doc.Find("title").First().Text()),
	}

	text := visibleText
	if strings.TrimSpace(text) == "" {
		text = Text(doc.Find("body"))
	}
	s.Text = truncate(strings.ToLower(CleanText(text)), maxTextLen)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs := Resolve(base, href)
		if abs == "" {
			return
		}
		s.Links = append(s.Links, Link{Href: abs, Text: CleanText(a.Text())})
	})

	// Selections come back in document order, so every enclosing block is
	// indexed before the blocks inside it.
	index := make(map[*html.Node]int)
	doc.Find(blockSelector).Each(func(_ int, sel *goquery.Selection) {
		t := CleanText(Text(sel))
		if t == "" {
			return
		}
		var outer []int
		for n := sel.Get(0).Parent; n != nil; n = n.Parent {
			if i, ok := index[n]; ok {
				outer = append(outer, i)
			}
		}
		index[sel.Get(0)] = len(s.Blocks)
		s.Blocks = append(s.Blocks, Block{
			Text:    t,
			Heading: CleanText(Text(sel.Find(headingSelector).First())),
			Outer:   outer,
		})
	})

	return s, nil
}

// Resolve makes href absolute against base. Links that cannot be followed
// (fragments, javascript:, tel:) resolve to "".
func Resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	low := strings.ToLower(href)
	if strings.HasPrefix(low, "javascript:") || strings.HasPrefix(low, "tel:") || strings.HasPrefix(low, "data:") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	u.Fragment = ""
	return u.String()
}

// Text is the text of sel with block level elements kept apart by a space,
// unlike goquery's Text which runs them together.
func Text(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeText(&b, n)
	}
	return b.String()
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	}
	brk := n.Type == html.ElementNode && breakTags[n.Data]
	if brk {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if brk {
		b.WriteByte(' ')
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
