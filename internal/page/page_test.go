package page

import (
	"strings"
	"testing"
	"unicode/utf8"
)

const sampleHTML = `<html><head><title>Acme  Tools</title><script>var x = "jobs";</script></head>
<body>
<nav><a href="/careers">Careers</a> <a href="#top">Top</a> <a href="javascript:void(0)">Menu</a></nav>
<section><h2>Welder</h2><p>We are hiring.</p></section>
<a href="contact.html#form">Contact us</a>
<a href="https://jobs.lever.co/acme">Open roles</a>
</body></html>`

func TestParseResolvesLinks(t *testing.T) {
	s, err := Parse(sampleHTML, "https://acme.example/en/index.html", "")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if s.Title != "Acme Tools" {
		t.Fatalf("unexpected title %q", s.Title)
	}
	want := []string{
		"https://acme.example/careers",
		"https://acme.example/en/contact.html",
		"https://jobs.lever.co/acme",
	}
	if len(s.Links) != len(want) {
		t.Fatalf("expected %d links, got %+v", len(want), s.Links)
	}
	for i, w := range want {
		if s.Links[i].Href != w {
			t.Fatalf("link %d: expected %s, got %s", i, w, s.Links[i].Href)
		}
	}
	if s.Links[1].Text != "Contact us" {
		t.Fatalf("unexpected anchor text %q", s.Links[1].Text)
	}
}

func TestParseTextIsLowercasedAndScriptFree(t *testing.T) {
	s, err := Parse(sampleHTML, "https://acme.example/", "")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if !strings.Contains(s.Text, "we are hiring.") {
		t.Fatalf("expected body text, got %q", s.Text)
	}
	if strings.Contains(s.Text, "var x") {
		t.Fatalf("script content leaked into text: %q", s.Text)
	}
}

func TestParsePrefersVisibleText(t *testing.T) {
	s, err := Parse(sampleHTML, "https://acme.example/", "Rendered  TEXT")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if s.Text != "rendered text" {
		t.Fatalf("unexpected text %q", s.Text)
	}
}

func TestParseBlocksCarryHeadings(t *testing.T) {
	s, err := Parse(sampleHTML, "https://acme.example/", "")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	for _, b := range s.Blocks {
		if b.Heading == "Welder" && strings.Contains(b.Text, "We are hiring.") {
			return
		}
	}
	t.Fatalf("section block not found in %+v", s.Blocks)
}

func TestParseHonoursBaseHref(t *testing.T) {
	html := `<html><head><base href="https://cdn.example/site/"></head><body><a href="jobs">Jobs</a></body></html>`
	s, err := Parse(html, "https://acme.example/", "")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(s.Links) != 1 || s.Links[0].Href != "https://cdn.example/site/jobs" {
		t.Fatalf("unexpected links %+v", s.Links)
	}
}

func TestParseNestedBlocks(t *testing.T) {
	src := `<html><body><div class="list"><ul><li><h3>Backend</h3><p>Go</p></li><li>Frontend<br>React</li></ul></div></body></html>`
	s, err := Parse(src, "https://acme.example/", "")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if s.Text != "backend go frontend react" {
		t.Fatalf("block text must be space separated, got %q", s.Text)
	}
	if len(s.Blocks) != 3 {
		t.Fatalf("expected div and two li blocks, got %+v", s.Blocks)
	}
	if s.Blocks[0].Outer != nil {
		t.Fatalf("outermost block has no enclosing block, got %v", s.Blocks[0].Outer)
	}
	for _, b := range s.Blocks[1:] {
		if len(b.Outer) != 1 || b.Outer[0] != 0 {
			t.Fatalf("expected %q to sit inside block 0, got %v", b.Text, b.Outer)
		}
	}
	if s.Blocks[1].Text != "Backend Go" || s.Blocks[1].Heading != "Backend" {
		t.Fatalf("unexpected first item %+v", s.Blocks[1])
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	long := strings.Repeat("€", maxTextLen/3+1)
	s, err := Parse("<html><body></body></html>", "https://acme.example/", long)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(s.Text) > maxTextLen || !utf8.ValidString(s.Text) {
		t.Fatalf("text cut inside a rune: %d bytes, valid=%v", len(s.Text), utf8.ValidString(s.Text))
	}
	if got := truncate("añb", 2); got != "a" {
		t.Fatalf("truncate split a rune: %q", got)
	}
}
