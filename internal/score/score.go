// Package score computes job signals from a page snapshot.
//
// All rules are additive with fixed weights. The main page and the career
// pages share the same keyword pass and only differ in the term lists and
// the weights they pass in.
package score

import (
	"regexp"
	"strings"

	"github.com/AlfredBerg/job-scout/internal/model"
	"github.com/AlfredBerg/job-scout/internal/page"
)

const (
	WebsiteKeywordWeight     = 5
	UserKeywordWeight        = 20
	JobLinksWeight           = 30
	EmailWeight              = 10
	ContactPageWeight        = 5
	JobSpecificKeywordWeight = 40
	JobBoardLinkWeight       = 25

	JobBoardBoostCap   = 50
	JobBoardFloor      = 75
	PerfectMatchScore  = 100
	NewKeywordBase     = 50
	NewKeywordStep     = 15
	NewKeywordBoostCap = 30

	MaxCareerLinks = 3
)

var DefaultWebsiteKeywords = []string{
	"job", "jobs", "career", "careers", "work", "vacancy", "vacancies",
	"hire", "hiring", "apply", "application", "position", "spontaneous",
	"opportunity", "employment", "recruitment", "join us", "join our team",
}

var jobPathFragments = []string{
	"/jobs", "/careers", "/career", "/join-us", "/join", "/work-with-us",
	"/vacancy", "/vacancies", "/positions", "/opportunities", "/about/careers",
	"/about/jobs", "/company/careers", "/company/jobs", "/jobs-and-careers",
}

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// Signals is the fragment of a CrawlResult that the scorer is responsible for.
type Signals struct {
	JobKeywords  []string
	ContactEmail string
	ContactPage  string
	JobPages     []model.JobPage
	// CareerLinks are the job links to follow up, in document order.
	CareerLinks []string
	Score       int
}

// Apply copies the signals into r.
func (s Signals) Apply(r *model.CrawlResult) {
	r.JobKeywords = append(r.JobKeywords, s.JobKeywords...)
	r.ContactEmail = s.ContactEmail
	r.ContactPage = s.ContactPage
	r.JobPages = append(r.JobPages, s.JobPages...)
	r.Score = s.Score
}

type Scorer struct {
	WebsiteKeywords []string
	UserKeywords    []string
}

// New normalises the keyword lists of cfg. Missing website keywords fall back
// to DefaultWebsiteKeywords.
func New(cfg model.SearchConfiguration) Scorer {
	website := Normalize(cfg.WebsiteKeywords)
	if len(website) == 0 {
		website = Normalize(DefaultWebsiteKeywords)
	}
	return Scorer{
		WebsiteKeywords: website,
		UserKeywords:    Normalize(cfg.UserKeywords),
	}
}

// Score runs rules 1 to 6 over one page.
func (sc Scorer) Score(p *page.Snapshot) Signals {
	var s Signals
	if p == nil {
		return s
	}
	seen := map[string]bool{}

	found, delta := KeywordPass(p.Text, sc.WebsiteKeywords, WebsiteKeywordWeight)
	s.JobKeywords = appendUnique(s.JobKeywords, seen, found...)
	s.Score += delta

	found, delta = KeywordPass(p.Text, sc.UserKeywords, UserKeywordWeight)
	s.JobKeywords = appendUnique(s.JobKeywords, seen, found...)
	s.Score += delta

	jobLinks := sc.JobLinks(p.Links)
	if len(jobLinks) > 0 {
		s.Score += JobLinksWeight
		pages := map[string]bool{}
		for _, l := range jobLinks {
			if pages[l.Href] {
				continue
			}
			pages[l.Href] = true
			s.JobPages = append(s.JobPages, model.JobPage{URL: l.Href, Title: l.Text})
			if len(s.CareerLinks) < MaxCareerLinks {
				s.CareerLinks = append(s.CareerLinks, l.Href)
			}
		}
		if s.ContactPage == "" {
			s.ContactPage = jobLinks[0].Href
		}
	}

	if s.ContactEmail == "" {
		if m := emailRe.FindString(p.Text); m != "" {
			s.ContactEmail = m
			s.Score += EmailWeight
		}
	}

	if s.ContactEmail == "" && s.ContactPage == "" {
		if l, ok := contactLink(p.Links); ok {
			s.ContactPage = l.Href
			s.Score += ContactPageWeight
		}
	}

	if s.Score == 0 && (len(s.JobKeywords) > 0 || len(s.JobPages) > 0) {
		s.Score = 1
	}
	return s
}

// JobLinks returns the links that look like they lead to open positions.
func (sc Scorer) JobLinks(links []page.Link) []page.Link {
	var out []page.Link
	for _, l := range links {
		if IsJobLink(l, sc.WebsiteKeywords) {
			out = append(out, l)
		}
	}
	return out
}

func IsJobLink(l page.Link, websiteKeywords []string) bool {
	text := strings.ToLower(l.Text)
	for _, k := range websiteKeywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	path := strings.ToLower(linkPath(l.Href))
	for _, f := range jobPathFragments {
		if strings.Contains(path, f) {
			return true
		}
	}
	return false
}

func contactLink(links []page.Link) (page.Link, bool) {
	for _, l := range links {
		if strings.Contains(strings.ToLower(l.Text), "contact") || strings.Contains(strings.ToLower(l.Href), "/contact") {
			return l, true
		}
	}
	return page.Link{}, false
}

// KeywordPass finds the distinct terms present in text and scores each of them
// once with weight, however often it repeats.
func KeywordPass(text string, terms []string, weight int) (found []string, delta int) {
	text = strings.ToLower(text)
	seen := map[string]bool{}
	for _, t := range terms {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		if strings.Contains(text, t) {
			found = append(found, t)
			delta += weight
		}
	}
	return found, delta
}

// Normalize lowercases and trims terms, dropping empty ones and duplicates.
func Normalize(terms []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func appendUnique(dst []string, seen map[string]bool, terms ...string) []string {
	for _, t := range terms {
		if seen[t] {
			continue
		}
		seen[t] = true
		dst = append(dst, t)
	}
	return dst
}

// AppendUnique appends the terms of src missing from dst, keeping order.
func AppendUnique(dst []string, src ...string) []string {
	seen := make(map[string]bool, len(dst))
	for _, t := range dst {
		seen[t] = true
	}
	return appendUnique(dst, seen, src...)
}
