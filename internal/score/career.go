package score

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/AlfredBerg/job-scout/internal/model"
	"github.com/AlfredBerg/job-scout/internal/page"
)

const (
	MaxListingBlocks = 5
	minListingLen    = 100
	snippetLen       = 200
	FallbackTitle    = "Job opening"
)

type JobBoard struct {
	Name   string
	Domain string
}

// JobBoards are matched by substring against absolute link URLs.
var JobBoards = []JobBoard{
	{Name: "BambooHR", Domain: "bamboohr.com"},
	{Name: "Lever", Domain: "lever.co"},
	{Name: "Greenhouse", Domain: "greenhouse.io"},
	{Name: "Workday", Domain: "workday.com"},
	{Name: "Workday Jobs", Domain: "myworkdayjobs.com"},
	{Name: "Taleo", Domain: "taleo.net"},
	{Name: "SmartRecruiters", Domain: "smartrecruiters.com"},
	{Name: "Jobvite", Domain: "jobvite.com"},
	{Name: "ApplyToJob", Domain: "applytojob.com"},
	{Name: "Recruitee", Domain: "recruitee.com"},
	{Name: "ApplicantStack", Domain: "applicantstack.com"},
}

var titleRe = regexp.MustCompile(`(?i)(?:job|position|role|vacancy|opening):\s*([^\n|.]{2,80})`)

// Listings extracts job listing blocks: regions mentioning both a website
// keyword and a user keyword. Only the first maxBlocks candidates are looked at.
func (sc Scorer) Listings(p *page.Snapshot, maxBlocks int) []model.JobListing {
	if p == nil || len(sc.UserKeywords) == 0 {
		return nil
	}
	if maxBlocks <= 0 {
		maxBlocks = MaxListingBlocks
	}

	// Wrappers around a qualifying block qualify too. Only the innermost
	// blocks count, or one posting would fill every slot.
	qualifies := make([]bool, len(p.Blocks))
	for i, b := range p.Blocks {
		low := strings.ToLower(b.Text)
		qualifies[i] = len(b.Text) > minListingLen && containsAny(low, sc.WebsiteKeywords) && containsAny(low, sc.UserKeywords)
	}
	wraps := make([]bool, len(p.Blocks))
	for i, b := range p.Blocks {
		if !qualifies[i] {
			continue
		}
		for _, o := range b.Outer {
			if o >= 0 && o < len(wraps) {
				wraps[o] = true
			}
		}
	}

	var out []model.JobListing
	candidates := 0
	for i, b := range p.Blocks {
		if candidates >= maxBlocks {
			break
		}
		if !qualifies[i] || wraps[i] {
			continue
		}
		candidates++

		matched, _ := KeywordPass(strings.ToLower(b.Text), sc.UserKeywords, 0)
		if len(matched) == 0 {
			continue
		}
		out = append(out, model.JobListing{
			Title:    listingTitle(b),
			Snippet:  snippet(b.Text),
			Keywords: matched,
			Source:   p.URL,
		})
	}
	return out
}

func listingTitle(b page.Block) string {
	if b.Heading != "" {
		return b.Heading
	}
	if m := titleRe.FindStringSubmatch(b.Text); m != nil {
		if t := strings.TrimSpace(m[1]); t != "" {
			return t
		}
	}
	return FallbackTitle
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) <= snippetLen {
		return s
	}
	return string(r[:snippetLen]) + "..."
}

// JobBoardLinks returns the distinct links that point at a known job board.
func JobBoardLinks(links []page.Link, foundOn string) []model.JobSiteLink {
	var out []model.JobSiteLink
	seen := map[string]bool{}
	for _, l := range links {
		low := strings.ToLower(l.Href)
		for _, b := range JobBoards {
			if !strings.Contains(low, b.Domain) {
				continue
			}
			if !seen[l.Href] {
				seen[l.Href] = true
				out = append(out, model.JobSiteLink{URL: l.Href, Name: b.Name, FoundOn: foundOn})
			}
			break
		}
	}
	return out
}

// NewKeywordBoost is the score floor for n user keywords found only on a
// career page.
func NewKeywordBoost(n int) int {
	if n <= 0 {
		return 0
	}
	return NewKeywordBase + min(NewKeywordStep*n, NewKeywordBoostCap)
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func linkPath(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	return u.Path
}
