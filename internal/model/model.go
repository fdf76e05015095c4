package model

import (
	"encoding/json"
	"time"
)

// CandidateSite is one business handed over by the discovery side.
type CandidateSite struct {
	BusinessName string `json:"businessName" yaml:"businessName"`
	Address      string `json:"address,omitempty" yaml:"address"`
	WebsiteURL   string `json:"website" yaml:"website"`
}

// SearchConfiguration is fixed for the duration of one run.
type SearchConfiguration struct {
	UserKeywords        []string `json:"userKeywords" yaml:"userKeywords"`
	JobSpecificKeywords []string `json:"jobSpecificKeywords,omitempty" yaml:"jobSpecificKeywords"`
	WebsiteKeywords     []string `json:"websiteKeywords,omitempty" yaml:"websiteKeywords"`
	MaxResults          int      `json:"maxResults,omitempty" yaml:"maxResults"`
}

type JobPage struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type JobListing struct {
	Title    string   `json:"title"`
	Snippet  string   `json:"snippet"`
	Keywords []string `json:"keywords"`
	Source   string   `json:"source"`
}

// JobSiteLink is a link to a third party job board found on a career page.
type JobSiteLink struct {
	URL     string `json:"url"`
	Name    string `json:"name"`
	FoundOn string `json:"foundOn"`
}

// CrawlResult is the outcome of checking one website.
type CrawlResult struct {
	BusinessName        string        `json:"businessName"`
	Website             string        `json:"website,omitempty"`
	JobKeywords         []string      `json:"jobKeywords"`
	JobSpecificKeywords []string      `json:"jobSpecificKeywords"`
	ContactEmail        string        `json:"contactEmail,omitempty"`
	ContactPage         string        `json:"contactPage,omitempty"`
	JobPages            []JobPage     `json:"jobPages"`
	JobListings         []JobListing  `json:"jobListings"`
	JobSiteLinks        []JobSiteLink `json:"jobSiteLinks"`
	PotentialJobMatch   bool          `json:"potentialJobMatch,omitempty"`
	Score               int           `json:"score"`
	TimedOut            bool          `json:"timedOut"`
	LastChecked         time.Time     `json:"lastChecked"`
}

// MarshalJSON drops the score of timed out results, they were never scored.
func (r CrawlResult) MarshalJSON() ([]byte, error) {
	type plain CrawlResult
	if !r.TimedOut {
		return json.Marshal(plain(r))
	}
	return json.Marshal(struct {
		plain
		Score *int `json:"score,omitempty"`
	}{plain: plain(r)})
}

// HasSignal reports whether the result is worth a resultFound event.
func (r CrawlResult) HasSignal() bool {
	return len(r.JobKeywords) > 0 || r.ContactEmail != "" || r.ContactPage != "" || len(r.JobListings) > 0
}

// Request is a batch handed to the scheduler.
type Request struct {
	Websites   []CandidateSite     `json:"websites" yaml:"websites"`
	SearchData SearchConfiguration `json:"searchData" yaml:"searchData"`
}

const (
	StatusProcessing = "processing"
	StatusBusy       = "busy"
)

// Ack is the immediate answer to a Request.
type Ack struct {
	Status      string `json:"status"`
	QueuedCount int    `json:"queuedCount,omitempty"`
}
