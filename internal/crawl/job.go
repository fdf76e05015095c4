package crawl

import (
	"github.com/AlfredBerg/job-scout/internal/model"
)

// Job is one candidate site in a run. It is mutated once, when its result
// arrives, and only by the scheduler goroutine.
type Job struct {
	Site      model.CandidateSite
	Processed bool
	Result    *model.CrawlResult
}

func newJobs(sites []model.CandidateSite, maxResults int) []*Job {
	if maxResults > 0 && len(sites) > maxResults {
		sites = sites[:maxResults]
	}
	jobs := make([]*Job, 0, len(sites))
	for _, s := range sites {
		jobs = append(jobs, &Job{Site: s})
	}
	return jobs
}

// next is the first job not yet processed, in input order.
func next(jobs []*Job) *Job {
	for _, j := range jobs {
		if !j.Processed {
			return j
		}
	}
	return nil
}

func processedCount(jobs []*Job) int {
	n := 0
	for _, j := range jobs {
		if j.Processed {
			n++
		}
	}
	return n
}
