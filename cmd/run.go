package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AlfredBerg/job-scout/internal/broker"
	"github.com/AlfredBerg/job-scout/internal/model"
)

type runFlags struct {
	batch       string
	targets     string
	keywords    []string
	jobKeywords []string
	maxResults  int
}

var rflags runFlags

func init() {
	runCmd.Flags().StringVarP(&rflags.batch, "batch", "b", "", "A YAML or JSON file with websites and searchData.")
	runCmd.Flags().StringVarP(&rflags.targets, "target", "t", "", "A file containing the urls to check, one per line. If empty and no batch is given stdin is used.")
	runCmd.Flags().StringSliceVarP(&rflags.keywords, "keyword", "k", nil, "A user keyword to look for, e.g. the trade searched for. Can be given multiple times.")
	runCmd.Flags().StringSliceVar(&rflags.jobKeywords, "job-keyword", nil, "A job specific keyword worth +40 on career pages. Can be given multiple times.")
	runCmd.Flags().IntVar(&rflags.maxResults, "max-results", 0, "Check at most this many websites (0 uses the configured value).")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check one batch of websites and print events as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		req, err := buildRequest(rflags)
		if err != nil {
			return err
		}
		req.SearchData = cfg.SearchDefaults(req.SearchData)

		lock := flock.New(cfg.Crawl.LockFile)
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("lock %s: %w", cfg.Crawl.LockFile, err)
		}
		if !locked {
			return fmt.Errorf("another run holds %s", cfg.Crawl.LockFile)
		}
		defer lock.Unlock()

		a, err := newApp(cfg, log, broker.NewWriterSink(os.Stdout))
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				log.Warn("shutdown", zap.Error(err))
			}
		}()
		a.events.Subscribe(broker.LogHandler{Log: log})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if _, err := a.sched.Start(ctx, req); err != nil {
			return err
		}
		go func() {
			<-ctx.Done()
			a.sched.Cancel()
		}()
		a.sched.Wait()
		return nil
	},
}

func buildRequest(f runFlags) (model.Request, error) {
	var req model.Request
	var err error
	switch {
	case f.batch != "":
		req, err = readBatch(f.batch)
	case f.targets != "":
		var file *os.File
		file, err = os.Open(f.targets)
		if err != nil {
			return req, err
		}
		defer file.Close()
		req.Websites, err = readTargets(file)
	default:
		req.Websites, err = readTargets(os.Stdin)
	}
	if err != nil {
		return req, err
	}

	req.SearchData.UserKeywords = append(req.SearchData.UserKeywords, f.keywords...)
	req.SearchData.JobSpecificKeywords = append(req.SearchData.JobSpecificKeywords, f.jobKeywords...)
	if f.maxResults > 0 {
		req.SearchData.MaxResults = f.maxResults
	}
	if len(req.Websites) == 0 {
		return req, fmt.Errorf("no websites to check")
	}
	return req, nil
}
