package cmd

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AlfredBerg/job-scout/internal/model"
)

// readBatch decodes a {websites, searchData} file. JSON is accepted as well
// since it is valid YAML.
func readBatch(path string) (model.Request, error) {
	var req model.Request
	f, err := os.Open(path)
	if err != nil {
		return req, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&req); err != nil && err != io.EOF {
		return req, fmt.Errorf("decode batch %s: %w", path, err)
	}
	return req, nil
}

// readTargets reads one website per line. Blank lines and lines starting with
// # are skipped. The business name defaults to the host.
func readTargets(r io.Reader) ([]model.CandidateSite, error) {
	var sites []model.CandidateSite
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.Contains(line, "://") {
			line = "https://" + line
		}
		u, err := url.Parse(line)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid target %q", line)
		}
		sites = append(sites, model.CandidateSite{BusinessName: u.Hostname(), WebsiteURL: line})
	}
	return sites, sc.Err()
}
