package cmd

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/AlfredBerg/job-scout/internal/model"
)

func TestReadTargets(t *testing.T) {
	in := strings.NewReader("https://a.example\n\n# skipped\nb.example/Careers\n")
	sites, err := readTargets(in)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []model.CandidateSite{
		{BusinessName: "a.example", WebsiteURL: "https://a.example"},
		{BusinessName: "b.example", WebsiteURL: "https://b.example/Careers"},
	}
	if !reflect.DeepEqual(sites, want) {
		t.Fatalf("unexpected sites %+v", sites)
	}
}

func TestReadTargetsRejectsGarbage(t *testing.T) {
	if _, err := readTargets(strings.NewReader("https://\n")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestReadBatchYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "batch.yaml")
	js := filepath.Join(dir, "batch.json")
	if err := os.WriteFile(yml, []byte(`
websites:
  - businessName: A
    website: https://a.example
searchData:
  userKeywords: [engineer]
  maxResults: 5
`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(js, []byte(`{"websites":[{"businessName":"A","website":"https://a.example"}],"searchData":{"userKeywords":["engineer"],"maxResults":5}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{yml, js} {
		req, err := readBatch(p)
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if len(req.Websites) != 1 || req.Websites[0].WebsiteURL != "https://a.example" {
			t.Fatalf("%s: unexpected websites %+v", p, req.Websites)
		}
		if req.SearchData.MaxResults != 5 || req.SearchData.UserKeywords[0] != "engineer" {
			t.Fatalf("%s: unexpected search data %+v", p, req.SearchData)
		}
	}
}

func TestBuildRequestAddsFlags(t *testing.T) {
	p := filepath.Join(t.TempDir(), "targets.txt")
	if err := os.WriteFile(p, []byte("a.example\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	req, err := buildRequest(runFlags{targets: p, keywords: []string{"welder"}, jobKeywords: []string{"forklift"}, maxResults: 3})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.SearchData.UserKeywords[0] != "welder" || req.SearchData.JobSpecificKeywords[0] != "forklift" || req.SearchData.MaxResults != 3 {
		t.Fatalf("flags not applied: %+v", req.SearchData)
	}
}

func TestBuildRequestNeedsWebsites(t *testing.T) {
	p := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(p, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := buildRequest(runFlags{targets: p}); err == nil {
		t.Fatal("expected an error")
	}
}
