package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/utilitywarehouse/git-watch-mirror/syncer"
)

// runReport is the YAML document written by --report
type runReport struct {
	User         string         `yaml:"user"`
	Target       string         `yaml:"target"`
	Strategy     string         `yaml:"strategy"`
	StartedAt    time.Time      `yaml:"started_at"`
	Duration     string         `yaml:"duration"`
	Summary      map[string]int `yaml:"summary"`
	Repositories []repoReport   `yaml:"repositories"`
}

type repoReport struct {
	Path      string `yaml:"path"`
	Remote    string `yaml:"remote"`
	Owner     string `yaml:"owner"`
	Status    string `yaml:"status"`
	Branch    string `yaml:"branch,omitempty"`
	Docs      bool   `yaml:"docs"`
	Error     string `yaml:"error,omitempty"`
	DocsError string `yaml:"docs_error,omitempty"`
	Duration  string `yaml:"duration"`
}

func newRunReport(conf *config, root string, start time.Time, results []syncer.Result) runReport {
	r := runReport{
		User:         conf.User,
		Target:       root,
		Strategy:     string(conf.Strategy),
		StartedAt:    start.UTC().Truncate(time.Second),
		Duration:     time.Since(start).Round(time.Millisecond).String(),
		Summary:      make(map[string]int),
		Repositories: make([]repoReport, 0, len(results)),
	}

	for status, count := range syncer.Summary(results) {
		r.Summary[string(status)] = count
	}

	for _, res := range results {
		rr := repoReport{
			Path:     res.Entry.LocalPath,
			Remote:   res.Entry.CloneURL,
			Owner:    res.Entry.OwnerLogin,
			Status:   string(res.Status),
			Branch:   res.Branch,
			Docs:     res.DocsSynced,
			Duration: res.Duration.Round(time.Millisecond).String(),
		}
		if res.Err != nil {
			rr.Error = res.Err.Error()
		}
		if res.DocsErr != nil {
			rr.DocsError = res.DocsErr.Error()
		}
		r.Repositories = append(r.Repositories, rr)
	}
	return r
}

func writeReport(path string, r runReport) error {
	out, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("unable to marshal report err:%w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("unable to write report err:%w", err)
	}
	return nil
}
