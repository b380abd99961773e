package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/utilitywarehouse/git-watch-mirror/resolve"
	"github.com/utilitywarehouse/git-watch-mirror/syncer"
	"github.com/utilitywarehouse/git-watch-mirror/watchlist"
)

const (
	metricsNamespace  = ""
	defaultAPITimeout = 30 * time.Second
)

// run fetches watched repositories of the user and syncs them under the
// target. only fetch and setup failures are returned, failures of
// individual repositories are logged and reported.
func run(ctx context.Context, conf *config) error {
	start := time.Now()

	client, err := watchlist.New(
		watchlist.WithBaseURL(conf.APIURL),
		watchlist.WithSSH(conf.SSH),
		watchlist.WithTimeout(defaultAPITimeout),
		watchlist.WithLogger(logger.With("logger", "watchlist")),
	)
	if err != nil {
		return err
	}

	repos, err := client.Fetch(ctx, conf.User, watchlist.NewIgnoreSet(conf.Ignore...), conf.AddOwn, 1)
	if err != nil {
		return fmt.Errorf("unable to list watched repositories of %s: %w", conf.User, err)
	}

	entries := resolve.Resolve(repos, conf.Strategy)
	for _, d := range resolve.Dropped(repos, entries) {
		logger.Warn("repository name already taken, skipping", "repo", d.FullName(), "strategy", conf.Strategy)
	}

	var reg *prometheus.Registry
	if conf.MetricsFile != "" {
		reg = prometheus.NewRegistry()
		syncer.EnableMetrics(metricsNamespace, reg)
	}

	engineLog := logger.With("logger", "syncer")
	quiet := !conf.Verbose

	var backend syncer.Backend
	switch conf.Backend {
	case backendGoGit:
		backend = syncer.NewGoGitBackend(quiet, engineLog)
	default:
		backend = syncer.NewExecBackend(nil, quiet, engineLog)
	}

	engine, err := syncer.New(syncer.Config{
		Root:     conf.Target,
		Quiet:    quiet,
		WithDocs: !conf.NoDocs,
		Jobs:     conf.Jobs,
	}, backend, engineLog)
	if err != nil {
		return err
	}

	results := engine.Sync(ctx, entries)

	if conf.Report != "" {
		r := newRunReport(conf, engine.Root(), start, results)
		if err := writeReport(conf.Report, r); err != nil {
			logger.Error("unable to write report", "path", conf.Report, "err", err)
		}
	}
	if reg != nil {
		if err := prometheus.WriteToTextfile(conf.MetricsFile, reg); err != nil {
			logger.Error("unable to write metrics file", "path", conf.MetricsFile, "err", err)
		}
	}

	return nil
}
