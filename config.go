package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/urfave/cli/v3"

	"github.com/utilitywarehouse/git-watch-mirror/resolve"
	"github.com/utilitywarehouse/git-watch-mirror/watchlist"
)

const (
	rcFileName = ".git-watch-mirror"

	defaultTarget   = "."
	defaultAPIURL   = watchlist.DefaultBaseURL
	defaultStrategy = resolve.Subfolders

	backendExec  = "exec"
	backendGoGit = "go-git"
)

// config is the validated run configuration
type config struct {
	User        string
	Target      string
	Ignore      []string
	AddOwn      bool
	NoDocs      bool
	Strategy    resolve.Strategy
	Verbose     bool
	APIURL      string
	SSH         bool
	Backend     string
	Jobs        int
	Report      string
	MetricsFile string
}

func configFromCommand(c *cli.Command) (*config, error) {
	if c.NArg() != 1 {
		return nil, fmt.Errorf("exactly one USER argument is required, got %d", c.NArg())
	}

	strategy, err := resolve.ParseStrategy(c.String("strategy"))
	if err != nil {
		return nil, err
	}

	conf := &config{
		User:        c.Args().First(),
		Target:      c.String("target"),
		Ignore:      c.StringSlice("ignore"),
		AddOwn:      c.Bool("add_own"),
		NoDocs:      c.Bool("no_docs"),
		Strategy:    strategy,
		Verbose:     c.Bool("verbose"),
		APIURL:      c.String("api-url"),
		SSH:         c.Bool("ssh"),
		Backend:     c.String("backend"),
		Jobs:        int(c.Int("jobs")),
		Report:      c.String("report"),
		MetricsFile: c.String("metrics-file"),
	}
	applyDefaults(conf)

	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func applyDefaults(conf *config) {
	if conf.Target == "" {
		conf.Target = defaultTarget
	}
	if conf.APIURL == "" {
		conf.APIURL = defaultAPIURL
	}
	if conf.Strategy == "" {
		conf.Strategy = defaultStrategy
	}
	if conf.Backend == "" {
		conf.Backend = backendExec
	}
	if conf.Jobs < 1 {
		conf.Jobs = 1
	}
}

func (c *config) validate() error {
	if c.User == "" {
		return fmt.Errorf("USER cannot be empty")
	}
	switch c.Backend {
	case backendExec, backendGoGit:
	default:
		return fmt.Errorf("invalid backend '%s', supported backends are '%s' and '%s'", c.Backend, backendExec, backendGoGit)
	}
	return nil
}

// rcFilePath returns path of the rc file in users home directory
func rcFilePath() string {
	return filepath.Join(xdg.Home, rcFileName)
}

// argsFromFile reads command line arguments from the given file, one per
// line. blank lines and lines starting with '#' are ignored.
// missing file is not an error.
func argsFromFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read rc file err:%w", err)
	}
	defer f.Close()

	var args []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		args = append(args, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("unable to read rc file err:%w", err)
	}
	return args, nil
}

func strategyNames() string {
	var names []string
	for _, s := range resolve.Strategies() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
