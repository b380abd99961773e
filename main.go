package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"
)

var (
	// set at build time
	version = "dev"

	loggerLevel = new(slog.LevelVar)
	logger      *slog.Logger

	levelStrings = map[string]slog.Level{
		"trace": slog.Level(-8),
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}

	flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "target",
			Aliases: []string{"t"},
			Value:   defaultTarget,
			Usage:   "Directory under which repositories are mirrored, created if missing.",
		},
		&cli.StringSliceFlag{
			Name:    "ignore",
			Aliases: []string{"i"},
			Usage:   "Repository to ignore, either `NAME` or OWNER/NAME. Can be repeated.",
		},
		&cli.BoolFlag{
			Name:    "add_own",
			Aliases: []string{"o"},
			Usage:   "Also mirror watched repositories owned by the user.",
		},
		&cli.BoolFlag{
			Name:    "no_docs",
			Aliases: []string{"n"},
			Usage:   "Do not sync the gh-pages documentation branch.",
		},
		&cli.StringFlag{
			Name:    "strategy",
			Aliases: []string{"s"},
			Value:   string(defaultStrategy),
			Usage:   "Local layout and name conflict strategy: " + strategyNames() + ".",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Show git output and debug logs.",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Sources: cli.EnvVars("LOG_LEVEL"),
			Value:   "info",
			Usage:   "Log level (trace, debug, info, warn, error)",
		},
		&cli.StringFlag{
			Name:    "api-url",
			Sources: cli.EnvVars("GIT_WATCH_MIRROR_API_URL"),
			Value:   defaultAPIURL,
			Usage:   "GitHub API root, e.g. https://github.example.com/api/v3/ for enterprise servers.",
		},
		&cli.BoolFlag{
			Name:  "ssh",
			Usage: "Clone using ssh urls instead of https.",
		},
		&cli.StringFlag{
			Name:  "backend",
			Value: backendExec,
			Usage: "Git implementation to use, 'exec' runs git binary, 'go-git' is built in.",
		},
		&cli.IntFlag{
			Name:    "jobs",
			Aliases: []string{"j"},
			Value:   1,
			Usage:   "Number of repositories synced concurrently.",
		},
		&cli.StringFlag{
			Name:  "report",
			Usage: "Write a YAML report of the run to `FILE`.",
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "Write prometheus metrics of the run to `FILE` in text format.",
		},
	}
)

func init() {
	// -v is taken by --verbose
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version",
		Usage: "print the version",
	}

	loggerLevel.Set(slog.LevelInfo)
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: loggerLevel,
	}))
}

func main() {
	cmd := &cli.Command{
		Name:      "git-watch-mirror",
		Usage:     "mirror all GitHub repositories watched by a user into a local directory.",
		ArgsUsage: "USER",
		Version:   version,
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// set log level according to argument
			if v, ok := levelStrings[strings.ToLower(c.String("log-level"))]; ok {
				loggerLevel.Set(v)
			}
			if c.Bool("verbose") && !c.IsSet("log-level") {
				loggerLevel.Set(slog.LevelDebug)
			}

			conf, err := configFromCommand(c)
			if err != nil {
				return err
			}

			return run(ctx, conf)
		},
	}

	// arguments from rc file come first so that command line can override them
	rcArgs, err := argsFromFile(rcFilePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
	args := append([]string{os.Args[0]}, rcArgs...)
	args = append(args, os.Args[1:]...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, args); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
