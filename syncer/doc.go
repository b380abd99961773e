// Package syncer brings local working copies of watched repositories in sync
// with their remotes.
//
// For every entry the target directory is inspected and one of the following
// is done...
//   - directory with git metadata: primary branch is checked out and pulled
//   - non empty directory without git metadata: skipped and left untouched
//   - path occupied by something other than a directory: skipped
//   - missing or empty directory: recursive clone (including submodules)
//
// If documentation sync is enabled, the `gh-pages` branch is checked out and
// pulled (or created as tracking branch) after the clone or update, and the
// primary branch is checked out again.
//
// Failures of one repository are logged and recorded on its [Result], they
// never stop the rest of the batch.
//
// # Logging:
//
// package takes slog reference for logging and prints logs up to 'trace' level
//
// Example:
//
//	loggerLevel  = new(slog.LevelVar)
//	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//		Level: loggerLevel,
//	}))
//
//	engine, err := syncer.New(syncer.Config{Root: "/src", WithDocs: true},
//		syncer.NewExecBackend(nil, false, logger), logger)
//	if err != nil {
//		panic(err)
//	}
//	results := engine.Sync(ctx, entries)
package syncer
