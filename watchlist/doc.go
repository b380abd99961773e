// Package watchlist fetches the repositories a user watches from the GitHub
// API and turns them into an ordered list of [RepoDescriptor].
//
// Pages are requested one after the other, the next page number is taken from
// the `Link` response header (rel="next"), a missing header ends the listing.
// The order of the returned descriptors is page order and within page order,
// callers depend on it for deterministic collision resolution.
//
// # Errors:
//
// Transport failures are returned as [*NetworkError] and non 200 responses as
// [*APIError]. Neither is retried.
//
// Example:
//
//	client, err := watchlist.New(watchlist.WithLogger(logger))
//	if err != nil {
//		panic(err)
//	}
//
//	repos, err := client.Fetch(ctx, "alice", watchlist.NewIgnoreSet("dotfiles"), false, 1)
package watchlist
