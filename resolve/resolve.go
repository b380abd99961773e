// Package resolve assigns every watched repository a unique local path
// relative to the mirror root.
package resolve

import (
	"fmt"
	"strings"

	"github.com/utilitywarehouse/git-watch-mirror/watchlist"
)

// Strategy decides how repositories sharing the same name are laid out
type Strategy string

const (
	// Subfolders places every repository at "owner/name"
	Subfolders Strategy = "subfolders"
	// Prefix places repositories at "name" unless the name is shared with
	// another watched repository, then all of them go to "owner-name".
	// A directory cloned before its name became shared is not renamed.
	Prefix Strategy = "prefix"
	// None places repositories at "name" and drops every repository whose
	// name was already taken by an earlier one.
	None Strategy = "none"
)

// Strategies returns all supported strategies, the first one is the default
func Strategies() []Strategy {
	return []Strategy{Subfolders, Prefix, None}
}

// ParseStrategy returns Strategy for given name
func ParseStrategy(s string) (Strategy, error) {
	for _, st := range Strategies() {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown strategy '%s', must be one of %s, %s, %s", s, Subfolders, Prefix, None)
}

// Entry is a watched repository together with its resolved local path
type Entry struct {
	LocalPath     string // slash separated path relative to the mirror root
	CloneURL      string
	OwnerLogin    string
	DefaultBranch string
}

// String returns local path of the entry
func (e Entry) String() string {
	return e.LocalPath
}

// Resolve returns an Entry for each repository in given order using given strategy.
// It has no side effects and its output only depends on input order and strategy.
// Local paths are unique in the output, a repository whose path was already
// assigned to an earlier one is dropped, see [Dropped].
func Resolve(repos []watchlist.RepoDescriptor, strategy Strategy) []Entry {
	var counts map[string]int
	if strategy == Prefix {
		counts = make(map[string]int, len(repos))
		for _, r := range repos {
			counts[r.Name]++
		}
	}

	entries := make([]Entry, 0, len(repos))
	taken := make(map[string]struct{}, len(repos))

	for _, r := range repos {
		var p string
		switch strategy {
		case Prefix:
			p = r.Name
			if counts[r.Name] > 1 {
				p = r.OwnerLogin + "-" + r.Name
			}
		case None:
			p = r.Name
		default:
			p = r.OwnerLogin + "/" + r.Name
		}

		// prefixed name of a fork can match the plain name of
		// another repository, e.g. "a-x" of a/x and c/a-x
		if _, ok := taken[p]; ok {
			continue
		}
		taken[p] = struct{}{}
		entries = append(entries, newEntry(r, p))
	}

	return entries
}

// Dropped returns repositories which are not part of resolved entries
// because their local path was already taken.
func Dropped(repos []watchlist.RepoDescriptor, entries []Entry) []watchlist.RepoDescriptor {
	kept := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		kept[e.OwnerLogin+"/"+e.CloneURL] = struct{}{}
	}

	var dropped []watchlist.RepoDescriptor
	for _, r := range repos {
		if _, ok := kept[r.OwnerLogin+"/"+r.CloneURL]; !ok {
			dropped = append(dropped, r)
		}
	}
	return dropped
}

func newEntry(r watchlist.RepoDescriptor, localPath string) Entry {
	return Entry{
		LocalPath:     localPath,
		CloneURL:      r.CloneURL,
		OwnerLogin:    r.OwnerLogin,
		DefaultBranch: r.DefaultBranch,
	}
}
