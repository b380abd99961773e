package syncer

import (
	"time"

	"github.com/utilitywarehouse/git-watch-mirror/resolve"
)

// Status is the outcome of syncing a single repository
type Status string

const (
	StatusCloned          Status = "cloned"
	StatusUpdated         Status = "updated"
	StatusSkippedNotARepo Status = "skipped-not-a-repo"
	StatusSkippedOccupied Status = "skipped-occupied"
	StatusFailed          Status = "failed"
)

// Result is the outcome of syncing a single entry, it is only used for
// reporting and is never persisted.
type Result struct {
	Entry      resolve.Entry
	Path       string // absolute path of the working copy
	Status     Status
	Branch     string // primary branch left checked out
	DocsSynced bool   // whether documentation branch was synced
	DocsErr    error  // documentation sync failure, does not change Status
	Err        error  // reason of failed status
	Duration   time.Duration
}

// Synced returns true if working copy was cloned or updated
func (r Result) Synced() bool {
	return r.Status == StatusCloned || r.Status == StatusUpdated
}

// Summary counts results per status
func Summary(results []Result) map[Status]int {
	s := make(map[Status]int)
	for _, r := range results {
		s[r.Status]++
	}
	return s
}
