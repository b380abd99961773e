//go:build deadlock

package lock

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

func init() {
	// a single clone of a large repository can legitimately take minutes
	deadlock.Opts.DeadlockTimeout = 10 * time.Minute
}

type Mutex struct {
	deadlock.Mutex
}
