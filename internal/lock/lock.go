//go:build !deadlock

// Package lock provides the mutex type used across the module.
// Building with `-tags deadlock` swaps it for go-deadlock implementation
// which reports potential deadlocks and long held locks.
package lock

import "sync"

type Mutex struct {
	sync.Mutex
}
