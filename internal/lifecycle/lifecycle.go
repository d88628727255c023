package lifecycle

import "sync/atomic"

var shuttingDown atomic.Bool

// SetShuttingDown sets the drain flag. main sets it when SIGTERM/SIGINT is
// received; the health endpoint reports 503 shutting-down while it is true so
// load balancers stop routing new traffic.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown reports whether the process is draining.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}
