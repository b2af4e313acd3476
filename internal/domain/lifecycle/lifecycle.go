// Package lifecycle holds shared constants for process start and shutdown.
package lifecycle

import "time"

// DefaultTimeout bounds graceful startup and shutdown steps such as the
// initial database ping and HTTP server drain.
const DefaultTimeout = 10 * time.Second
