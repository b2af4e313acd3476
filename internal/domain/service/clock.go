package service

import "time"

// Clock abstracts the current time so "slot is in the future" and "token is
// near expiry" checks can be simulated deterministically in tests.
type Clock interface {
	Now() time.Time
}
