package clock

import "time"

// Clock supplies "server time" to adapters whose backing store has no clock of its own
// (the in-memory store) and ages idempotency records. Tests use a manual implementation.
type Clock interface {
	Now() time.Time
}
