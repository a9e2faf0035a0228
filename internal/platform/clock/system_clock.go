package clock

import "time"

// SystemClock reads UTC wall-clock time. Used by the verifier and the idempotency layer;
// plan and user timestamps come from the store.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC() }
