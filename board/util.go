package board

import (
	"time"
)

type Reconnect struct {
	timeout time.Duration
}

func NewReconnect(timeout time.Duration) *Reconnect {
	return &Reconnect{
		timeout: timeout,
	}
}

func (self *Reconnect) After() <-chan time.Time {
	return time.After(self.timeout)
}

// reconnectBackoff returns the wait before reconnect attempt `attempt`
// (0-indexed): `minTimeout` doubled per attempt, capped at `maxTimeout`.
func reconnectBackoff(attempt int, minTimeout time.Duration, maxTimeout time.Duration) time.Duration {
	timeout := minTimeout
	for i := 0; i < attempt; i += 1 {
		timeout *= 2
		if maxTimeout <= timeout {
			return maxTimeout
		}
	}
	return timeout
}
