package board

// Logging convention in the `board` package:
// Info:
//     essential events for abnormal behavior. This level should be silent on
//     normal operation.
//     this includes:
//     - dropped malformed or unknown protocol events
//     - transport loss, reconnect exhaustion, auth rejection
//     - optimistic action rollbacks
// V(1):
//     connection status transitions
// V(2):
//     per-event trace. Frequent events - apply, notify, suppress - should be
//     summarized rather than logged per data point where volume matters.

const (
	LogVStatus = 1
	LogVTrace  = 2
)
