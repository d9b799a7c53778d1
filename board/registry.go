package board

import (
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
)

// SubscriberFunction receives the written path and the new value. The path is
// passed so wildcard and ancestor subscribers can tell which slot changed.
type SubscriberFunction func(path string, value any)

// PathRegistry is a dot-path publish/subscribe registry. Writes notify exact
// matches, single-segment wildcard matches (`entities.*` matches
// `entities.tasks`), and ancestors (`entities` matches `entities.tasks`), in
// subscription-registration order, synchronously, before `Set` returns.
//
// Reads are plain dotted lookups. Wildcards are write-side notification
// filters only, never read-side query patterns.
//
// Subscription lifetime is caller-managed. Hold the returned unsubscribe
// function and call it on teardown, or the callback leaks for the life of
// the session.
type PathRegistry struct {
	// serializes the full set-then-notify fan-out so two `Set` calls can
	// never interleave their notifications
	dispatchMutex sync.Mutex

	stateLock   sync.Mutex
	values      map[string]any
	subscribers []*pathSubscriber
}

type pathSubscriber struct {
	subscriberId ulid.ULID
	path         string
	callback     SubscriberFunction
}

func NewPathRegistry() *PathRegistry {
	return &PathRegistry{
		values: map[string]any{},
	}
}

// Subscribe registers `callback` for writes matching `path` and returns the
// unsubscribe function. Subscribing to a path that never receives writes is
// legal and simply never fires.
func (self *PathRegistry) Subscribe(path string, callback SubscriberFunction) func() {
	subscriber := &pathSubscriber{
		subscriberId: ulid.Make(),
		path:         path,
		callback:     callback,
	}

	self.stateLock.Lock()
	self.subscribers = append(self.subscribers, subscriber)
	self.stateLock.Unlock()

	return func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		for i, s := range self.subscribers {
			if s.subscriberId == subscriber.subscriberId {
				self.subscribers = append(self.subscribers[:i], self.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Set writes `value` at `path` and synchronously invokes every matching
// subscriber before returning. Callbacks are wrapped to recover from panics
// so one broken consumer cannot stall the fan-out.
func (self *PathRegistry) Set(path string, value any) {
	self.dispatchMutex.Lock()
	defer self.dispatchMutex.Unlock()

	var matched []*pathSubscriber
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		self.setValue(path, value)
		for _, subscriber := range self.subscribers {
			if pathMatches(subscriber.path, path) {
				matched = append(matched, subscriber)
			}
		}
	}()

	for _, subscriber := range matched {
		func() {
			defer func() { _ = recover() }()
			subscriber.callback(path, value)
		}()
	}
}

// Get performs a plain dotted lookup with no wildcard semantics.
func (self *PathRegistry) Get(path string) (any, bool) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	segments := strings.Split(path, ".")
	current := self.values
	for i, segment := range segments {
		value, ok := current[segment]
		if !ok {
			return nil, false
		}
		if i == len(segments)-1 {
			return value, true
		}
		next, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// must be called with `stateLock`
func (self *PathRegistry) setValue(path string, value any) {
	segments := strings.Split(path, ".")
	current := self.values
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}

// pathMatches reports whether a subscriber at `subscribedPath` should be
// notified for a write at `setPath`:
//   - exact match
//   - wildcard match: same segment count, `*` matches any single segment
//   - ancestor match: subscribed path is a strict segment prefix of the
//     written path
func pathMatches(subscribedPath string, setPath string) bool {
	if subscribedPath == setPath {
		return true
	}

	subscribedSegments := strings.Split(subscribedPath, ".")
	setSegments := strings.Split(setPath, ".")

	if len(subscribedSegments) == len(setSegments) {
		for i, segment := range subscribedSegments {
			if segment != "*" && segment != setSegments[i] {
				return false
			}
		}
		return true
	}

	if len(subscribedSegments) < len(setSegments) {
		for i, segment := range subscribedSegments {
			if segment != setSegments[i] {
				return false
			}
		}
		return true
	}

	return false
}
