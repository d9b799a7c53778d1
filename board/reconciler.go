package board

import (
	"sync"
	"time"

	"github.com/golang/glog"
	"golang.org/x/exp/maps"
)

type ReconcilerSettings struct {
	// how long a node stays out of the status-derived fallback view after
	// its active-work edge is removed, measured from local receipt of the
	// removal event
	GraceWindow time.Duration
}

func DefaultReconcilerSettings() *ReconcilerSettings {
	return &ReconcilerSettings{
		GraceWindow: 5000 * time.Millisecond,
	}
}

// Reconciler applies the inbound event stream to the entity store. Each
// event becomes a single store operation; subscribers never observe partial
// application. Events are applied in arrival order with no reordering.
//
// The server writes a `working_on` edge removal and the matching node
// status change as two separate operations, so either can arrive first. To
// keep the "active" view from flickering, a short-lived suppression set
// excludes a node from the status-derived fallback for `GraceWindow` after
// its active-work edge is removed. The suppression never affects the
// primary edge-derived view: re-adding a `working_on` edge makes the node
// visible again immediately. If the status update never arrives the node
// simply resurfaces in the fallback view once the window elapses;
// suppression is always time-bounded.
type Reconciler struct {
	store    *EntityStore
	settings *ReconcilerSettings

	stateLock sync.Mutex
	// node id -> suppression eviction deadline
	suppressed map[string]time.Time
}

func NewReconcilerWithDefaults(store *EntityStore) *Reconciler {
	return NewReconciler(store, DefaultReconcilerSettings())
}

func NewReconciler(store *EntityStore, settings *ReconcilerSettings) *Reconciler {
	return &Reconciler{
		store:      store,
		settings:   settings,
		suppressed: map[string]time.Time{},
	}
}

func (self *Reconciler) Apply(event *Event) {
	self.ApplyAt(event, time.Now())
}

// ApplyAt applies one event at local receipt time `now`. A malformed or
// unknown event is logged and dropped without raising to subscribers: the
// stream is advisory and one bad event must not stall the rest.
func (self *Reconciler) ApplyAt(event *Event, now time.Time) {
	if err := event.Validate(); err != nil {
		glog.Infof("[reconcile]drop event = %s\n", err)
		return
	}

	switch event.Type {
	case EventTypeEntityAdded, EventTypeEntityUpdated:
		if err := self.store.Upsert(event.EntityType, event.Node); err != nil {
			glog.Infof("[reconcile]drop %s = %s\n", event.Type, err)
			return
		}
		glog.V(LogVTrace).Infof("[reconcile]%s %s\n", event.Type, event.Node.Id)
	case EventTypeEntityRemoved:
		if err := self.store.Remove(event.EntityType, event.Id); err != nil {
			glog.Infof("[reconcile]drop %s = %s\n", event.Type, err)
			return
		}
		glog.V(LogVTrace).Infof("[reconcile]%s %s\n", event.Type, event.Id)
	case EventTypeEdgeAdded:
		self.store.AddEdge(event.Edge)
		glog.V(LogVTrace).Infof("[reconcile]%s %s->%s\n", event.Type, event.Edge.Source, event.Edge.Target)
	case EventTypeEdgeRemoved:
		self.store.RemoveEdge(event.Edge)
		if event.Edge.EdgeType == EdgeTypeWorkingOn {
			self.suppress(event.Edge.Source, now)
			self.suppress(event.Edge.Target, now)
		}
		glog.V(LogVTrace).Infof("[reconcile]%s %s->%s\n", event.Type, event.Edge.Source, event.Edge.Target)
	case EventTypeSnapshot:
		self.store.ApplySnapshot(event.Snapshot)
		glog.V(LogVStatus).Infof("[reconcile]snapshot nodes=%d edges=%d\n", len(event.Snapshot.Nodes), len(event.Snapshot.Edges))
	}
}

func (self *Reconciler) suppress(nodeId string, now time.Time) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	self.suppressed[nodeId] = now.Add(self.settings.GraceWindow)
	// opportunistic eviction of expired entries
	for id, deadline := range self.suppressed {
		if !now.Before(deadline) {
			delete(self.suppressed, id)
		}
	}
}

// Suppressed reports whether `nodeId` is currently excluded from the
// fallback view.
func (self *Reconciler) Suppressed(nodeId string) bool {
	return self.SuppressedAt(nodeId, time.Now())
}

func (self *Reconciler) SuppressedAt(nodeId string, now time.Time) bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	deadline, ok := self.suppressed[nodeId]
	if !ok {
		return false
	}
	if !now.Before(deadline) {
		delete(self.suppressed, nodeId)
		return false
	}
	return true
}

// SuppressedIds returns the node ids currently held out of the fallback
// view, expired entries included until their next eviction.
func (self *Reconciler) SuppressedIds() []string {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return maps.Keys(self.suppressed)
}

// ActiveNodes is the derived "active work" view: nodes that are the target
// of a `working_on` edge (primary, always wins), plus nodes whose status is
// in_progress (fallback, subject to suppression).
func (self *Reconciler) ActiveNodes() []*Node {
	return self.ActiveNodesAt(time.Now())
}

func (self *Reconciler) ActiveNodesAt(now time.Time) []*Node {
	active := []*Node{}
	seen := map[string]bool{}

	// primary: direct edge-derived view
	for _, edge := range self.store.Edges() {
		if edge.EdgeType != EdgeTypeWorkingOn {
			continue
		}
		if seen[edge.Target] {
			continue
		}
		if node, err := self.store.Node(edge.Target); err == nil {
			active = append(active, node)
			seen[edge.Target] = true
		}
	}

	// fallback: status-derived, excluding suppressed ids
	for _, nodeType := range NodeTypes {
		for _, node := range self.store.Nodes(nodeType) {
			if node.Status != StatusInProgress {
				continue
			}
			if seen[node.Id] {
				continue
			}
			if self.SuppressedAt(node.Id, now) {
				continue
			}
			active = append(active, node)
			seen[node.Id] = true
		}
	}

	return active
}
