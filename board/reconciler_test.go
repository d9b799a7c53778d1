package board

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func newTestReconciler() (*PathRegistry, *EntityStore, *Reconciler) {
	registry := NewPathRegistry()
	store := NewEntityStore(registry)
	reconciler := NewReconcilerWithDefaults(store)
	return registry, store, reconciler
}

func activeIds(reconciler *Reconciler, now time.Time) []string {
	ids := []string{}
	for _, node := range reconciler.ActiveNodesAt(now) {
		ids = append(ids, node.Id)
	}
	return ids
}

func TestReconcilerAppliesEvents(t *testing.T) {
	_, store, reconciler := newTestReconciler()

	reconciler.Apply(&Event{
		Type:       EventTypeEntityAdded,
		EntityType: NodeTypeTask,
		Node:       &Node{Id: "t-1", Title: "first"},
	})
	assert.Equal(t, 1, len(store.Tasks()))

	reconciler.Apply(&Event{
		Type:       EventTypeEntityUpdated,
		EntityType: NodeTypeTask,
		Node:       &Node{Id: "t-1", Title: "second"},
	})
	assert.Equal(t, 1, len(store.Tasks()))
	assert.Equal(t, "second", store.Tasks()[0].Title)

	reconciler.Apply(&Event{
		Type: EventTypeEdgeAdded,
		Edge: &Edge{Source: "a-1", Target: "t-1", EdgeType: EdgeTypeWorkingOn},
	})
	assert.Equal(t, 1, len(store.Edges()))

	reconciler.Apply(&Event{
		Type:       EventTypeEntityRemoved,
		EntityType: NodeTypeTask,
		Id:         "t-1",
	})
	assert.Equal(t, 0, len(store.Tasks()))

	// replayed removal leaves the store unchanged
	reconciler.Apply(&Event{
		Type:       EventTypeEntityRemoved,
		EntityType: NodeTypeTask,
		Id:         "t-1",
	})
	assert.Equal(t, 0, len(store.Tasks()))
}

func TestReconcilerDropsMalformedEvents(t *testing.T) {
	_, store, reconciler := newTestReconciler()

	// unknown event type
	reconciler.Apply(&Event{Type: EventType("entity_exploded")})
	// unknown entity type
	reconciler.Apply(&Event{
		Type:       EventTypeEntityAdded,
		EntityType: NodeType("widget"),
		Node:       &Node{Id: "w-1"},
	})
	// unknown edge type
	reconciler.Apply(&Event{
		Type: EventTypeEdgeAdded,
		Edge: &Edge{Source: "a", Target: "b", EdgeType: EdgeType("likes")},
	})
	// missing payload
	reconciler.Apply(&Event{Type: EventTypeEntityAdded, EntityType: NodeTypeTask})

	assert.Equal(t, 0, len(store.Tasks()))
	assert.Equal(t, 0, len(store.Edges()))

	// a dropped event does not stall reconciliation of the rest
	reconciler.Apply(&Event{
		Type:       EventTypeEntityAdded,
		EntityType: NodeTypeTask,
		Node:       &Node{Id: "t-1"},
	})
	assert.Equal(t, 1, len(store.Tasks()))
}

func TestReconcilerGraceWindow(t *testing.T) {
	_, store, reconciler := newTestReconciler()
	graceWindow := reconciler.settings.GraceWindow

	t0 := time.Now()
	store.Upsert(NodeTypeTask, &Node{Id: "t-1", Status: StatusInProgress})
	store.AddEdge(&Edge{Source: "a-1", Target: "t-1", EdgeType: EdgeTypeWorkingOn})

	// visible via the primary edge-derived view
	assert.Equal(t, []string{"t-1"}, activeIds(reconciler, t0))

	// removing the active-work edge suppresses the fallback for the grace
	// window even though the status is still in_progress
	reconciler.ApplyAt(&Event{
		Type: EventTypeEdgeRemoved,
		Edge: &Edge{Source: "a-1", Target: "t-1", EdgeType: EdgeTypeWorkingOn},
	}, t0)
	assert.Equal(t, []string{}, activeIds(reconciler, t0))
	assert.Equal(t, []string{}, activeIds(reconciler, t0.Add(graceWindow-time.Millisecond)))

	// both endpoints of the removed edge are held out of the fallback
	suppressedIds := reconciler.SuppressedIds()
	assert.Equal(t, 2, len(suppressedIds))

	// after the window elapses the node resurfaces in the fallback view
	assert.Equal(t, []string{"t-1"}, activeIds(reconciler, t0.Add(graceWindow)))
}

func TestReconcilerGraceWindowReAdd(t *testing.T) {
	_, store, reconciler := newTestReconciler()

	t0 := time.Now()
	store.Upsert(NodeTypeTask, &Node{Id: "t-1", Status: StatusInProgress})
	store.AddEdge(&Edge{Source: "a-1", Target: "t-1", EdgeType: EdgeTypeWorkingOn})

	reconciler.ApplyAt(&Event{
		Type: EventTypeEdgeRemoved,
		Edge: &Edge{Source: "a-1", Target: "t-1", EdgeType: EdgeTypeWorkingOn},
	}, t0)
	assert.Equal(t, []string{}, activeIds(reconciler, t0))

	// re-adding the active-work edge inside the window makes the node
	// visible immediately via the primary path. the suppression only ever
	// affects the fallback.
	reconciler.ApplyAt(&Event{
		Type: EventTypeEdgeAdded,
		Edge: &Edge{Source: "a-2", Target: "t-1", EdgeType: EdgeTypeWorkingOn},
	}, t0.Add(10*time.Millisecond))
	assert.Equal(t, []string{"t-1"}, activeIds(reconciler, t0.Add(20*time.Millisecond)))
}

func TestReconcilerEdgeRemovalStatusRace(t *testing.T) {
	// the server removes a working_on edge and updates the node status as
	// two separate writes. whichever order they arrive, the fallback view
	// must never transiently show the node as active.
	_, store, reconciler := newTestReconciler()

	t0 := time.Now()
	store.Upsert(NodeTypeTask, &Node{Id: "t-1", Status: StatusInProgress})
	store.AddEdge(&Edge{Source: "a-1", Target: "t-1", EdgeType: EdgeTypeWorkingOn})

	reconciler.ApplyAt(&Event{
		Type: EventTypeEdgeRemoved,
		Edge: &Edge{Source: "a-1", Target: "t-1", EdgeType: EdgeTypeWorkingOn},
	}, t0)

	// in the window between the edge removal and the status update the node
	// is excluded from the fallback view
	assert.Equal(t, []string{}, activeIds(reconciler, t0.Add(5*time.Millisecond)))

	reconciler.ApplyAt(&Event{
		Type:       EventTypeEntityUpdated,
		EntityType: NodeTypeTask,
		Node:       &Node{Id: "t-1", Status: StatusDone},
	}, t0.Add(10*time.Millisecond))

	// and once the status lands it is excluded by status, including after
	// the grace window expires
	assert.Equal(t, []string{}, activeIds(reconciler, t0.Add(15*time.Millisecond)))
	assert.Equal(t, []string{}, activeIds(reconciler, t0.Add(reconciler.settings.GraceWindow+time.Second)))
}

func TestReconcilerSnapshot(t *testing.T) {
	_, store, reconciler := newTestReconciler()

	reconciler.Apply(&Event{
		Type: EventTypeSnapshot,
		Snapshot: &Snapshot{
			Nodes: []*Node{
				{Id: "t-1", Type: NodeTypeTask},
				{Id: "a-1", Type: NodeTypeAgent},
			},
			Edges: []*Edge{
				{Source: "a-1", Target: "t-1", EdgeType: EdgeTypeWorkingOn},
			},
		},
	})

	assert.Equal(t, 1, len(store.Tasks()))
	assert.Equal(t, 1, len(store.Agents()))
	assert.Equal(t, 1, len(store.Edges()))
}
