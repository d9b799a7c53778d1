package board

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrUnknownEntityType = errors.New("unknown entity type")
	ErrNotFound          = errors.New("not found")
)

// registry paths
const (
	PathEntitiesWildcard = "entities.*"
	PathEdges            = "entities.edges"
)

func entityPath(nodeType NodeType) string {
	return fmt.Sprintf("entities.%ss", nodeType)
}

// EntityStore is the normalized in-memory mirror of the server's graph:
// one collection per node type plus a flat edge list. It is the single
// source of truth for the session. All writes flow through the reconciler
// or the optimistic action layer.
//
// Collection accessors return live references, not copies. Consumers must
// treat them as read-only snapshots valid only until the next mutation.
//
// Every mutation is fully applied before subscribers are notified
// (batch-then-notify), and the notification fan-out of two mutations never
// interleaves.
type EntityStore struct {
	registry *PathRegistry

	stateLock   sync.Mutex
	collections map[NodeType][]*Node
	edges       []*Edge
}

func NewEntityStore(registry *PathRegistry) *EntityStore {
	collections := map[NodeType][]*Node{}
	for _, nodeType := range NodeTypes {
		collections[nodeType] = []*Node{}
	}
	return &EntityStore{
		registry:    registry,
		collections: collections,
		edges:       []*Edge{},
	}
}

// Upsert inserts or replaces a node in its type collection, preserving
// identity by id. A node whose type does not match a known collection is
// rejected with `ErrUnknownEntityType`.
func (self *EntityStore) Upsert(nodeType NodeType, node *Node) error {
	if !nodeType.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownEntityType, nodeType)
	}
	if node == nil || node.Id == "" {
		return errors.New("node must have an id")
	}

	var collection []*Node
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		node.Type = nodeType
		replaced := false
		for i, existing := range self.collections[nodeType] {
			if existing.Id == node.Id {
				self.collections[nodeType][i] = node
				replaced = true
				break
			}
		}
		if !replaced {
			self.collections[nodeType] = append(self.collections[nodeType], node)
		}
		collection = self.collections[nodeType]
	}()

	self.registry.Set(entityPath(nodeType), collection)
	return nil
}

// Remove deletes a node from its type collection. Removing a nonexistent id
// is a silent no-op: removal events may be replayed and must stay
// idempotent.
func (self *EntityStore) Remove(nodeType NodeType, nodeId string) error {
	if !nodeType.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownEntityType, nodeType)
	}

	var collection []*Node
	removed := false
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		for i, existing := range self.collections[nodeType] {
			if existing.Id == nodeId {
				self.collections[nodeType] = append(
					self.collections[nodeType][:i],
					self.collections[nodeType][i+1:]...,
				)
				removed = true
				break
			}
		}
		collection = self.collections[nodeType]
	}()

	if removed {
		self.registry.Set(entityPath(nodeType), collection)
	}
	return nil
}

// Node scans all type collections and returns the first match.
func (self *EntityStore) Node(nodeId string) (*Node, error) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	for _, nodeType := range NodeTypes {
		for _, node := range self.collections[nodeType] {
			if node.Id == nodeId {
				return node, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, nodeId)
}

// NodeView is a node merged with its derived edge references.
type NodeView struct {
	*Node
	Edges []*EdgeRef
}

// NodeWithEdges returns the node plus every edge where it appears as source
// or target, reduced to `{edge_type, related_id, direction}`.
func (self *EntityStore) NodeWithEdges(nodeId string) (*NodeView, error) {
	node, err := self.Node(nodeId)
	if err != nil {
		return nil, err
	}

	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	edgeRefs := []*EdgeRef{}
	for _, edge := range self.edges {
		if edge.Source == nodeId {
			edgeRefs = append(edgeRefs, &EdgeRef{
				EdgeType:  edge.EdgeType,
				RelatedId: edge.Target,
				Direction: EdgeDirectionOut,
			})
		} else if edge.Target == nodeId {
			edgeRefs = append(edgeRefs, &EdgeRef{
				EdgeType:  edge.EdgeType,
				RelatedId: edge.Source,
				Direction: EdgeDirectionIn,
			})
		}
	}
	return &NodeView{
		Node:  node,
		Edges: edgeRefs,
	}, nil
}

// Nodes returns the live collection for `nodeType`, or nil for an unknown
// type.
func (self *EntityStore) Nodes(nodeType NodeType) []*Node {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.collections[nodeType]
}

func (self *EntityStore) Tasks() []*Node {
	return self.Nodes(NodeTypeTask)
}

func (self *EntityStore) Bugs() []*Node {
	return self.Nodes(NodeTypeBug)
}

func (self *EntityStore) Ideas() []*Node {
	return self.Nodes(NodeTypeIdea)
}

func (self *EntityStore) Tests() []*Node {
	return self.Nodes(NodeTypeTest)
}

func (self *EntityStore) Docs() []*Node {
	return self.Nodes(NodeTypeDoc)
}

func (self *EntityStore) Milestones() []*Node {
	return self.Nodes(NodeTypeMilestone)
}

func (self *EntityStore) Queues() []*Node {
	return self.Nodes(NodeTypeQueue)
}

func (self *EntityStore) Agents() []*Node {
	return self.Nodes(NodeTypeAgent)
}

// Edges returns the live edge list.
func (self *EntityStore) Edges() []*Edge {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.edges
}

func (self *EntityStore) AddEdge(edge *Edge) {
	var edges []*Edge
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		self.edges = append(self.edges, edge)
		edges = self.edges
	}()
	self.registry.Set(PathEdges, edges)
}

// RemoveEdge removes the first edge matching source, target, and edge type.
// Removing an absent edge is a no-op.
func (self *EntityStore) RemoveEdge(edge *Edge) {
	var edges []*Edge
	removed := false
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		for i, existing := range self.edges {
			if existing.SameRelation(edge) {
				self.edges = append(self.edges[:i], self.edges[i+1:]...)
				removed = true
				break
			}
		}
		edges = self.edges
	}()
	if removed {
		self.registry.Set(PathEdges, edges)
	}
}

// FindEdge returns the first stored edge matching source, target, and edge
// type.
func (self *EntityStore) FindEdge(source string, target string, edgeType EdgeType) *Edge {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	probe := &Edge{
		Source:   source,
		Target:   target,
		EdgeType: edgeType,
	}
	for _, existing := range self.edges {
		if existing.SameRelation(probe) {
			return existing
		}
	}
	return nil
}

// ApplySnapshot replaces the full store contents with the snapshot's nodes
// and edges. Each collection is fully rebuilt before its single
// notification fires. Nodes with an unknown type are dropped; the snapshot
// is advisory like the event stream.
func (self *EntityStore) ApplySnapshot(snapshot *Snapshot) {
	collections := map[NodeType][]*Node{}
	for _, nodeType := range NodeTypes {
		collections[nodeType] = []*Node{}
	}
	for _, node := range snapshot.Nodes {
		if node == nil || node.Id == "" || !node.Type.IsValid() {
			continue
		}
		collections[node.Type] = append(collections[node.Type], node)
	}
	edges := []*Edge{}
	for _, edge := range snapshot.Edges {
		if edge == nil || edge.Source == "" || edge.Target == "" {
			continue
		}
		edges = append(edges, edge)
	}

	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		self.collections = collections
		self.edges = edges
	}()

	for _, nodeType := range NodeTypes {
		self.registry.Set(entityPath(nodeType), collections[nodeType])
	}
	self.registry.Set(PathEdges, edges)
}
