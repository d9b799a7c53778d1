package board

import (
	"encoding/json"
	"fmt"
)

type EventType string

const (
	EventTypeEntityAdded   EventType = "entity_added"
	EventTypeEntityUpdated EventType = "entity_updated"
	EventTypeEntityRemoved EventType = "entity_removed"
	EventTypeEdgeAdded     EventType = "edge_added"
	EventTypeEdgeRemoved   EventType = "edge_removed"
	// full graph seed, sent in response to a resync request and as the
	// first message after connect
	EventTypeSnapshot EventType = "snapshot"
)

// Event is the envelope for one inbound protocol message. Which payload
// fields are set depends on `Type`.
type Event struct {
	Type       EventType `json:"type"`
	EntityType NodeType  `json:"entity_type,omitempty"`
	Node       *Node     `json:"node,omitempty"`
	Id         string    `json:"id,omitempty"`
	Edge       *Edge     `json:"edge,omitempty"`
	Snapshot   *Snapshot `json:"snapshot,omitempty"`
}

// Snapshot is the full node/edge set, used both for live resync seeds and
// for one-shot archive payloads.
type Snapshot struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// resync request sent by the client after the live transport connects
type resyncRequest struct {
	Type string `json:"type"`
}

const resyncRequestType = "resync"

// ParseEvent decodes and validates one wire message. The event stream is
// advisory. Callers drop malformed events and continue.
func ParseEvent(message []byte) (*Event, error) {
	event := &Event{}
	if err := json.Unmarshal(message, event); err != nil {
		return nil, err
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}

func (self *Event) Validate() error {
	switch self.Type {
	case EventTypeEntityAdded, EventTypeEntityUpdated:
		if !self.EntityType.IsValid() {
			return fmt.Errorf("%s: unknown entity type %q", self.Type, self.EntityType)
		}
		if self.Node == nil || self.Node.Id == "" {
			return fmt.Errorf("%s: missing node", self.Type)
		}
	case EventTypeEntityRemoved:
		if !self.EntityType.IsValid() {
			return fmt.Errorf("%s: unknown entity type %q", self.Type, self.EntityType)
		}
		if self.Id == "" {
			return fmt.Errorf("%s: missing id", self.Type)
		}
	case EventTypeEdgeAdded, EventTypeEdgeRemoved:
		if self.Edge == nil {
			return fmt.Errorf("%s: missing edge", self.Type)
		}
		if self.Edge.Source == "" || self.Edge.Target == "" {
			return fmt.Errorf("%s: edge missing endpoint", self.Type)
		}
		if !self.Edge.EdgeType.IsValid() {
			return fmt.Errorf("%s: unknown edge type %q", self.Type, self.Edge.EdgeType)
		}
	case EventTypeSnapshot:
		if self.Snapshot == nil {
			return fmt.Errorf("%s: missing snapshot", self.Type)
		}
	default:
		return fmt.Errorf("unknown event type %q", self.Type)
	}
	return nil
}
