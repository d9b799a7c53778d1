package board

import (
	"slices"
	"time"
)

// default priority for nodes created without an explicit priority.
// priorities run 0 (highest) to 4 (lowest).
const DefaultPriority = 2

type NodeType string

const (
	NodeTypeTask      NodeType = "task"
	NodeTypeBug       NodeType = "bug"
	NodeTypeIdea      NodeType = "idea"
	NodeTypeTest      NodeType = "test"
	NodeTypeDoc       NodeType = "doc"
	NodeTypeMilestone NodeType = "milestone"
	NodeTypeQueue     NodeType = "queue"
	NodeTypeAgent     NodeType = "agent"
)

// collection scan order for `Node` lookups
var NodeTypes = []NodeType{
	NodeTypeTask,
	NodeTypeBug,
	NodeTypeIdea,
	NodeTypeTest,
	NodeTypeDoc,
	NodeTypeMilestone,
	NodeTypeQueue,
	NodeTypeAgent,
}

func (self NodeType) IsValid() bool {
	return slices.Contains(NodeTypes, self)
}

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusDone       Status = "done"
	StatusClosed     Status = "closed"

	// agent statuses
	StatusRunning Status = "running"
	StatusIdle    Status = "idle"
	StatusStuck   Status = "stuck"
	StatusStopped Status = "stopped"
)

// Node is one typed entity in the graph. The variant payload is flattened
// into optional fields, matching the server's wire shape. `Id` is immutable
// once created and globally unique across all collections.
type Node struct {
	Id        string     `json:"id"`
	Type      NodeType   `json:"type"`
	Status    Status     `json:"status,omitempty"`
	Title     string     `json:"title,omitempty"`
	ShortName string     `json:"short_name,omitempty"`
	Priority  int        `json:"priority,omitempty"`
	Assignee  string     `json:"assignee,omitempty"`
	Labels    []string   `json:"labels,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`

	// agent variant
	Pid           int        `json:"pid,omitempty"`
	ContainerId   string     `json:"container_id,omitempty"`
	AgentState    string     `json:"agent_state,omitempty"`
	LastHeartbeat *time.Time `json:"last_heartbeat,omitempty"`

	// doc variant
	Content string `json:"content,omitempty"`
	DocType string `json:"doc_type,omitempty"`
}

// Clone returns a deep copy. Optimistic actions snapshot nodes with this
// before a speculative write so a failed request can restore the exact
// pre-mutation value.
func (self *Node) Clone() *Node {
	if self == nil {
		return nil
	}
	node := *self
	node.Labels = slices.Clone(self.Labels)
	node.CreatedAt = cloneTime(self.CreatedAt)
	node.UpdatedAt = cloneTime(self.UpdatedAt)
	node.ClosedAt = cloneTime(self.ClosedAt)
	node.LastHeartbeat = cloneTime(self.LastHeartbeat)
	return &node
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
