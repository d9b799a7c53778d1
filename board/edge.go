package board

import (
	"time"
)

type EdgeType string

const (
	EdgeTypeDependsOn     EdgeType = "depends_on"
	EdgeTypeBlocks        EdgeType = "blocks"
	EdgeTypeChildOf       EdgeType = "child_of"
	EdgeTypeParentOf      EdgeType = "parent_of"
	EdgeTypeRelatedTo     EdgeType = "related_to"
	EdgeTypeTests         EdgeType = "tests"
	EdgeTypeDocuments     EdgeType = "documents"
	EdgeTypeQueued        EdgeType = "queued"
	EdgeTypeWorkingOn     EdgeType = "working_on"
	EdgeTypeInformational EdgeType = "informational"
)

var EdgeTypes = []EdgeType{
	EdgeTypeDependsOn,
	EdgeTypeBlocks,
	EdgeTypeChildOf,
	EdgeTypeParentOf,
	EdgeTypeRelatedTo,
	EdgeTypeTests,
	EdgeTypeDocuments,
	EdgeTypeQueued,
	EdgeTypeWorkingOn,
	EdgeTypeInformational,
}

func (self EdgeType) IsValid() bool {
	for _, edgeType := range EdgeTypes {
		if self == edgeType {
			return true
		}
	}
	return false
}

// Edge is a directed typed relation between two node ids. The store does not
// deduplicate edges. Multiple edges of different types may exist between the
// same pair; the server owns that bookkeeping.
type Edge struct {
	Source        string     `json:"source"`
	Target        string     `json:"target"`
	EdgeType      EdgeType   `json:"edge_type"`
	Reason        string     `json:"reason,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	Bidirectional bool       `json:"bidirectional,omitempty"`
}

func (self *Edge) Clone() *Edge {
	if self == nil {
		return nil
	}
	edge := *self
	edge.CreatedAt = cloneTime(self.CreatedAt)
	return &edge
}

// two edges are the same relation if they connect the same pair with the
// same type, regardless of reason or timestamps
func (self *Edge) SameRelation(other *Edge) bool {
	return self.Source == other.Source &&
		self.Target == other.Target &&
		self.EdgeType == other.EdgeType
}

type EdgeDirection string

const (
	EdgeDirectionOut EdgeDirection = "out"
	EdgeDirectionIn  EdgeDirection = "in"
)

// EdgeRef is the derived per-node view of one edge, as returned by
// `NodeWithEdges`.
type EdgeRef struct {
	EdgeType  EdgeType      `json:"edge_type"`
	RelatedId string        `json:"related_id"`
	Direction EdgeDirection `json:"direction"`
}
