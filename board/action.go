package board

import (
	"errors"
	"time"

	"github.com/golang/glog"
)

var ErrReadonly = errors.New("session is readonly")

// registry path for transient user-visible failure notices
const PathNotice = "ui.notice"

type NoticeLevel string

const (
	NoticeLevelError NoticeLevel = "error"
)

// Notice is a transient user-visible notification, published at `ui.notice`.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

type readonlySource interface {
	IsReadonly() bool
}

// ActionManager issues optimistic mutations: apply the intended end state to
// the store synchronously so consumers re-render without waiting on the
// network, then issue the request. On failure the store is reverted to the
// exact pre-mutation value and a transient notice is published. On success
// nothing further happens locally; the authoritative update arrives through
// the normal event stream and supersedes the optimistic value.
//
// No locking prevents a second action against optimistically-updated state
// that is not yet confirmed. That is an accepted risk of the
// apply-then-reconcile model.
type ActionManager struct {
	store      *EntityStore
	registry   *PathRegistry
	connection readonlySource
	api        *DashboardApi
}

func NewActionManager(
	store *EntityStore,
	registry *PathRegistry,
	connection readonlySource,
	api *DashboardApi,
) *ActionManager {
	return &ActionManager{
		store:      store,
		registry:   registry,
		connection: connection,
		api:        api,
	}
}

// TerminateAgent optimistically marks the agent stopped and requests
// termination.
func (self *ActionManager) TerminateAgent(agentId string) error {
	if self.connection.IsReadonly() {
		return ErrReadonly
	}

	node, err := self.store.Node(agentId)
	if err != nil {
		return err
	}
	previous := node.Clone()

	next := node.Clone()
	next.Status = StatusStopped
	next.AgentState = string(StatusStopped)
	if err := self.store.Upsert(NodeTypeAgent, next); err != nil {
		return err
	}

	self.api.TerminateAgent(&TerminateAgentArgs{
		AgentId: agentId,
	}, NewApiCallback(func(result *TerminateAgentResult, err error) {
		if err != nil {
			self.rollbackNode(NodeTypeAgent, previous)
			self.notifyFailure("terminate agent", err)
		}
	}))
	return nil
}

// QueueToggle optimistically adds or removes the queue membership edge for
// `nodeId` on `queueId` and requests the toggle.
func (self *ActionManager) QueueToggle(queueId string, nodeId string) error {
	if self.connection.IsReadonly() {
		return ErrReadonly
	}

	existing := self.store.FindEdge(nodeId, queueId, EdgeTypeQueued)
	if existing != nil {
		removed := existing.Clone()
		self.store.RemoveEdge(existing)
		self.api.QueueToggle(&QueueToggleArgs{
			QueueId: queueId,
			NodeId:  nodeId,
		}, NewApiCallback(func(result *QueueToggleResult, err error) {
			if err != nil {
				self.store.AddEdge(removed)
				self.notifyFailure("queue toggle", err)
			}
		}))
		return nil
	}

	now := time.Now()
	added := &Edge{
		Source:    nodeId,
		Target:    queueId,
		EdgeType:  EdgeTypeQueued,
		CreatedAt: &now,
	}
	self.store.AddEdge(added)
	self.api.QueueToggle(&QueueToggleArgs{
		QueueId: queueId,
		NodeId:  nodeId,
	}, NewApiCallback(func(result *QueueToggleResult, err error) {
		if err != nil {
			self.store.RemoveEdge(added)
			self.notifyFailure("queue toggle", err)
		}
	}))
	return nil
}

// CreateRelationship optimistically adds the edge and requests its
// creation.
func (self *ActionManager) CreateRelationship(source string, target string, edgeType EdgeType, reason string) error {
	if self.connection.IsReadonly() {
		return ErrReadonly
	}
	if !edgeType.IsValid() {
		return errors.New("unknown edge type")
	}

	now := time.Now()
	added := &Edge{
		Source:    source,
		Target:    target,
		EdgeType:  edgeType,
		Reason:    reason,
		CreatedAt: &now,
	}
	self.store.AddEdge(added)
	self.api.CreateRelationship(&CreateRelationshipArgs{
		Source:   source,
		Target:   target,
		EdgeType: edgeType,
		Reason:   reason,
	}, NewApiCallback(func(result *CreateRelationshipResult, err error) {
		if err != nil {
			self.store.RemoveEdge(added)
			self.notifyFailure("create relationship", err)
		}
	}))
	return nil
}

func (self *ActionManager) rollbackNode(nodeType NodeType, previous *Node) {
	if err := self.store.Upsert(nodeType, previous); err != nil {
		glog.Infof("[action]rollback %s error = %s\n", previous.Id, err)
	}
}

func (self *ActionManager) notifyFailure(action string, err error) {
	glog.Infof("[action]%s failed = %s\n", action, err)
	self.registry.Set(PathNotice, &Notice{
		Level:   NoticeLevelError,
		Message: action + " failed: " + err.Error(),
	})
}
