package board

import (
	"slices"
	"sync"
)

// registry paths for selection state
const (
	PathSelectedNodes = "ui.selectedNodes"
	PathSelectedNode  = "ui.selectedNode"
)

// SelectionManager holds the ordered set of selected node ids. Order is
// selection order. The derived single selection is the most recently added
// id, kept for consumers that have not migrated to multi-selection; when
// multiple nodes are selected "the" selection is the last one added, which
// is a documented quirk rather than a bug.
type SelectionManager struct {
	registry *PathRegistry

	stateLock   sync.Mutex
	selectedIds []string
}

func NewSelectionManager(registry *PathRegistry) *SelectionManager {
	return &SelectionManager{
		registry:    registry,
		selectedIds: []string{},
	}
}

// ToggleSelection adds or removes `nodeId`. With `clearOthers`, the
// selection collapses to just `nodeId`, or to empty if `nodeId` was already
// the sole selection.
func (self *SelectionManager) ToggleSelection(nodeId string, clearOthers bool) {
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()

		if clearOthers {
			if len(self.selectedIds) == 1 && self.selectedIds[0] == nodeId {
				self.selectedIds = []string{}
			} else {
				self.selectedIds = []string{nodeId}
			}
			return
		}

		if i := slices.Index(self.selectedIds, nodeId); 0 <= i {
			self.selectedIds = append(self.selectedIds[:i], self.selectedIds[i+1:]...)
		} else {
			self.selectedIds = append(self.selectedIds, nodeId)
		}
	}()
	self.publish()
}

func (self *SelectionManager) SetSelectedNodes(nodeIds []string) {
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		self.selectedIds = slices.Clone(nodeIds)
	}()
	self.publish()
}

func (self *SelectionManager) ClearSelection() {
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		self.selectedIds = []string{}
	}()
	self.publish()
}

// SelectAll replaces the selection with the caller's currently visible
// nodes, preserving their display order.
func (self *SelectionManager) SelectAll(visibleNodeIds []string) {
	self.SetSelectedNodes(visibleNodeIds)
}

func (self *SelectionManager) SelectedNodes() []string {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return slices.Clone(self.selectedIds)
}

// SelectedNode is the derived single selection: the most recently added id,
// or "" when nothing is selected.
func (self *SelectionManager) SelectedNode() string {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	if len(self.selectedIds) == 0 {
		return ""
	}
	return self.selectedIds[len(self.selectedIds)-1]
}

func (self *SelectionManager) publish() {
	self.registry.Set(PathSelectedNodes, self.SelectedNodes())
	self.registry.Set(PathSelectedNode, self.SelectedNode())
}
