package board

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestSelectionRoundTrip(t *testing.T) {
	registry := NewPathRegistry()
	selection := NewSelectionManager(registry)

	selection.SetSelectedNodes([]string{"a", "b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, selection.SelectedNodes())
	// the derived single selection is the most recently added id
	assert.Equal(t, "c", selection.SelectedNode())

	selection.ClearSelection()
	assert.Equal(t, []string{}, selection.SelectedNodes())
	assert.Equal(t, "", selection.SelectedNode())
}

func TestSelectionToggle(t *testing.T) {
	registry := NewPathRegistry()
	selection := NewSelectionManager(registry)

	selection.ToggleSelection("a", false)
	selection.ToggleSelection("b", false)
	assert.Equal(t, []string{"a", "b"}, selection.SelectedNodes())
	assert.Equal(t, "b", selection.SelectedNode())

	// toggling off preserves the order of the rest
	selection.ToggleSelection("a", false)
	assert.Equal(t, []string{"b"}, selection.SelectedNodes())

	// clearOthers collapses to a single selection
	selection.ToggleSelection("c", true)
	assert.Equal(t, []string{"c"}, selection.SelectedNodes())

	// clearOthers on the sole selection clears it
	selection.ToggleSelection("c", true)
	assert.Equal(t, []string{}, selection.SelectedNodes())
}

func TestSelectionSelectAll(t *testing.T) {
	registry := NewPathRegistry()
	selection := NewSelectionManager(registry)

	selection.ToggleSelection("x", false)
	selection.SelectAll([]string{"a", "b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, selection.SelectedNodes())
}

func TestSelectionPublishes(t *testing.T) {
	registry := NewPathRegistry()
	selection := NewSelectionManager(registry)

	var publishedNodes any
	var publishedNode any
	unsubA := registry.Subscribe(PathSelectedNodes, func(path string, value any) {
		publishedNodes = value
	})
	defer unsubA()
	unsubB := registry.Subscribe(PathSelectedNode, func(path string, value any) {
		publishedNode = value
	})
	defer unsubB()

	selection.SetSelectedNodes([]string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, publishedNodes)
	assert.Equal(t, "b", publishedNode)
}
