package board

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestRegistryExactMatch(t *testing.T) {
	registry := NewPathRegistry()

	count := 0
	var lastPath string
	var lastValue any
	unsub := registry.Subscribe("ui.selectedNode", func(path string, value any) {
		count += 1
		lastPath = path
		lastValue = value
	})
	defer unsub()

	registry.Set("ui.selectedNode", "t-1")
	assert.Equal(t, 1, count)
	assert.Equal(t, "ui.selectedNode", lastPath)
	assert.Equal(t, "t-1", lastValue)

	// unrelated write does not fire
	registry.Set("ui.sidebarCollapsed", true)
	assert.Equal(t, 1, count)

	// exactly once per set
	registry.Set("ui.selectedNode", "t-2")
	assert.Equal(t, 2, count)
	assert.Equal(t, "t-2", lastValue)
}

func TestRegistryWildcardMatch(t *testing.T) {
	registry := NewPathRegistry()

	paths := []string{}
	unsub := registry.Subscribe("entities.*", func(path string, value any) {
		paths = append(paths, path)
	})
	defer unsub()

	registry.Set("entities.tasks", []string{"t-1"})
	registry.Set("entities.agents", []string{"a-1"})
	registry.Set("ui.selectedNode", "t-1")

	assert.Equal(t, []string{"entities.tasks", "entities.agents"}, paths)
}

func TestRegistryAncestorMatch(t *testing.T) {
	registry := NewPathRegistry()

	count := 0
	unsub := registry.Subscribe("entities", func(path string, value any) {
		count += 1
	})
	defer unsub()

	registry.Set("entities.tasks", []string{"t-1"})
	assert.Equal(t, 1, count)

	// a write at the subscribed path itself also fires
	registry.Set("entities", nil)
	assert.Equal(t, 2, count)
}

func TestRegistryNotificationOrder(t *testing.T) {
	registry := NewPathRegistry()

	order := []string{}
	unsubA := registry.Subscribe("entities.tasks", func(path string, value any) {
		order = append(order, "a")
	})
	defer unsubA()
	unsubB := registry.Subscribe("entities.*", func(path string, value any) {
		order = append(order, "b")
	})
	defer unsubB()
	unsubC := registry.Subscribe("entities.tasks", func(path string, value any) {
		order = append(order, "c")
	})
	defer unsubC()

	registry.Set("entities.tasks", nil)

	// registration order, all before Set returns
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestRegistryUnsubscribe(t *testing.T) {
	registry := NewPathRegistry()

	count := 0
	unsub := registry.Subscribe("connectionStatus", func(path string, value any) {
		count += 1
	})

	registry.Set("connectionStatus", StatusConnecting)
	unsub()
	registry.Set("connectionStatus", StatusConnected)

	assert.Equal(t, 1, count)
}

func TestRegistryGet(t *testing.T) {
	registry := NewPathRegistry()

	_, ok := registry.Get("entities.tasks")
	assert.Equal(t, false, ok)

	registry.Set("entities.tasks", []string{"t-1"})
	value, ok := registry.Get("entities.tasks")
	assert.Equal(t, true, ok)
	assert.Equal(t, []string{"t-1"}, value)

	// no wildcard semantics on reads
	_, ok = registry.Get("entities.*")
	assert.Equal(t, false, ok)
}

func TestRegistrySubscribeNeverWrittenPath(t *testing.T) {
	registry := NewPathRegistry()

	count := 0
	unsub := registry.Subscribe("ui.some.dynamic.path", func(path string, value any) {
		count += 1
	})
	defer unsub()

	registry.Set("ui.other", 1)
	assert.Equal(t, 0, count)
}

func TestRegistryRecoversPanickingSubscriber(t *testing.T) {
	registry := NewPathRegistry()

	count := 0
	unsubA := registry.Subscribe("x", func(path string, value any) {
		panic("broken consumer")
	})
	defer unsubA()
	unsubB := registry.Subscribe("x", func(path string, value any) {
		count += 1
	})
	defer unsubB()

	registry.Set("x", 1)
	assert.Equal(t, 1, count)
}
