package pluggable

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGraphAddNodeIsIdempotentForTheSameNode(t *testing.T) {
	g := NewPluginsGraph()

	n := NewGraphNode("one", nil)

	require.Same(t, n, g.AddNode(n))
	require.Same(t, n, g.AddNode(n))
	require.Equal(t, 1, g.Len())
	require.Equal(t, "one", n.Name())
}

func TestGraphAddNodeRenamesCollidingNodes(t *testing.T) {
	g := NewPluginsGraph()

	first := g.AddNode(NewGraphNode("hello.sh", nil))
	second := g.AddNode(NewGraphNode("hello.sh", nil))
	third := g.AddNode(NewGraphNode("hello.sh", nil))

	require.NotSame(t, first, second)
	require.Equal(t, "hello.sh", first.Name())
	require.Equal(t, "hello.sh#2", second.Name())
	require.Equal(t, "hello.sh#3", third.Name())
	require.Equal(t, 3, g.Len())
}

func TestGraphAddNodeIgnoresNil(t *testing.T) {
	g := NewPluginsGraph()

	require.Nil(t, g.AddNode(nil))
	require.False(t, g.Remove(nil))
	require.Equal(t, 0, g.Len())
}

func TestGraphRemoveOnlyRemovesTheSameNode(t *testing.T) {
	g := NewPluginsGraph()

	mine := g.AddNode(NewGraphNode("hello.sh", nil))
	other := NewGraphNode("hello.sh", nil)

	require.False(t, g.Remove(other))
	require.True(t, g.HasNode("hello.sh"))

	require.True(t, g.Remove(mine))
	require.False(t, g.Remove(mine))
	require.False(t, g.HasNode("hello.sh"))
}

func TestGraphRemoveNode(t *testing.T) {
	g := NewPluginsGraph()
	g.AddNode(NewGraphNode("one", nil))

	require.True(t, g.RemoveNode("one"))
	require.False(t, g.RemoveNode("one"))
	require.False(t, g.HasNode("one"))
}

func TestGraphNodesAreSortedByName(t *testing.T) {
	g := NewPluginsGraph()
	g.AddNode(NewGraphNode("b", nil))
	g.AddNode(NewGraphNode("a", nil))
	g.AddNode(NewGraphNode("c", nil))

	names := []string{}
	for _, n := range g.Nodes() {
		names = append(names, n.Name())
	}

	require.Equal(t, []string{"a", "b", "c"}, names)
}

func TestGraphConnectRejectsUnknownNodes(t *testing.T) {
	g := NewPluginsGraph()
	g.AddNode(NewGraphNode("one", nil))

	err := g.Connect("one", "two")
	require.ErrorContains(t, err, `graph node "two" not found`)
}

func TestGraphConnectAllowsManyRoots(t *testing.T) {
	g := NewPluginsGraph()
	g.AddNode(NewGraphNode("db", nil))
	g.AddNode(NewGraphNode("cache", nil))
	g.AddNode(NewGraphNode("api", nil))

	require.NoError(t, g.Connect("db", "api"))
	require.NoError(t, g.Connect("cache", "api"))
}

func TestGraphConnectRejectsCycles(t *testing.T) {
	g := NewPluginsGraph()
	g.AddNode(NewGraphNode("one", nil))
	g.AddNode(NewGraphNode("two", nil))

	require.NoError(t, g.Connect("one", "two"))

	err := g.Connect("two", "one")
	require.ErrorContains(t, err, "unable to connect two to one")
}

func TestGraphWalkVisitsDependenciesFirst(t *testing.T) {
	g := NewPluginsGraph()
	g.AddNode(NewGraphNode("db", nil))
	g.AddNode(NewGraphNode("api", nil))
	g.AddNode(NewGraphNode("web", nil))

	require.NoError(t, g.Connect("db", "api"))
	require.NoError(t, g.Connect("api", "web"))

	mu := sync.Mutex{}
	order := []string{}

	errs := g.Walk(func(n *GraphNode) error {
		mu.Lock()
		defer mu.Unlock()

		order = append(order, n.Name())
		return nil
	})

	require.Empty(t, errs)
	require.Equal(t, []string{"db", "api", "web"}, order)
}

func TestGraphWalkCollectsErrors(t *testing.T) {
	g := NewPluginsGraph()
	g.AddNode(NewGraphNode("one", nil))

	errs := g.Walk(func(n *GraphNode) error {
		return fmt.Errorf("failed %s", n.Name())
	})

	require.Len(t, errs, 1)
	require.ErrorContains(t, errs[0], "failed one")
}

func TestGraphWalkEmptyGraph(t *testing.T) {
	require.Empty(t, NewPluginsGraph().Walk(func(n *GraphNode) error { return nil }))
}
