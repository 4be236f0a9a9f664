package pluggable

import (
	"fmt"
	"io"
	"log"
	"sort"
	"sync"

	"github.com/hashicorp/errwrap"
	"github.com/silas/dag"
)

// GraphNode is a vertex in the PluginsGraph
type GraphNode struct {
	name   string
	plugin Plugin
}

// NewGraphNode creates a node with the given name for p, p can be nil
func NewGraphNode(name string, p Plugin) *GraphNode {
	return &GraphNode{name: name, plugin: p}
}

// Name implements dag.NamedVertex
func (n *GraphNode) Name() string {
	return n.name
}

// Plugin returns the plugin the node was created for
func (n *GraphNode) Plugin() Plugin {
	return n.plugin
}

// PluginsGraph records the topology of activated plugins for
// introspection. It is not used to order activation.
type PluginsGraph struct {
	mu    sync.RWMutex
	graph *dag.AcyclicGraph
	nodes map[string]*GraphNode
}

// NewPluginsGraph creates an empty graph
func NewPluginsGraph() *PluginsGraph {
	return &PluginsGraph{
		graph: &dag.AcyclicGraph{},
		nodes: map[string]*GraphNode{},
	}
}

// AddNode adds n to the graph and returns it. Adding a node that is already
// in the graph is a no-op. When another node has the same name n is renamed
// with a numeric suffix, name#2, name#3 and so on. A nil node is ignored.
func (g *PluginsGraph) AddNode(n *GraphNode) *GraphNode {
	if n == nil {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.nodes[n.name]; ok {
		if existing == n {
			return n
		}

		n.name = g.uniqueName(n.name)
	}

	g.nodes[n.name] = n
	g.graph.Add(n)

	return n
}

// uniqueName must be called with the lock held
func (g *PluginsGraph) uniqueName(name string) string {
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s#%d", name, i)
		if _, ok := g.nodes[candidate]; !ok {
			return candidate
		}
	}
}

// Remove removes n and its edges, nothing is removed when the node stored
// under the name of n is a different node
func (g *PluginsGraph) Remove(n *GraphNode) bool {
	if n == nil {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.nodes[n.name]; !ok || existing != n {
		return false
	}

	delete(g.nodes, n.name)
	g.graph.Remove(n)

	return true
}

// RemoveNode removes the node with the given name and any edges
func (g *PluginsGraph) RemoveNode(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[name]
	if !ok {
		return false
	}

	delete(g.nodes, name)
	g.graph.Remove(n)

	return true
}

// Node returns the node with the given name
func (g *PluginsGraph) Node(name string) (*GraphNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[name]
	return n, ok
}

// HasNode returns true when a node with the given name exists
func (g *PluginsGraph) HasNode(name string) bool {
	_, ok := g.Node(name)
	return ok
}

// Len returns the number of nodes
func (g *PluginsGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.nodes)
}

// Nodes returns all nodes sorted by name
func (g *PluginsGraph) Nodes() []*GraphNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]*GraphNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].name < nodes[j].name })

	return nodes
}

// Connect adds an edge meaning that the node named to depends on the node
// named from
func (g *PluginsGraph) Connect(from, to string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	f, ok := g.nodes[from]
	if !ok {
		return fmt.Errorf("graph node %q not found", from)
	}

	t, ok := g.nodes[to]
	if !ok {
		return fmt.Errorf("graph node %q not found", to)
	}

	e := dag.BasicEdge(f, t)
	g.graph.Connect(e)

	// the graph can have many roots, only cycles are refused
	if cycles := g.graph.Cycles(); len(cycles) > 0 {
		g.graph.RemoveEdge(e)
		return fmt.Errorf("unable to connect %s to %s: edge creates a cycle", from, to)
	}

	return nil
}

// Walk calls fn for every node, dependencies are visited before their
// dependents. Errors returned by fn are collected and returned.
func (g *PluginsGraph) Walk(fn func(n *GraphNode) error) []error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.nodes) == 0 {
		return nil
	}

	w := dag.Walker{}
	w.Callback = func(v dag.Vertex) (diags dag.Diagnostics) {
		n, ok := v.(*GraphNode)
		if !ok {
			return nil
		}

		if err := fn(n); err != nil {
			return diags.Append(err)
		}

		return nil
	}

	// the walker logs every vertex
	log.SetOutput(io.Discard)

	w.Update(g.graph)
	diags := w.Wait()
	if diags.HasErrors() {
		if wrapper, ok := diags.Err().(errwrap.Wrapper); ok {
			return wrapper.WrappedErrors()
		}

		return []error{diags.Err()}
	}

	return nil
}
