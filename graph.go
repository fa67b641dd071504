package bubblemind

import (
	"math/rand/v2"
	"slices"
)

// findTolerance widens the hit radius for stroke endpoints so a line that
// starts just outside a bubble's rim still attaches to it.
const findTolerance = 10.0

// Node is one bubble on the canvas.
type Node struct {
	// LocalID is assigned at creation and stable for the session.
	LocalID string
	// RemoteID is nil until the backend confirms the node.
	RemoteID *int64

	Position  Vec2
	Size      float64 // diameter in logical units
	Text      string
	Kind      Kind
	TopicName string
	State     NodeState
	Color     int // index into Palette

	removed bool
}

// Confirmed reports whether the backend holds a record for this node.
func (n *Node) Confirmed() bool { return n.RemoteID != nil }

// Radius returns half the node's size.
func (n *Node) Radius() float64 { return n.Size / 2 }

// Removed reports whether the node has left the graph.
func (n *Node) Removed() bool { return n.removed }

// Contains reports whether p lies within the node's circle.
func (n *Node) Contains(p Vec2) bool {
	return Distance(n.Position, p) <= n.Radius()
}

// RemoteIDValue returns the remote id, or 0 and false when unconfirmed.
func (n *Node) RemoteIDValue() (int64, bool) {
	if n.RemoteID == nil {
		return 0, false
	}
	return *n.RemoteID, true
}

// Edge is a directed parent to child connection between two nodes.
type Edge struct {
	LocalID string
	Source  *Node
	Target  *Node
	// Pending is true until the backend confirms the connection.
	Pending bool

	removed bool
}

// Touches reports whether n is either endpoint.
func (e *Edge) Touches(n *Node) bool {
	return e.Source == n || e.Target == n
}

// Connects reports whether the edge joins a and b in either direction.
func (e *Edge) Connects(a, b *Node) bool {
	return (e.Source == a && e.Target == b) || (e.Source == b && e.Target == a)
}

// Removed reports whether the edge has left the graph.
func (e *Edge) Removed() bool { return e.removed }

// NodeSpec describes a node to create. A zero Size picks a random diameter
// between MinBubbleSize and MaxBubbleSize.
type NodeSpec struct {
	Position  Vec2
	Text      string
	Size      float64
	Kind      Kind
	TopicName string
	Color     int
}

// ChangeEvent describes one mutation of the graph or canvas.
type ChangeEvent struct {
	Type EventType
	Node *Node
	Edge *Edge
	// Stroke is set for EventInkErased.
	Stroke []Vec2
}

// EventSink is the interface for optional ECS integration.
// When set on a Graph, change events are forwarded to it after the
// registered callbacks run.
type EventSink interface {
	EmitEvent(event ChangeEvent)
}

// --- Handler registry ---

type changeHandler struct {
	id uint32
	fn func(ChangeEvent)
}

type handlerRegistry struct {
	change []changeHandler
	nextID uint32
}

// CallbackHandle allows removing a registered change callback.
type CallbackHandle struct {
	id  uint32
	reg *handlerRegistry
}

// Remove unregisters this callback so it no longer fires.
func (h CallbackHandle) Remove() {
	if h.reg == nil {
		return
	}
	s := h.reg.change
	for i := range s {
		if s[i].id == h.id {
			copy(s[i:], s[i+1:])
			s[len(s)-1] = changeHandler{}
			h.reg.change = s[:len(s)-1]
			return
		}
	}
}

// Graph owns the nodes and edges of one canvas. It is not safe for
// concurrent use; all mutation happens on the event loop.
type Graph struct {
	nodes    []*Node
	edges    []*Edge
	handlers handlerRegistry
	sink     EventSink
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// OnChange registers a callback fired after every mutation.
func (g *Graph) OnChange(fn func(ChangeEvent)) CallbackHandle {
	g.handlers.nextID++
	id := g.handlers.nextID
	g.handlers.change = append(g.handlers.change, changeHandler{id: id, fn: fn})
	return CallbackHandle{id: id, reg: &g.handlers}
}

// SetEventSink forwards change events to an ECS or other consumer.
// Pass nil to detach.
func (g *Graph) SetEventSink(sink EventSink) {
	g.sink = sink
}

func (g *Graph) emit(ev ChangeEvent) {
	// Handlers may remove themselves while the event is delivered.
	for _, h := range slices.Clone(g.handlers.change) {
		h.fn(ev)
	}
	if g.sink != nil {
		g.sink.EmitEvent(ev)
	}
}

// Emit publishes an event that did not originate in the graph itself, such
// as a transform change or an ink erase.
func (g *Graph) Emit(ev ChangeEvent) {
	g.emit(ev)
}

// --- Nodes ---

// CreateNode inserts an unconfirmed node built from ns.
func (g *Graph) CreateNode(ns NodeSpec) *Node {
	size := ns.Size
	if size <= 0 {
		size = MinBubbleSize + rand.Float64()*(MaxBubbleSize-MinBubbleSize)
	}
	n := &Node{
		LocalID:   NewID(),
		Position:  ns.Position,
		Size:      size,
		Text:      ns.Text,
		Kind:      ns.Kind,
		TopicName: ns.TopicName,
		Color:     ns.Color,
		State:     NodeLocal,
	}
	g.nodes = append(g.nodes, n)
	g.emit(ChangeEvent{Type: EventNodeAdded, Node: n})
	return n
}

// FindNodeAt returns the first node, in creation order, whose center lies
// within its radius plus a 10 unit tolerance of (x, y). The first match wins
// even when a later node is closer.
func (g *Graph) FindNodeAt(x, y float64) *Node {
	p := Vec2{x, y}
	for _, n := range g.nodes {
		if Distance(n.Position, p) <= n.Radius()+findTolerance {
			return n
		}
	}
	return nil
}

// NodeUnder returns the topmost node whose circle contains (x, y), with no
// tolerance. Later nodes are drawn above earlier ones.
func (g *Graph) NodeUnder(x, y float64) *Node {
	p := Vec2{x, y}
	for i := len(g.nodes) - 1; i >= 0; i-- {
		if g.nodes[i].Contains(p) {
			return g.nodes[i]
		}
	}
	return nil
}

// RemoveNode removes n and every edge referencing it. Reports false if n was
// not in the graph.
func (g *Graph) RemoveNode(n *Node) bool {
	idx := g.nodeIndex(n)
	if idx < 0 {
		return false
	}
	for _, e := range g.EdgesOf(n) {
		g.RemoveEdge(e)
	}
	copy(g.nodes[idx:], g.nodes[idx+1:])
	g.nodes[len(g.nodes)-1] = nil
	g.nodes = g.nodes[:len(g.nodes)-1]
	n.removed = true
	g.emit(ChangeEvent{Type: EventNodeRemoved, Node: n})
	return true
}

// Has reports whether n is currently in the graph.
func (g *Graph) Has(n *Node) bool {
	return n != nil && g.nodeIndex(n) >= 0
}

func (g *Graph) nodeIndex(n *Node) int {
	for i, m := range g.nodes {
		if m == n {
			return i
		}
	}
	return -1
}

// Nodes returns the nodes in creation order. The slice is a copy.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// NodeByLocalID looks a node up by its client id.
func (g *Graph) NodeByLocalID(id string) *Node {
	for _, n := range g.nodes {
		if n.LocalID == id {
			return n
		}
	}
	return nil
}

// NodeByRemoteID looks a node up by its backend id.
func (g *Graph) NodeByRemoteID(id int64) *Node {
	for _, n := range g.nodes {
		if n.RemoteID != nil && *n.RemoteID == id {
			return n
		}
	}
	return nil
}

// FindCascadeMatch returns the first node whose remote id equals id or whose
// text equals content. Either criterion is enough.
func (g *Graph) FindCascadeMatch(id int64, content string) *Node {
	for _, n := range g.nodes {
		if n.RemoteID != nil && *n.RemoteID == id {
			return n
		}
		if content != "" && n.Text == content {
			return n
		}
	}
	return nil
}

// MoveNode sets the node's center.
func (g *Graph) MoveNode(n *Node, pos Vec2) {
	if n.Position == pos {
		return
	}
	n.Position = pos
	g.emit(ChangeEvent{Type: EventNodeChanged, Node: n})
}

// SetText replaces the node's text.
func (g *Graph) SetText(n *Node, text string) {
	n.Text = text
	g.emit(ChangeEvent{Type: EventNodeChanged, Node: n})
}

// SetKind changes the node's kind locally. Edge direction rules are only
// checked when edges are created.
func (g *Graph) SetKind(n *Node, k Kind) {
	if n.Kind == k {
		return
	}
	n.Kind = k
	g.emit(ChangeEvent{Type: EventNodeChanged, Node: n})
}

// SetRemoteID attaches the backend id and marks the node confirmed.
func (g *Graph) SetRemoteID(n *Node, id int64) {
	n.RemoteID = &id
	n.State = NodeConfirmed
	g.emit(ChangeEvent{Type: EventNodeChanged, Node: n})
}

// SetState records the node's reconciliation state.
func (g *Graph) SetState(n *Node, s NodeState) {
	if n.State == s {
		return
	}
	n.State = s
	g.emit(ChangeEvent{Type: EventNodeChanged, Node: n})
}

// --- Edges ---

// CreateEdge inserts a pending edge from source to target. Preconditions are
// checked in order: duplicate in either direction, then both endpoints
// confirmed, then the kind direction table.
func (g *Graph) CreateEdge(source, target *Node) (*Edge, error) {
	if source == nil || target == nil || source == target {
		return nil, ErrGestureRejected
	}
	for _, e := range g.edges {
		if e.Connects(source, target) {
			return nil, ErrDuplicateEdge
		}
	}
	if !source.Confirmed() || !target.Confirmed() {
		return nil, ErrUnconfirmedNode
	}
	if !directionAllowed(source.Kind, target.Kind) {
		return nil, ErrInvalidDirection
	}
	e := &Edge{
		LocalID: NewID(),
		Source:  source,
		Target:  target,
		Pending: true,
	}
	g.edges = append(g.edges, e)
	g.emit(ChangeEvent{Type: EventEdgeAdded, Edge: e})
	return e, nil
}

// directionAllowed applies the parent to child table. Topic parents like a
// thought, and a topic target is checked as a thought.
//
//	thought  -> thought, solution
//	solution -> solution
func directionAllowed(source, target Kind) bool {
	s, t := source.parentKind(), target.parentKind()
	if s == KindSolution {
		return t == KindSolution
	}
	return true
}

// RemoveEdge removes e unconditionally. Reports false if e was not present.
func (g *Graph) RemoveEdge(e *Edge) bool {
	for i, m := range g.edges {
		if m == e {
			copy(g.edges[i:], g.edges[i+1:])
			g.edges[len(g.edges)-1] = nil
			g.edges = g.edges[:len(g.edges)-1]
			e.removed = true
			g.emit(ChangeEvent{Type: EventEdgeRemoved, Edge: e})
			return true
		}
	}
	return false
}

// ConfirmEdge clears the pending flag.
func (g *Graph) ConfirmEdge(e *Edge) {
	if !e.Pending {
		return
	}
	e.Pending = false
	g.emit(ChangeEvent{Type: EventEdgeChanged, Edge: e})
}

// HasEdge reports whether e is currently in the graph.
func (g *Graph) HasEdge(e *Edge) bool {
	for _, m := range g.edges {
		if m == e {
			return true
		}
	}
	return false
}

// Edges returns the edges in creation order. The slice is a copy.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// EdgesOf returns every edge touching n.
func (g *Graph) EdgesOf(n *Node) []*Edge {
	var out []*Edge
	for _, e := range g.edges {
		if e.Touches(n) {
			out = append(out, e)
		}
	}
	return out
}

// EdgeBetween returns the edge joining a and b in either direction.
func (g *Graph) EdgeBetween(a, b *Node) *Edge {
	for _, e := range g.edges {
		if e.Connects(a, b) {
			return e
		}
	}
	return nil
}

// Clear removes every node and edge, emitting removal events.
func (g *Graph) Clear() {
	for len(g.nodes) > 0 {
		g.RemoveNode(g.nodes[len(g.nodes)-1])
	}
	for len(g.edges) > 0 {
		g.RemoveEdge(g.edges[len(g.edges)-1])
	}
}
