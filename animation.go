package bubblemind

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Durations of the stock bubble animations, in seconds.
const (
	AppearDuration = 0.35
	PopDuration    = 0.3
)

// TweenGroup animates up to 4 float64 fields simultaneously. Call Update(dt)
// each frame; values are written through the field pointers.
type TweenGroup struct {
	tweens [4]*gween.Tween
	count  int
	fields [4]*float64
	Done   bool
}

// Update advances all tweens by dt seconds and writes the current values.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}
	allDone := true
	for i := 0; i < g.count; i++ {
		val, finished := g.tweens[i].Update(dt)
		*g.fields[i] = float64(val)
		if !finished {
			allDone = false
		}
	}
	g.Done = allDone
}

func (g *TweenGroup) add(field *float64, from, to float64, duration float32, fn ease.TweenFunc) {
	g.tweens[g.count] = gween.New(float32(from), float32(to), duration, fn)
	g.fields[g.count] = field
	g.count++
	*field = from
}

// NodeVisual is the animated presentation of a bubble.
type NodeVisual struct {
	Scale float64
	Alpha float64
}

var restingVisual = NodeVisual{Scale: 1, Alpha: 1}

// Ghost is a bubble that already left the graph and is fading out.
type Ghost struct {
	Position Vec2
	Size     float64
	Color    int
	Kind     Kind
	Text     string
	Visual   NodeVisual
	tween    *TweenGroup
}

type nodeAnim struct {
	visual NodeVisual
	tween  *TweenGroup
}

// Animator drives the appear and pop animations of bubbles from graph
// events. It holds no graph state of its own beyond presentation.
type Animator struct {
	graph    *Graph
	handle   CallbackHandle
	nodes    map[*Node]*nodeAnim
	ghosts   []*Ghost
	bursts   []*Burst
	burstCfg BurstConfig
}

// NewAnimator subscribes to g. Call Close to detach.
func NewAnimator(g *Graph) *Animator {
	a := &Animator{
		graph:    g,
		nodes:    make(map[*Node]*nodeAnim),
		burstCfg: DefaultBurstConfig(),
	}
	a.handle = g.OnChange(a.onChange)
	return a
}

// SetBurstConfig replaces the particle settings used for pops.
func (a *Animator) SetBurstConfig(cfg BurstConfig) {
	a.burstCfg = cfg
}

// Close unsubscribes from the graph.
func (a *Animator) Close() {
	a.handle.Remove()
}

func (a *Animator) onChange(ev ChangeEvent) {
	switch ev.Type {
	case EventNodeAdded:
		an := &nodeAnim{tween: &TweenGroup{}}
		an.tween.add(&an.visual.Scale, 0, 1, AppearDuration, ease.OutBack)
		an.tween.add(&an.visual.Alpha, 0, 1, AppearDuration, ease.OutQuad)
		a.nodes[ev.Node] = an
	case EventNodeRemoved:
		delete(a.nodes, ev.Node)
		a.pop(ev.Node)
	}
}

func (a *Animator) pop(n *Node) {
	g := &Ghost{
		Position: n.Position,
		Size:     n.Size,
		Color:    n.Color,
		Kind:     n.Kind,
		Text:     n.Text,
		tween:    &TweenGroup{},
	}
	g.tween.add(&g.Visual.Scale, 1, 1.3, PopDuration, ease.OutQuad)
	g.tween.add(&g.Visual.Alpha, 1, 0, PopDuration, ease.OutQuad)
	a.ghosts = append(a.ghosts, g)
	a.bursts = append(a.bursts, newBurst(a.burstCfg, n.Position, n.Radius(), Palette[n.Color%len(Palette)]))
}

// Visual returns the current presentation of n. Bubbles without a running
// animation are at rest.
func (a *Animator) Visual(n *Node) NodeVisual {
	if an, ok := a.nodes[n]; ok {
		return an.visual
	}
	return restingVisual
}

// Ghosts returns the bubbles still fading out.
func (a *Animator) Ghosts() []*Ghost { return a.ghosts }

// Bursts returns the live particle bursts.
func (a *Animator) Bursts() []*Burst { return a.bursts }

// Active reports whether anything is still animating.
func (a *Animator) Active() bool {
	return len(a.nodes) > 0 || len(a.ghosts) > 0 || len(a.bursts) > 0
}

// Update advances every animation by dt seconds and drops finished ones.
func (a *Animator) Update(dt float64) {
	for n, an := range a.nodes {
		an.tween.Update(float32(dt))
		if an.tween.Done {
			delete(a.nodes, n)
		}
	}

	live := a.ghosts[:0]
	for _, g := range a.ghosts {
		g.tween.Update(float32(dt))
		if !g.tween.Done {
			live = append(live, g)
		}
	}
	clear(a.ghosts[len(live):])
	a.ghosts = live

	bursts := a.bursts[:0]
	for _, b := range a.bursts {
		b.update(dt, a.burstCfg.Gravity)
		if !b.Done() {
			bursts = append(bursts, b)
		}
	}
	clear(a.bursts[len(bursts):])
	a.bursts = bursts
}
