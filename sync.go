package bubblemind

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout is the client-side window a backend call has to settle.
const DefaultTimeout = 5000 * time.Millisecond

type opKind uint8

const (
	opCreate opKind = iota
	opDelete
	opSetKind
	opConnect
)

func (k opKind) String() string {
	switch k {
	case opCreate:
		return "create"
	case opDelete:
		return "delete"
	case opSetKind:
		return "set-kind"
	case opConnect:
		return "connect"
	}
	return "unknown"
}

// pendingOp is one outstanding backend call. It settles exactly once: by
// its completion, by its deadline, or by cancellation.
type pendingOp struct {
	id       uint64
	kind     opKind
	key      any // *Node or *Edge
	deadline time.Time
	expire   func()
}

// completion is posted from a request goroutine and applied on the event loop.
type completion struct {
	opID  uint64
	at    time.Time
	apply func()
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithTimeout sets the settle window for backend calls.
func WithTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the controller's logger.
func WithLogger(l *zap.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStatusBar routes user-facing messages to b.
func WithStatusBar(b *StatusBar) ControllerOption {
	return func(c *Controller) {
		if b != nil {
			c.status = b
		}
	}
}

// Controller applies mutations to the graph optimistically and reconciles
// them with the backend. Backend calls run on their own goroutines; their
// results are queued and only touch the graph inside Update, which must be
// called from the event loop.
type Controller struct {
	graph   *Graph
	backend Backend
	clock   Clock
	timeout time.Duration
	logger  *zap.Logger
	status  *StatusBar

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	inbox []completion

	ops       map[uint64]*pendingOp
	busy      map[any]uint64
	nextOp    uint64
	nextColor int

	topics    []TopicSummary
	solutions []SolutionSummary
	onCatalog func()
}

// NewController creates a controller reconciling g against b.
func NewController(g *Graph, b Backend, clock Clock, opts ...ControllerOption) *Controller {
	if clock == nil {
		clock = SystemClock{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		graph:   g,
		backend: b,
		clock:   clock,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
		ctx:     ctx,
		cancel:  cancel,
		ops:     make(map[uint64]*pendingOp),
		busy:    make(map[any]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.status == nil {
		c.status = NewStatusBar(clock)
	}
	return c
}

// Status returns the status bar messages are posted to.
func (c *Controller) Status() *StatusBar { return c.status }

// Timeout returns the settle window.
func (c *Controller) Timeout() time.Duration { return c.timeout }

// Pending returns the number of unsettled backend calls.
func (c *Controller) Pending() int { return len(c.ops) }

// InFlight reports whether n or e has an unsettled backend call.
func (c *Controller) InFlight(key any) bool {
	_, ok := c.busy[key]
	return ok
}

// Topics returns the topic list from the last catalog refresh.
func (c *Controller) Topics() []TopicSummary { return c.topics }

// Solutions returns the solution list from the last catalog refresh.
func (c *Controller) Solutions() []SolutionSummary { return c.solutions }

// OnCatalogChange installs a callback invoked after the topic and solution
// lists are replaced.
func (c *Controller) OnCatalogChange(fn func()) { c.onCatalog = fn }

// Close cancels outstanding requests. Their completions are discarded.
func (c *Controller) Close() {
	c.cancel()
}

// --- Operations ---

// CreateNodeFromCircle inserts an unconfirmed bubble for a circle gesture and
// sends the captured image for recognition. The node is removed again if
// recognition fails, times out or yields no text.
func (c *Controller) CreateNodeFromCircle(g Gesture, image []byte, kind Kind, topic string) (*Node, error) {
	if g.Kind != GestureCircle {
		return nil, ErrGestureRejected
	}
	n := c.graph.CreateNode(NodeSpec{
		Position:  g.Center(),
		Size:      g.Diameter(),
		Kind:      kind,
		TopicName: topic,
		Color:     c.pickColor(),
	})
	c.logger.Debug("bubble created locally",
		zap.String("local_id", n.LocalID),
		zap.Float64("x", n.Position.X),
		zap.Float64("y", n.Position.Y),
	)

	op := c.begin(opCreate, n, func() {
		c.rollbackNode(n, ErrTimeout)
	})
	req := RecognizeRequest{Image: image, Kind: kind, TopicName: topic}
	c.run(op, func(ctx context.Context) func() {
		res, err := c.backend.Recognize(ctx, req)
		return func() {
			if !c.graph.Has(n) {
				return
			}
			if err != nil {
				c.rollbackNode(n, classifyBackendErr(err))
				return
			}
			text := strings.TrimSpace(res.Text)
			if text == "" {
				c.rollbackNode(n, ErrEmptyText)
				return
			}
			c.graph.SetText(n, text)
			c.graph.SetRemoteID(n, res.ID)
			c.logger.Info("bubble confirmed",
				zap.String("local_id", n.LocalID),
				zap.Int64("remote_id", res.ID),
				zap.String("text", text),
			)
			c.status.Success("Recognized: " + text)
			if n.Kind == KindSolution || n.TopicName != "" {
				c.RefreshCatalog()
			}
		}
	})
	return n, nil
}

func (c *Controller) rollbackNode(n *Node, err error) {
	c.dropNode(n)
	c.logger.Warn("bubble rolled back", zap.String("local_id", n.LocalID), zap.Error(err))
	c.status.Error(describeErr(err), err)
}

// Connect creates a pending edge and confirms it with the backend. Edge
// precondition failures are returned and posted to the status bar, except a
// rejected gesture, which is silent. While either bubble is being deleted or
// changing kind its remote id is not final, so Connect returns ErrBusy.
func (c *Controller) Connect(from, to *Node) (*Edge, error) {
	if c.settling(from) || c.settling(to) {
		c.status.Info(describeErr(ErrBusy))
		return nil, ErrBusy
	}
	e, err := c.graph.CreateEdge(from, to)
	if err != nil {
		if !errors.Is(err, ErrGestureRejected) {
			c.status.Error(describeErr(err), err)
		}
		return nil, err
	}
	parent, _ := from.RemoteIDValue()
	child, _ := to.RemoteIDValue()
	topic := adviceTopic(from, to)
	req := ConnectRequest{
		NodeID:               parent,
		ConnectIDs:           []int64{child},
		NodeType:             from.Kind,
		ParentID:             parent,
		ChildID:              child,
		EstablishParentChild: true,
	}

	op := c.begin(opConnect, e, func() {
		c.rollbackEdge(e, ErrTimeout)
	})
	c.run(op, func(ctx context.Context) func() {
		err := c.backend.Connect(ctx, req)
		return func() {
			if !c.graph.HasEdge(e) {
				return
			}
			if err != nil {
				c.rollbackEdge(e, classifyBackendErr(err))
				return
			}
			c.graph.ConfirmEdge(e)
			c.logger.Info("edge confirmed",
				zap.Int64("parent", parent),
				zap.Int64("child", child),
			)
			c.advise(topic)
		}
	})
	return e, nil
}

func (c *Controller) rollbackEdge(e *Edge, err error) {
	if !c.graph.HasEdge(e) {
		c.logger.Debug("rollback of removed edge ignored", zap.String("local_id", e.LocalID))
		return
	}
	c.graph.RemoveEdge(e)
	c.logger.Warn("edge rolled back", zap.String("local_id", e.LocalID), zap.Error(err))
	c.status.Error(describeErr(err), err)
}

// Disconnect removes an edge locally and drops any pending confirmation.
func (c *Controller) Disconnect(e *Edge) {
	c.cancelKey(e)
	c.graph.RemoveEdge(e)
}

// Pop removes a bubble. An unconfirmed bubble is removed at once and its
// recognition result is ignored. A confirmed bubble is deleted (thoughts and
// topics) or archived (solutions) on the backend first; on success it and
// every node the backend reports as removed with it leave the graph. On
// failure the bubble stays and can be popped again.
func (c *Controller) Pop(n *Node) error {
	if !c.graph.Has(n) {
		return nil
	}
	if !n.Confirmed() {
		c.cancelKey(n)
		c.dropNode(n)
		return nil
	}
	if c.InFlight(n) {
		return ErrBusy
	}

	id, _ := n.RemoteIDValue()
	content := n.Text
	archive := n.Kind == KindSolution
	c.graph.SetState(n, NodeDeleting)

	op := c.begin(opDelete, n, func() {
		c.restoreAfterDelete(n, ErrTimeout)
	})
	c.run(op, func(ctx context.Context) func() {
		var res DeleteResult
		var err error
		if archive {
			res, err = c.backend.Archive(ctx, id, content)
		} else {
			res, err = c.backend.Delete(ctx, id, content)
		}
		return func() {
			if !c.graph.Has(n) {
				return
			}
			if err != nil {
				c.restoreAfterDelete(n, classifyBackendErr(err))
				return
			}
			c.dropNode(n)
			cascaded := c.applyCascade(n, res.Deleted)
			c.logger.Info("bubble popped",
				zap.Int64("remote_id", id),
				zap.Bool("archived", archive),
				zap.Int("cascaded", cascaded),
			)
			if archive {
				c.status.Success("Solution archived")
			} else {
				c.status.Success("Bubble deleted")
			}
			c.RefreshCatalog()
		}
	})
	return nil
}

// applyCascade removes the local nodes matching refs, skipping the popped one.
func (c *Controller) applyCascade(popped *Node, refs []DeletedRef) int {
	removed := 0
	for _, ref := range refs {
		m := c.graph.FindCascadeMatch(ref.ID, ref.Content)
		if m == nil || m == popped {
			continue
		}
		c.cancelKey(m)
		c.dropNode(m)
		removed++
	}
	return removed
}

func (c *Controller) restoreAfterDelete(n *Node, err error) {
	if c.graph.Has(n) {
		c.graph.SetState(n, NodeConfirmed)
	}
	c.logger.Warn("pop failed", zap.String("local_id", n.LocalID), zap.Error(err))
	c.status.Error(describeErr(err), err)
}

// SetKind changes a confirmed bubble's kind. The local kind changes at once;
// the backend answers with the authoritative id, which replaces RemoteID.
// On failure the previous kind is restored.
func (c *Controller) SetKind(n *Node, kind Kind) error {
	if !c.graph.Has(n) {
		return nil
	}
	if !n.Confirmed() {
		c.status.Error(describeErr(ErrUnconfirmedNode), ErrUnconfirmedNode)
		return ErrUnconfirmedNode
	}
	if c.InFlight(n) {
		return ErrBusy
	}
	// A pending /connect still names the current remote id.
	for _, e := range c.graph.EdgesOf(n) {
		if c.InFlight(e) {
			return ErrBusy
		}
	}
	if n.Kind == kind {
		return nil
	}

	prev := n.Kind
	id, _ := n.RemoteIDValue()
	content := n.Text
	c.graph.SetKind(n, kind)

	op := c.begin(opSetKind, n, func() {
		c.restoreKind(n, prev, ErrTimeout)
	})
	c.run(op, func(ctx context.Context) func() {
		res, err := c.backend.Update(ctx, id, kind, content)
		return func() {
			if !c.graph.Has(n) {
				return
			}
			if err != nil {
				c.restoreKind(n, prev, classifyBackendErr(err))
				return
			}
			if res.ID != 0 {
				c.graph.SetRemoteID(n, res.ID)
			}
			c.logger.Info("kind changed",
				zap.Int64("old_id", id),
				zap.Int64("new_id", res.ID),
				zap.String("kind", kind.String()),
			)
			c.status.Success("Changed to " + kind.String())
			c.RefreshCatalog()
		}
	})
	return nil
}

func (c *Controller) restoreKind(n *Node, prev Kind, err error) {
	if c.graph.Has(n) {
		c.graph.SetKind(n, prev)
	}
	c.logger.Warn("kind change failed", zap.String("local_id", n.LocalID), zap.Error(err))
	c.status.Error(describeErr(err), err)
}

// CheckHealth pings the backend if it supports it and reports the outcome on
// the status bar. A reachable backend also refreshes the catalog.
func (c *Controller) CheckHealth() {
	p, ok := c.backend.(Pinger)
	if !ok {
		return
	}
	c.background(func(ctx context.Context) func() {
		err := p.Ping(ctx)
		return func() {
			if err != nil {
				c.logger.Warn("backend health check failed", zap.Error(err))
				c.status.Error("Backend unavailable", classifyBackendErr(err))
				return
			}
			c.status.Info("Backend connected")
			c.RefreshCatalog()
		}
	})
}

// RefreshCatalog reloads the topic and solution lists when the backend
// serves them. A failed refresh keeps the previous lists.
func (c *Controller) RefreshCatalog() {
	cat, ok := c.backend.(Catalog)
	if !ok {
		return
	}
	c.background(func(ctx context.Context) func() {
		topics, terr := cat.Topics(ctx)
		solutions, serr := cat.Solutions(ctx)
		return func() {
			if err := errors.Join(terr, serr); err != nil {
				c.logger.Warn("catalog refresh failed", zap.Error(err))
				return
			}
			c.topics, c.solutions = topics, solutions
			c.logger.Debug("catalog refreshed",
				zap.Int("topics", len(topics)),
				zap.Int("solutions", len(solutions)),
			)
			if c.onCatalog != nil {
				c.onCatalog()
			}
		}
	})
}

// Ask sends text to the assistant and posts the reply to the status bar.
func (c *Controller) Ask(text string) {
	adv, ok := c.backend.(Advisor)
	text = strings.TrimSpace(text)
	if !ok || text == "" {
		return
	}
	c.background(func(ctx context.Context) func() {
		reply, err := adv.Chat(ctx, text)
		return func() {
			if err != nil {
				c.logger.Warn("assistant chat failed", zap.Error(err))
				c.status.Error("The assistant is unavailable", classifyBackendErr(err))
				return
			}
			if reply = strings.TrimSpace(reply); reply != "" {
				c.status.Info(reply)
			}
		}
	})
}

// advise asks the assistant for guidance on topic after a new connection.
// Failures are logged only.
func (c *Controller) advise(topic string) {
	adv, ok := c.backend.(Advisor)
	if !ok || topic == "" {
		return
	}
	c.background(func(ctx context.Context) func() {
		reply, err := adv.Advice(ctx, topic)
		return func() {
			if err != nil {
				c.logger.Debug("advice unavailable", zap.String("topic", topic), zap.Error(err))
				return
			}
			if reply = strings.TrimSpace(reply); reply != "" {
				c.status.Info(reply)
			}
		}
	})
}

// adviceTopic names what a new connection is about: the first topic found on
// either end, else the parent's text.
func adviceTopic(from, to *Node) string {
	switch {
	case from.TopicName != "":
		return from.TopicName
	case to.TopicName != "":
		return to.TopicName
	}
	return from.Text
}

// --- Event loop ---

// Update applies every queued completion and then expires overdue calls.
// A completion that arrived after its deadline loses to the timeout.
func (c *Controller) Update() {
	c.mu.Lock()
	inbox := c.inbox
	c.inbox = nil
	c.mu.Unlock()

	for _, done := range inbox {
		if done.opID == 0 {
			done.apply()
			continue
		}
		op, ok := c.ops[done.opID]
		if !ok {
			c.logger.Debug("late response discarded", zap.Uint64("op", done.opID))
			continue
		}
		if done.at.After(op.deadline) {
			c.settle(op)
			op.expire()
			continue
		}
		c.settle(op)
		done.apply()
	}

	now := c.clock.Now()
	var overdue []*pendingOp
	for _, op := range c.ops {
		if now.After(op.deadline) {
			overdue = append(overdue, op)
		}
	}
	sort.Slice(overdue, func(i, j int) bool { return overdue[i].id < overdue[j].id })
	for _, op := range overdue {
		c.logger.Warn("backend call timed out",
			zap.String("op", op.kind.String()),
			zap.Duration("timeout", c.timeout),
		)
		c.settle(op)
		op.expire()
	}
}

// Settle blocks until every started backend call has returned, then applies
// the results. Intended for tests and shutdown.
func (c *Controller) Settle() {
	c.wg.Wait()
	c.Update()
}

func (c *Controller) begin(kind opKind, key any, expire func()) *pendingOp {
	c.nextOp++
	op := &pendingOp{
		id:       c.nextOp,
		kind:     kind,
		key:      key,
		deadline: c.clock.Now().Add(c.timeout),
		expire:   expire,
	}
	c.ops[op.id] = op
	c.busy[key] = op.id
	return op
}

// background runs call on a goroutine outside the per-entity bookkeeping and
// queues the closure it returns.
func (c *Controller) background(call func(ctx context.Context) func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
		defer cancel()
		apply := call(ctx)
		c.post(completion{at: c.clock.Now(), apply: apply})
	}()
}

// run executes call on a goroutine and queues the closure it returns.
func (c *Controller) run(op *pendingOp, call func(ctx context.Context) func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
		defer cancel()
		apply := call(ctx)
		c.post(completion{opID: op.id, at: c.clock.Now(), apply: apply})
	}()
}

func (c *Controller) post(done completion) {
	c.mu.Lock()
	c.inbox = append(c.inbox, done)
	c.mu.Unlock()
}

func (c *Controller) settle(op *pendingOp) {
	delete(c.ops, op.id)
	if c.busy[op.key] == op.id {
		delete(c.busy, op.key)
	}
}

// settling reports whether n's remote id may still change: a delete or kind
// change for it has not settled.
func (c *Controller) settling(n *Node) bool {
	if n == nil {
		return false
	}
	return n.State == NodeDeleting || (n.Confirmed() && c.InFlight(n))
}

// dropNode removes n and forgets pending confirmations of its edges.
func (c *Controller) dropNode(n *Node) {
	for _, e := range c.graph.EdgesOf(n) {
		c.cancelKey(e)
	}
	c.graph.RemoveNode(n)
}

// cancelKey drops the pending call for key so its result is ignored.
func (c *Controller) cancelKey(key any) {
	id, ok := c.busy[key]
	if !ok {
		return
	}
	if op, ok := c.ops[id]; ok {
		c.settle(op)
	}
}

func (c *Controller) pickColor() int {
	col := c.nextColor % len(Palette)
	c.nextColor++
	return col
}
