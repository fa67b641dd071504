package bubblemind

import "context"

// RecognizeRequest carries a captured circle to the OCR endpoint.
type RecognizeRequest struct {
	Image     []byte // PNG
	Kind      Kind
	TopicName string
}

// RecognizeResult is the backend's reading of a circle.
type RecognizeResult struct {
	Text string
	ID   int64
}

// DeletedRef names a node the backend removed as a side effect. Either field
// may identify the local node.
type DeletedRef struct {
	ID      int64
	Content string
}

// DeleteResult lists every node removed by a delete or archive, the
// requested one included.
type DeleteResult struct {
	Deleted []DeletedRef
}

// UpdateResult carries the authoritative id after a kind change.
type UpdateResult struct {
	ID int64
}

// ConnectRequest confirms a parent to child edge.
type ConnectRequest struct {
	NodeID               int64
	ConnectIDs           []int64
	NodeType             Kind
	ParentID             int64
	ChildID              int64
	EstablishParentChild bool
}

// Backend is the remote service the sync controller reconciles against.
// Implementations may block; the controller calls them off the event loop.
type Backend interface {
	Recognize(ctx context.Context, req RecognizeRequest) (RecognizeResult, error)
	Delete(ctx context.Context, id int64, content string) (DeleteResult, error)
	Archive(ctx context.Context, id int64, content string) (DeleteResult, error)
	Update(ctx context.Context, id int64, kind Kind, content string) (UpdateResult, error)
	Connect(ctx context.Context, req ConnectRequest) error
}

// Pinger is implemented by backends that expose a health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TopicSummary is one topic and the number of nodes filed under it.
type TopicSummary struct {
	Name  string
	Count int
}

// SolutionSummary is one active solution.
type SolutionSummary struct {
	ID        int64
	Content   string
	TopicName string
}

// Catalog is implemented by backends that list topics and solutions.
type Catalog interface {
	Topics(ctx context.Context) ([]TopicSummary, error)
	Solutions(ctx context.Context) ([]SolutionSummary, error)
}

// Advisor is implemented by backends that host the assistant.
type Advisor interface {
	Advice(ctx context.Context, topic string) (string, error)
	Chat(ctx context.Context, text string) (string, error)
}
