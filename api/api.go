// Package api defines the JSON contracts shared by the backend client and
// the reference server.
package api

// Response codes carried by delete and archive answers.
const (
	CodeOK    = 0
	CodeError = 1
)

// ArchivedMsg is the message older servers answer a successful archive with
// instead of a code.
const ArchivedMsg = "solution节点已归档"

// PingResponse is the body of GET /ping.
type PingResponse struct {
	Msg string `json:"msg"`
}

// OCRResponse is the body of a successful POST /ocr.
type OCRResponse struct {
	Text string `json:"text"`
	ID   int64  `json:"id"`
}

// PostRequest is the body of POST /post. Type also accepts the legacy names
// conclusion and theme.
type PostRequest struct {
	Content   string `json:"content" validate:"required"`
	Type      string `json:"type" validate:"required"`
	Parent    *int64 `json:"parent,omitempty"`
	TopicName string `json:"topic_name,omitempty"`
}

// NodeResponse is the API representation of a stored node.
type NodeResponse struct {
	ID         int64   `json:"id"`
	Content    string  `json:"content"`
	Type       string  `json:"type"`
	Parent     *int64  `json:"parent"`
	TopicName  string  `json:"topic_name,omitempty"`
	Connect    []int64 `json:"connect"`
	Archived   bool    `json:"archived,omitempty"`
	CreateTime string  `json:"create_time"`
}

// DeleteRequest is the body of POST /delete and POST /archive. Content lets
// the server fall back to a lookup by text when the id is unknown.
type DeleteRequest struct {
	ID      int64  `json:"id" validate:"required_without=Content"`
	Content string `json:"content,omitempty"`
}

// DeletedNode names one node removed by a delete or archive.
type DeletedNode struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

// DeleteData is the payload of a delete or archive answer.
type DeleteData struct {
	Deleted []DeletedNode `json:"deleted"`
}

// DeleteResponse answers POST /delete and POST /archive. Code is a pointer
// because an answer without a code is not a success.
type DeleteResponse struct {
	Code       *int        `json:"code,omitempty"`
	Msg        string      `json:"msg"`
	Data       *DeleteData `json:"data,omitempty"`
	DeletedIDs []int64     `json:"deleted_ids,omitempty"`
}

// UpdateRequest is the body of POST /update. Type also accepts the legacy
// names conclusion and theme.
type UpdateRequest struct {
	ID      int64  `json:"id" validate:"required"`
	Type    string `json:"type" validate:"required"`
	Content string `json:"content"`
}

// UpdateResponse carries the node's id after a kind change.
type UpdateResponse struct {
	ID  int64  `json:"id"`
	Msg string `json:"msg"`
}

// ConnectRequest is the body of POST /connect.
type ConnectRequest struct {
	NodeID               int64   `json:"node_id" validate:"required"`
	ConnectIDs           []int64 `json:"connect_ids" validate:"required,min=1,dive,required"`
	NodeType             string  `json:"node_type,omitempty"`
	ParentID             int64   `json:"parent_id,omitempty"`
	ChildID              int64   `json:"child_id,omitempty"`
	EstablishParentChild bool    `json:"establish_parent_child,omitempty"`
}

// ConnectResponse answers POST /connect.
type ConnectResponse struct {
	Msg  string        `json:"msg"`
	Node *NodeResponse `json:"node,omitempty"`
}

// Topic is one entry of GET /topics.
type Topic struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ChatRequest is the body of POST /agent/chat.
type ChatRequest struct {
	InputText string `json:"input_text" validate:"required"`
}

// AdviceRequest is the body of POST /agent/advice.
type AdviceRequest struct {
	TopicName string `json:"topic_name" validate:"required"`
}

// ReplyResponse is the assistant's answer.
type ReplyResponse struct {
	Reply string `json:"reply"`
}

// ErrorResponse is a standardized error message for API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
	Msg   string `json:"msg,omitempty"`
}
