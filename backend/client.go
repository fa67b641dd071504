// Package backend is the HTTP client for the BubbleMind REST service.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/phanxgames/bubblemind"
	"github.com/phanxgames/bubblemind/api"
)

// BreakerConfig holds configuration for the client's circuit breaker.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns a lenient breaker: it opens after 5 requests
// of which 80% failed, and probes again after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Config configures a Client.
type Config struct {
	BaseURL string
	// Timeout bounds every request. Defaults to bubblemind.DefaultTimeout.
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
	Breaker    BreakerConfig
}

// Client talks to the REST service. It implements bubblemind.Backend,
// bubblemind.Pinger, bubblemind.Catalog and bubblemind.Advisor and is safe
// for concurrent use.
type Client struct {
	base    string
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger
	cb      *gobreaker.CircuitBreaker
}

var (
	_ bubblemind.Backend = (*Client)(nil)
	_ bubblemind.Pinger  = (*Client)(nil)
	_ bubblemind.Catalog = (*Client)(nil)
	_ bubblemind.Advisor = (*Client)(nil)
)

// New creates a client for the service at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse base url: unsupported scheme %q", u.Scheme)
	}
	c := &Client{
		base:    strings.TrimRight(u.String(), "/"),
		http:    cfg.HTTPClient,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = bubblemind.DefaultTimeout
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	bc := cfg.Breaker
	if bc == (BreakerConfig{}) {
		bc = DefaultBreakerConfig()
	}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "bubblemind-backend",
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= bc.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Requests the server understood and refused do not count against it.
		IsSuccessful: func(err error) bool {
			var be *Error
			if errors.As(err, &be) && be.Status >= 400 && be.Status < 500 {
				return true
			}
			return err == nil
		},
	})
	return c, nil
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.cb.State()
}

// --- REST surface ---

// Ping checks that the service is reachable.
func (c *Client) Ping(ctx context.Context) error {
	var out api.PingResponse
	return c.do(ctx, "ping", http.MethodGet, "/ping", nil, "", &out)
}

// Recognize uploads a captured circle to /ocr.
func (c *Client) Recognize(ctx context.Context, req bubblemind.RecognizeRequest) (bubblemind.RecognizeResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "circle.png")
	if err != nil {
		return bubblemind.RecognizeResult{}, fmt.Errorf("build ocr form: %w", err)
	}
	if _, err := fw.Write(req.Image); err != nil {
		return bubblemind.RecognizeResult{}, fmt.Errorf("build ocr form: %w", err)
	}
	_ = mw.WriteField("type", req.Kind.String())
	if req.TopicName != "" {
		_ = mw.WriteField("topic_name", req.TopicName)
	}
	if err := mw.Close(); err != nil {
		return bubblemind.RecognizeResult{}, fmt.Errorf("build ocr form: %w", err)
	}

	var out api.OCRResponse
	if err := c.do(ctx, "ocr", http.MethodPost, "/ocr", &body, mw.FormDataContentType(), &out); err != nil {
		return bubblemind.RecognizeResult{}, err
	}
	return bubblemind.RecognizeResult{Text: out.Text, ID: out.ID}, nil
}

// Delete removes a thought or topic node.
func (c *Client) Delete(ctx context.Context, id int64, content string) (bubblemind.DeleteResult, error) {
	return c.remove(ctx, "delete", "/delete", id, content)
}

// Archive archives a solution node.
func (c *Client) Archive(ctx context.Context, id int64, content string) (bubblemind.DeleteResult, error) {
	return c.remove(ctx, "archive", "/archive", id, content)
}

func (c *Client) remove(ctx context.Context, op, path string, id int64, content string) (bubblemind.DeleteResult, error) {
	var out api.DeleteResponse
	if err := c.postJSON(ctx, op, path, api.DeleteRequest{ID: id, Content: content}, &out); err != nil {
		return bubblemind.DeleteResult{}, err
	}
	ok := out.Code != nil && *out.Code == api.CodeOK
	if op == "archive" && out.Msg == api.ArchivedMsg {
		ok = true
	}
	if !ok {
		return bubblemind.DeleteResult{}, &Error{Op: op, Status: http.StatusOK, Msg: out.Msg, Kind: bubblemind.ErrServerRejected}
	}
	return bubblemind.DeleteResult{Deleted: deletedRefs(out)}, nil
}

// deletedRefs reads data.deleted, falling back to the bare deleted_ids list.
func deletedRefs(out api.DeleteResponse) []bubblemind.DeletedRef {
	var refs []bubblemind.DeletedRef
	if out.Data != nil && len(out.Data.Deleted) > 0 {
		for _, d := range out.Data.Deleted {
			refs = append(refs, bubblemind.DeletedRef{ID: d.ID, Content: d.Content})
		}
		return refs
	}
	for _, id := range out.DeletedIDs {
		refs = append(refs, bubblemind.DeletedRef{ID: id})
	}
	return refs
}

// Update changes a node's kind. The service answers with the node's id,
// which may differ from the one sent.
func (c *Client) Update(ctx context.Context, id int64, kind bubblemind.Kind, content string) (bubblemind.UpdateResult, error) {
	var out api.UpdateResponse
	req := api.UpdateRequest{ID: id, Type: kind.String(), Content: content}
	if err := c.postJSON(ctx, "update", "/update", req, &out); err != nil {
		return bubblemind.UpdateResult{}, err
	}
	return bubblemind.UpdateResult{ID: out.ID}, nil
}

// Connect records a parent to child edge.
func (c *Client) Connect(ctx context.Context, req bubblemind.ConnectRequest) error {
	var out api.ConnectResponse
	body := api.ConnectRequest{
		NodeID:               req.NodeID,
		ConnectIDs:           req.ConnectIDs,
		NodeType:             req.NodeType.String(),
		ParentID:             req.ParentID,
		ChildID:              req.ChildID,
		EstablishParentChild: req.EstablishParentChild,
	}
	return c.postJSON(ctx, "connect", "/connect", body, &out)
}

// Post creates a node directly from text.
func (c *Client) Post(ctx context.Context, req api.PostRequest) (api.NodeResponse, error) {
	var out api.NodeResponse
	err := c.postJSON(ctx, "post", "/post", req, &out)
	return out, err
}

// Topics lists topic names with their node counts.
func (c *Client) Topics(ctx context.Context) ([]bubblemind.TopicSummary, error) {
	var out []api.Topic
	if err := c.do(ctx, "topics", http.MethodGet, "/topics", nil, "", &out); err != nil {
		return nil, err
	}
	topics := make([]bubblemind.TopicSummary, len(out))
	for i, t := range out {
		topics[i] = bubblemind.TopicSummary{Name: t.Name, Count: t.Count}
	}
	return topics, nil
}

// Solutions lists the active solutions.
func (c *Client) Solutions(ctx context.Context) ([]bubblemind.SolutionSummary, error) {
	var out []api.NodeResponse
	if err := c.do(ctx, "solutions", http.MethodGet, "/solutions", nil, "", &out); err != nil {
		return nil, err
	}
	sols := make([]bubblemind.SolutionSummary, len(out))
	for i, n := range out {
		sols[i] = bubblemind.SolutionSummary{ID: n.ID, Content: n.Content, TopicName: n.TopicName}
	}
	return sols, nil
}

// Chat sends a message to the assistant.
func (c *Client) Chat(ctx context.Context, text string) (string, error) {
	var out api.ReplyResponse
	err := c.postJSON(ctx, "chat", "/agent/chat", api.ChatRequest{InputText: text}, &out)
	return out.Reply, err
}

// Advice asks the assistant for guidance on a topic.
func (c *Client) Advice(ctx context.Context, topic string) (string, error) {
	var out api.ReplyResponse
	err := c.postJSON(ctx, "advice", "/agent/advice", api.AdviceRequest{TopicName: topic}, &out)
	return out.Reply, err
}

// --- transport ---

func (c *Client) postJSON(ctx context.Context, op, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", op, err)
	}
	return c.do(ctx, op, http.MethodPost, path, bytes.NewReader(data), "application/json", out)
}

// do runs one request through the circuit breaker and decodes a 2xx JSON
// body into out.
func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	_, err := c.cb.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, op, method, path, body, contentType, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = &Error{Op: op, Kind: bubblemind.ErrBackendUnavailable, Cause: err}
	}

	fields := []zap.Field{
		zap.String("op", op),
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		c.logger.Warn("backend request failed", append(fields, zap.Error(err))...)
		return err
	}
	c.logger.Debug("backend request", fields...)
	return nil
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return &Error{Op: op, Kind: bubblemind.ErrBackendUnavailable, Cause: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		kind := bubblemind.ErrBackendUnavailable
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = bubblemind.ErrTimeout
		}
		return &Error{Op: op, Kind: kind, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		kind := bubblemind.ErrBackendUnavailable
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = bubblemind.ErrTimeout
		}
		return &Error{Op: op, Status: resp.StatusCode, Kind: kind, Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e api.ErrorResponse
		_ = json.Unmarshal(data, &e)
		msg := e.Error
		if msg == "" {
			msg = e.Msg
		}
		return &Error{Op: op, Status: resp.StatusCode, Msg: msg, Kind: bubblemind.ErrServerRejected}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Kind: bubblemind.ErrServerRejected, Cause: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
