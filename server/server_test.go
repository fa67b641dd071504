package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/bubblemind/api"
)

type testServer struct {
	*httptest.Server
	srv  *Server
	repo *MemoryRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := NewMemoryRepository()
	srv := New(Options{
		Repository: repo,
		Now:        func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, srv: srv, repo: repo}
}

func (ts *testServer) post(t *testing.T, path string, body, out any) int {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (ts *testServer) get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// seed creates a record directly and returns its id.
func (ts *testServer) seed(t *testing.T, typ, content string, parent *int64) int64 {
	t.Helper()
	var out api.NodeResponse
	code := ts.post(t, "/post", api.PostRequest{Content: content, Type: typ, Parent: parent}, &out)
	require.Equal(t, http.StatusOK, code)
	return out.ID
}

func TestPing(t *testing.T) {
	ts := newTestServer(t)
	var out api.PingResponse
	assert.Equal(t, http.StatusOK, ts.get(t, "/ping", &out))
	assert.Equal(t, "pong", out.Msg)
}

func TestOCRCreatesRecord(t *testing.T) {
	ts := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "circle.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("png bytes"))
	require.NoError(t, mw.WriteField("type", "solution"))
	require.NoError(t, mw.WriteField("topic_name", "work"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/ocr", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out api.OCRResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, DefaultTexts[0], out.Text)

	rec, err := ts.repo.Get(context.Background(), out.ID)
	require.NoError(t, err)
	assert.Equal(t, "solution", rec.Type)
	assert.Equal(t, "work", rec.TopicName)
	assert.Equal(t, DefaultTexts[0], rec.Content)
}

func TestOCRRejectsMissingFile(t *testing.T) {
	ts := newTestServer(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("type", "thought"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/ocr", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostValidation(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name string
		req  api.PostRequest
		want int
	}{
		{"ok", api.PostRequest{Content: "x", Type: "thought"}, http.StatusOK},
		{"topic", api.PostRequest{Content: "x", Type: "topic"}, http.StatusOK},
		{"legacy conclusion", api.PostRequest{Content: "x", Type: "conclusion"}, http.StatusOK},
		{"legacy theme", api.PostRequest{Content: "x", Type: "theme"}, http.StatusOK},
		{"bad type", api.PostRequest{Content: "x", Type: "idea"}, http.StatusBadRequest},
		{"no content", api.PostRequest{Type: "thought"}, http.StatusBadRequest},
		{"missing parent", api.PostRequest{Content: "x", Type: "thought", Parent: int64p(99)}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ts.post(t, "/post", tt.req, nil))
		})
	}
}

func TestLegacyTypeNamesAreNormalized(t *testing.T) {
	ts := newTestServer(t)

	var node api.NodeResponse
	require.Equal(t, http.StatusOK, ts.post(t, "/post", api.PostRequest{Content: "garden", Type: "theme"}, &node))
	assert.Equal(t, "topic", node.Type)

	var out api.UpdateResponse
	require.Equal(t, http.StatusOK, ts.post(t, "/update", api.UpdateRequest{ID: node.ID, Type: "conclusion", Content: "garden"}, &out))
	rec, err := ts.repo.Get(context.Background(), out.ID)
	require.NoError(t, err)
	assert.Equal(t, "solution", rec.Type)

	assert.Equal(t, http.StatusBadRequest, ts.post(t, "/update", api.UpdateRequest{ID: out.ID, Type: "idea"}, nil))
}

func TestDeleteCascadesToChildlessParents(t *testing.T) {
	ts := newTestServer(t)
	root := ts.seed(t, "thought", "root", nil)
	mid := ts.seed(t, "thought", "mid", &root)
	leaf := ts.seed(t, "thought", "leaf", &mid)
	other := ts.seed(t, "thought", "other", &root)

	var out api.DeleteResponse
	code := ts.post(t, "/delete", api.DeleteRequest{ID: leaf}, &out)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, out.Code)
	assert.Equal(t, api.CodeOK, *out.Code)
	// root still has "other", so the cascade stops at mid.
	assert.Equal(t, []int64{leaf, mid}, out.DeletedIDs)
	require.NotNil(t, out.Data)
	assert.Equal(t, []api.DeletedNode{{ID: leaf, Content: "leaf"}, {ID: mid, Content: "mid"}}, out.Data.Deleted)

	code = ts.post(t, "/delete", api.DeleteRequest{ID: other}, &out)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []int64{other, root}, out.DeletedIDs)

	all, err := ts.repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, float64(4), testutil.ToFloat64(ts.srv.Metrics().NodesDeleted))
}

func TestDeleteErrors(t *testing.T) {
	ts := newTestServer(t)
	parent := ts.seed(t, "thought", "parent", nil)
	ts.seed(t, "thought", "child", &parent)

	var e api.ErrorResponse
	assert.Equal(t, http.StatusNotFound, ts.post(t, "/delete", api.DeleteRequest{ID: 99}, &e))
	assert.Equal(t, api.CodeError, e.Code)
	assert.NotEmpty(t, e.Error)

	assert.Equal(t, http.StatusBadRequest, ts.post(t, "/delete", api.DeleteRequest{ID: parent}, nil))
	assert.Equal(t, http.StatusBadRequest, ts.post(t, "/delete", api.DeleteRequest{}, nil))
}

func TestDeleteFallsBackToContent(t *testing.T) {
	ts := newTestServer(t)
	id := ts.seed(t, "thought", "备忘录", nil)

	var out api.DeleteResponse
	require.Equal(t, http.StatusOK, ts.post(t, "/delete", api.DeleteRequest{ID: 42, Content: "备忘录"}, &out))
	assert.Equal(t, []int64{id}, out.DeletedIDs)
}

func TestDeleteDropsConnections(t *testing.T) {
	ts := newTestServer(t)
	a := ts.seed(t, "thought", "a", nil)
	b := ts.seed(t, "thought", "b", nil)
	require.Equal(t, http.StatusOK, ts.post(t, "/connect", api.ConnectRequest{NodeID: a, ConnectIDs: []int64{b}}, nil))

	require.Equal(t, http.StatusOK, ts.post(t, "/delete", api.DeleteRequest{ID: b}, nil))
	rec, err := ts.repo.Get(context.Background(), a)
	require.NoError(t, err)
	assert.Empty(t, rec.Connect)
}

func TestArchiveSolution(t *testing.T) {
	ts := newTestServer(t)
	root := ts.seed(t, "thought", "root", nil)
	thought := ts.seed(t, "thought", "why", &root)
	sol := ts.seed(t, "solution", "do it", &thought)
	ts.seed(t, "thought", "sibling", &root)

	var out api.DeleteResponse
	require.Equal(t, http.StatusOK, ts.post(t, "/archive", api.DeleteRequest{ID: sol}, &out))
	assert.Equal(t, api.ArchivedMsg, out.Msg)
	assert.Equal(t, []int64{sol, thought}, out.DeletedIDs)

	rec, err := ts.repo.Get(context.Background(), sol)
	require.NoError(t, err)
	assert.True(t, rec.Archived)
	rec, err = ts.repo.Get(context.Background(), root)
	require.NoError(t, err)
	assert.False(t, rec.Archived)

	var sols []api.NodeResponse
	require.Equal(t, http.StatusOK, ts.get(t, "/solutions", &sols))
	assert.Empty(t, sols)

	assert.Equal(t, http.StatusBadRequest, ts.post(t, "/archive", api.DeleteRequest{ID: sol}, nil))
	assert.Equal(t, http.StatusBadRequest, ts.post(t, "/archive", api.DeleteRequest{ID: root}, nil))
}

func TestUpdateRekeysOnKindChange(t *testing.T) {
	ts := newTestServer(t)
	parent := ts.seed(t, "thought", "parent", nil)
	child := ts.seed(t, "thought", "child", &parent)
	peer := ts.seed(t, "thought", "peer", nil)
	require.Equal(t, http.StatusOK, ts.post(t, "/connect", api.ConnectRequest{NodeID: peer, ConnectIDs: []int64{parent}}, nil))

	var out api.UpdateResponse
	require.Equal(t, http.StatusOK, ts.post(t, "/update", api.UpdateRequest{ID: parent, Type: "topic"}, &out))
	assert.NotEqual(t, parent, out.ID)

	ctx := context.Background()
	_, err := ts.repo.Get(ctx, parent)
	assert.ErrorIs(t, err, ErrNotFound)

	rec, err := ts.repo.Get(ctx, out.ID)
	require.NoError(t, err)
	assert.Equal(t, "topic", rec.Type)
	assert.Equal(t, "parent", rec.Content)
	assert.Equal(t, []int64{peer}, rec.Connect)

	kid, err := ts.repo.Get(ctx, child)
	require.NoError(t, err)
	require.NotNil(t, kid.Parent)
	assert.Equal(t, out.ID, *kid.Parent)

	p, err := ts.repo.Get(ctx, peer)
	require.NoError(t, err)
	assert.Equal(t, []int64{out.ID}, p.Connect)
}

func TestUpdateSameKindKeepsID(t *testing.T) {
	ts := newTestServer(t)
	id := ts.seed(t, "solution", "s", nil)

	var out api.UpdateResponse
	require.Equal(t, http.StatusOK, ts.post(t, "/update", api.UpdateRequest{ID: id, Type: "conclusion", Content: "s2"}, &out))
	assert.Equal(t, id, out.ID)

	rec, err := ts.repo.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "s2", rec.Content)

	assert.Equal(t, http.StatusNotFound, ts.post(t, "/update", api.UpdateRequest{ID: 99, Type: "thought"}, nil))
}

func TestConnectEstablishesParent(t *testing.T) {
	ts := newTestServer(t)
	thought := ts.seed(t, "thought", "t", nil)
	sol := ts.seed(t, "solution", "s", nil)

	var out api.ConnectResponse
	code := ts.post(t, "/connect", api.ConnectRequest{
		NodeID:               sol,
		ConnectIDs:           []int64{thought},
		NodeType:             "solution",
		ParentID:             thought,
		ChildID:              sol,
		EstablishParentChild: true,
	}, &out)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, out.Node)
	assert.Equal(t, []int64{thought}, out.Node.Connect)
	require.NotNil(t, out.Node.Parent)
	assert.Equal(t, thought, *out.Node.Parent)

	rec, err := ts.repo.Get(context.Background(), thought)
	require.NoError(t, err)
	assert.Equal(t, []int64{sol}, rec.Connect)

	// Repeating the call does not duplicate entries.
	require.Equal(t, http.StatusOK, ts.post(t, "/connect", api.ConnectRequest{NodeID: sol, ConnectIDs: []int64{thought}}, nil))
	rec, err = ts.repo.Get(context.Background(), thought)
	require.NoError(t, err)
	assert.Equal(t, []int64{sol}, rec.Connect)
	assert.Equal(t, float64(1), testutil.ToFloat64(ts.srv.Metrics().EdgesCreated))
}

func TestConnectErrors(t *testing.T) {
	ts := newTestServer(t)
	a := ts.seed(t, "thought", "a", nil)

	tests := []struct {
		name string
		req  api.ConnectRequest
		want int
	}{
		{"no targets", api.ConnectRequest{NodeID: a}, http.StatusBadRequest},
		{"self", api.ConnectRequest{NodeID: a, ConnectIDs: []int64{a}}, http.StatusBadRequest},
		{"unknown node", api.ConnectRequest{NodeID: 99, ConnectIDs: []int64{a}}, http.StatusNotFound},
		{"unknown target", api.ConnectRequest{NodeID: a, ConnectIDs: []int64{99}}, http.StatusNotFound},
		{"bad type", api.ConnectRequest{NodeID: a, ConnectIDs: []int64{a}, NodeType: "idea"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ts.post(t, "/connect", tt.req, nil))
		})
	}
}

func TestTopics(t *testing.T) {
	ts := newTestServer(t)
	for _, req := range []api.PostRequest{
		{Content: "a", Type: "thought", TopicName: "work"},
		{Content: "b", Type: "solution", TopicName: "work"},
		{Content: "c", Type: "thought", TopicName: "home"},
		{Content: "garden", Type: "topic"},
		{Content: "d", Type: "thought"},
	} {
		require.Equal(t, http.StatusOK, ts.post(t, "/post", req, nil))
	}

	var out []api.Topic
	require.Equal(t, http.StatusOK, ts.get(t, "/topics", &out))
	assert.Equal(t, []api.Topic{{Name: "garden", Count: 1}, {Name: "home", Count: 1}, {Name: "work", Count: 2}}, out)
}

func TestAgentEndpoints(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusOK, ts.post(t, "/post", api.PostRequest{Content: "睡不着", Type: "thought", TopicName: "sleep"}, nil))

	var out api.ReplyResponse
	require.Equal(t, http.StatusOK, ts.post(t, "/agent/chat", api.ChatRequest{InputText: "压力"}, &out))
	assert.Contains(t, out.Reply, "压力")

	require.Equal(t, http.StatusOK, ts.post(t, "/agent/advice", api.AdviceRequest{TopicName: "sleep"}, &out))
	assert.Contains(t, out.Reply, "睡不着")

	assert.Equal(t, http.StatusBadRequest, ts.post(t, "/agent/chat", api.ChatRequest{}, nil))
}

func TestInvalidJSON(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/post", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.get(t, "/ping", nil)
	ts.seed(t, "thought", "x", nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `bubblemind_http_requests_total{method="GET",route="/ping",status="200"} 1`)
	assert.Contains(t, text, "bubblemind_nodes_created_total 1")
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/post", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRotatingRecognizer(t *testing.T) {
	r := NewRotatingRecognizer("a", "b")
	ctx := context.Background()
	var got []string
	for range 3 {
		s, err := r.Recognize(ctx, []byte{1})
		require.NoError(t, err)
		got = append(got, s)
	}
	assert.Equal(t, []string{"a", "b", "a"}, got)

	_, err := r.Recognize(ctx, nil)
	assert.Error(t, err)
}

func TestServerOverRedis(t *testing.T) {
	repo, _ := setupTestRedis(t)
	srv := New(Options{Repository: repo})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	data, _ := json.Marshal(api.PostRequest{Content: "x", Type: "thought"})
	resp, err := http.Post(ts.URL+"/post", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	var node api.NodeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&node))
	resp.Body.Close()

	data, _ = json.Marshal(api.DeleteRequest{ID: node.ID})
	resp, err = http.Post(ts.URL+"/delete", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	var out api.DeleteResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	assert.Equal(t, []int64{node.ID}, out.DeletedIDs)
}
