package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/phanxgames/bubblemind"
	"github.com/phanxgames/bubblemind/api"
)

const maxUploadBytes = 10 << 20

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, api.PingResponse{Msg: "pong"})
}

// decode reads a JSON body into v and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	api.Error(w, http.StatusInternalServerError, err.Error())
}

// normalizeType maps legacy and empty type names onto the canonical ones.
func normalizeType(t string) (string, bool) {
	k, ok := bubblemind.ParseKind(t)
	if !ok {
		return "", false
	}
	return k.String(), true
}

func (s *Server) ocr(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()
	image, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "read file")
		return
	}
	typ, ok := normalizeType(r.FormValue("type"))
	if !ok {
		api.Error(w, http.StatusBadRequest, fmt.Sprintf("unknown type %q", r.FormValue("type")))
		return
	}

	text, err := s.recognizer.Recognize(r.Context(), image)
	if err != nil {
		s.internalError(w, "ocr", err)
		return
	}

	rec, err := s.create(r.Context(), Record{
		Type:      typ,
		Content:   text,
		TopicName: r.FormValue("topic_name"),
	})
	if err != nil {
		s.internalError(w, "ocr", err)
		return
	}
	api.Success(w, http.StatusOK, api.OCRResponse{Text: text, ID: rec.ID})
}

func (s *Server) createNode(w http.ResponseWriter, r *http.Request) {
	var req api.PostRequest
	if !s.decode(w, r, &req) {
		return
	}
	typ, ok := normalizeType(req.Type)
	if !ok {
		api.Error(w, http.StatusBadRequest, fmt.Sprintf("unknown type %q", req.Type))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Parent != nil {
		if _, err := s.repo.Get(r.Context(), *req.Parent); err != nil {
			s.lookupError(w, "post", err)
			return
		}
	}
	rec, err := s.create(r.Context(), Record{
		Type:      typ,
		Content:   req.Content,
		Parent:    req.Parent,
		TopicName: req.TopicName,
	})
	if err != nil {
		s.internalError(w, "post", err)
		return
	}
	api.Success(w, http.StatusOK, toNodeResponse(rec))
}

func (s *Server) create(ctx context.Context, rec Record) (Record, error) {
	id, err := s.repo.NextID(ctx)
	if err != nil {
		return Record{}, err
	}
	rec.ID = id
	rec.CreateTime = s.now().UTC()
	if err := s.repo.Create(ctx, rec); err != nil {
		return Record{}, err
	}
	s.metrics.NodesCreated.Inc()
	s.logger.Debug("node created", zap.Int64("id", rec.ID), zap.String("type", rec.Type))
	return rec, nil
}

func (s *Server) lookupError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrNotFound) {
		api.Error(w, http.StatusNotFound, "节点不存在")
		return
	}
	s.internalError(w, op, err)
}

// find resolves a delete or archive target by id, falling back to content.
func (s *Server) find(ctx context.Context, req api.DeleteRequest) (Record, error) {
	if req.ID != 0 {
		rec, err := s.repo.Get(ctx, req.ID)
		if err == nil || !errors.Is(err, ErrNotFound) || req.Content == "" {
			return rec, err
		}
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return Record{}, err
	}
	for _, rec := range all {
		if !rec.Archived && rec.Content == req.Content {
			return rec, nil
		}
	}
	return Record{}, ErrNotFound
}

// activeChildren counts the unarchived records whose parent is id.
func (s *Server) activeChildren(ctx context.Context, id int64) (int, error) {
	kids, err := s.repo.Children(ctx, id)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, k := range kids {
		if !k.Archived {
			n++
		}
	}
	return n, nil
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) {
	var req api.DeleteRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.find(ctx, req)
	if err != nil {
		s.lookupError(w, "delete", err)
		return
	}
	kids, err := s.activeChildren(ctx, node.ID)
	if err != nil {
		s.internalError(w, "delete", err)
		return
	}
	if kids > 0 {
		api.Error(w, http.StatusBadRequest, "该节点有子节点，不能直接删除")
		return
	}

	var deleted []api.DeletedNode
	// Remove the node, then every parent it leaves without children.
	for cur := &node; cur != nil; {
		if err := s.removeRecord(ctx, cur.ID); err != nil {
			s.internalError(w, "delete", err)
			return
		}
		deleted = append(deleted, api.DeletedNode{ID: cur.ID, Content: cur.Content})
		next, err := s.orphanedParent(ctx, *cur)
		if err != nil {
			s.internalError(w, "delete", err)
			return
		}
		cur = next
	}
	s.metrics.NodesDeleted.Add(float64(len(deleted)))

	api.Success(w, http.StatusOK, api.DeleteResponse{
		Code:       api.Code(api.CodeOK),
		Msg:        fmt.Sprintf("节点 %d 及其部分前置节点已被消除", node.ID),
		Data:       &api.DeleteData{Deleted: deleted},
		DeletedIDs: deletedIDs(deleted),
	})
}

// orphanedParent returns rec's parent when it has no active children left.
func (s *Server) orphanedParent(ctx context.Context, rec Record) (*Record, error) {
	if rec.Parent == nil {
		return nil, nil
	}
	parent, err := s.repo.Get(ctx, *rec.Parent)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if parent.Archived {
		return nil, nil
	}
	n, err := s.activeChildren(ctx, parent.ID)
	if err != nil || n > 0 {
		return nil, err
	}
	return &parent, nil
}

// removeRecord deletes id and drops it from every connect list.
func (s *Server) removeRecord(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.repointConnections(ctx, id, 0)
}

// repointConnections replaces from with to in every connect list, or drops
// it when to is zero.
func (s *Server) repointConnections(ctx context.Context, from, to int64) error {
	all, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	for _, rec := range all {
		i := slices.Index(rec.Connect, from)
		if i < 0 {
			continue
		}
		if to == 0 || slices.Contains(rec.Connect, to) {
			rec.Connect = slices.Delete(rec.Connect, i, i+1)
		} else {
			rec.Connect[i] = to
		}
		if err := s.repo.Update(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func deletedIDs(nodes []api.DeletedNode) []int64 {
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

func (s *Server) archiveNode(w http.ResponseWriter, r *http.Request) {
	var req api.DeleteRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.find(ctx, req)
	if err != nil {
		s.lookupError(w, "archive", err)
		return
	}
	if node.Type != bubblemind.KindSolution.String() {
		api.Error(w, http.StatusBadRequest, "只能归档solution节点")
		return
	}
	if node.Archived {
		api.Error(w, http.StatusBadRequest, "节点已归档")
		return
	}

	var archived []api.DeletedNode
	// Archive the solution, then every thought ancestor left without
	// active children.
	for cur := &node; cur != nil; {
		cur.Archived = true
		if err := s.repo.Update(ctx, *cur); err != nil {
			s.internalError(w, "archive", err)
			return
		}
		archived = append(archived, api.DeletedNode{ID: cur.ID, Content: cur.Content})
		next, err := s.orphanedParent(ctx, *cur)
		if err != nil {
			s.internalError(w, "archive", err)
			return
		}
		if next != nil && next.Type != bubblemind.KindThought.String() {
			next = nil
		}
		cur = next
	}
	s.metrics.NodesDeleted.Add(float64(len(archived)))

	api.Success(w, http.StatusOK, api.DeleteResponse{
		Code:       api.Code(api.CodeOK),
		Msg:        api.ArchivedMsg,
		Data:       &api.DeleteData{Deleted: archived},
		DeletedIDs: deletedIDs(archived),
	})
}

func (s *Server) updateNode(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	typ, ok := normalizeType(req.Type)
	if !ok {
		api.Error(w, http.StatusBadRequest, fmt.Sprintf("unknown type %q", req.Type))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.repo.Get(ctx, req.ID)
	if err != nil {
		s.lookupError(w, "update", err)
		return
	}
	if req.Content != "" {
		old.Content = req.Content
	}
	if old.Type == typ {
		if err := s.repo.Update(ctx, old); err != nil {
			s.internalError(w, "update", err)
			return
		}
		api.Success(w, http.StatusOK, api.UpdateResponse{ID: old.ID, Msg: "节点已更新"})
		return
	}

	// A kind change re-files the node under a new id.
	rec := old
	rec.Type = typ
	rec, err = s.create(ctx, rec)
	if err != nil {
		s.internalError(w, "update", err)
		return
	}
	if err := s.rekey(ctx, old.ID, rec.ID); err != nil {
		s.internalError(w, "update", err)
		return
	}
	s.logger.Info("node re-keyed",
		zap.Int64("from", old.ID),
		zap.Int64("to", rec.ID),
		zap.String("type", typ),
	)
	api.Success(w, http.StatusOK, api.UpdateResponse{ID: rec.ID, Msg: "节点类型已更新"})
}

// rekey moves children and connections from one id to another and removes
// the old record.
func (s *Server) rekey(ctx context.Context, from, to int64) error {
	kids, err := s.repo.Children(ctx, from)
	if err != nil {
		return err
	}
	for _, k := range kids {
		k.Parent = &to
		if err := s.repo.Update(ctx, k); err != nil {
			return err
		}
	}
	if err := s.repo.Delete(ctx, from); err != nil {
		return err
	}
	return s.repointConnections(ctx, from, to)
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	var req api.ConnectRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := s.repo.Get(ctx, req.NodeID)
	if err != nil {
		s.lookupError(w, "connect", err)
		return
	}
	if req.NodeType != "" {
		if _, ok := normalizeType(req.NodeType); !ok {
			api.Error(w, http.StatusBadRequest, fmt.Sprintf("unknown node_type %q", req.NodeType))
			return
		}
	}

	added := 0
	for _, id := range req.ConnectIDs {
		if id == node.ID {
			api.Error(w, http.StatusBadRequest, "不能连接自身")
			return
		}
		other, err := s.repo.Get(ctx, id)
		if err != nil {
			s.lookupError(w, "connect", err)
			return
		}
		if !slices.Contains(node.Connect, id) {
			node.Connect = append(node.Connect, id)
			added++
		}
		if !slices.Contains(other.Connect, node.ID) {
			other.Connect = append(other.Connect, node.ID)
			if err := s.repo.Update(ctx, other); err != nil {
				s.internalError(w, "connect", err)
				return
			}
		}
	}
	if err := s.repo.Update(ctx, node); err != nil {
		s.internalError(w, "connect", err)
		return
	}

	if req.EstablishParentChild {
		if err := s.setParent(ctx, req.ParentID, req.ChildID); err != nil {
			s.lookupError(w, "connect", err)
			return
		}
		if req.ChildID == node.ID {
			node, _ = s.repo.Get(ctx, node.ID)
		}
	}
	s.metrics.EdgesCreated.Add(float64(added))

	resp := toNodeResponse(node)
	api.Success(w, http.StatusOK, api.ConnectResponse{Msg: "连接成功", Node: &resp})
}

func (s *Server) setParent(ctx context.Context, parentID, childID int64) error {
	if _, err := s.repo.Get(ctx, parentID); err != nil {
		return err
	}
	child, err := s.repo.Get(ctx, childID)
	if err != nil {
		return err
	}
	child.Parent = &parentID
	return s.repo.Update(ctx, child)
}

func (s *Server) topics(w http.ResponseWriter, r *http.Request) {
	all, err := s.repo.List(r.Context())
	if err != nil {
		s.internalError(w, "topics", err)
		return
	}
	counts := make(map[string]int)
	for _, rec := range all {
		if rec.Archived {
			continue
		}
		name := rec.TopicName
		if name == "" && rec.Type == bubblemind.KindTopic.String() {
			name = rec.Content
		}
		if name != "" {
			counts[name]++
		}
	}
	out := make([]api.Topic, 0, len(counts))
	for name, n := range counts {
		out = append(out, api.Topic{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	api.Success(w, http.StatusOK, out)
}

func (s *Server) solutions(w http.ResponseWriter, r *http.Request) {
	all, err := s.repo.List(r.Context())
	if err != nil {
		s.internalError(w, "solutions", err)
		return
	}
	out := []api.NodeResponse{}
	for _, rec := range all {
		if !rec.Archived && rec.Type == bubblemind.KindSolution.String() {
			out = append(out, toNodeResponse(rec))
		}
	}
	api.Success(w, http.StatusOK, out)
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if !s.decode(w, r, &req) {
		return
	}
	reply, err := s.assistant.Chat(r.Context(), req.InputText)
	if err != nil {
		s.internalError(w, "chat", err)
		return
	}
	api.Success(w, http.StatusOK, api.ReplyResponse{Reply: reply})
}

func (s *Server) advice(w http.ResponseWriter, r *http.Request) {
	var req api.AdviceRequest
	if !s.decode(w, r, &req) {
		return
	}
	all, err := s.repo.List(r.Context())
	if err != nil {
		s.internalError(w, "advice", err)
		return
	}
	var thoughts, solutions []string
	for _, rec := range all {
		if rec.Archived || rec.TopicName != req.TopicName {
			continue
		}
		switch rec.Type {
		case bubblemind.KindThought.String():
			thoughts = append(thoughts, rec.Content)
		case bubblemind.KindSolution.String():
			solutions = append(solutions, rec.Content)
		}
	}
	reply, err := s.assistant.Advice(r.Context(), req.TopicName, thoughts, solutions)
	if err != nil {
		s.internalError(w, "advice", err)
		return
	}
	api.Success(w, http.StatusOK, api.ReplyResponse{Reply: reply})
}

func toNodeResponse(r Record) api.NodeResponse {
	connect := r.Connect
	if connect == nil {
		connect = []int64{}
	}
	return api.NodeResponse{
		ID:         r.ID,
		Content:    r.Content,
		Type:       r.Type,
		Parent:     r.Parent,
		TopicName:  r.TopicName,
		Connect:    connect,
		Archived:   r.Archived,
		CreateTime: r.CreateTime.Format(time.RFC3339),
	}
}
