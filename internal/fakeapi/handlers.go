package fakeapi

import (
	"bufio"
	"bytes"
	"io"
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/nludb/nludb-go/internal/domain"
)

func (s *Server) createFile(w http.ResponseWriter, r *http.Request) {
	var req domain.FileCreateRequest
	var content []byte

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUpload); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid multipart body")
			return
		}
		req.Type = domain.UploadType(r.FormValue("type"))
		req.Name = r.FormValue("name")
		req.CorpusID = r.FormValue("corpusId")
		req.FileFormat = r.FormValue("fileFormat")
		req.Convert = r.FormValue("convert") == "true"

		f, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "missing file part")
			return
		}
		defer f.Close()
		if content, err = io.ReadAll(f); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "unreadable file part")
			return
		}
	} else if !decode(w, r, &req) {
		return
	}

	switch req.Type {
	case domain.UploadTypeFile:
	case domain.UploadTypeURL:
		if req.URL == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "url is required")
			return
		}
		content = []byte(req.URL)
	default:
		writeError(w, http.StatusBadRequest, "bad_request", "unknown upload type "+string(req.Type))
		return
	}

	s.mu.Lock()
	id := s.nextID("file")
	file := domain.File{ID: id, Name: req.Name, Format: req.FileFormat, CorpusID: req.CorpusID}
	s.files[id] = file
	s.raw[id] = content
	if req.Type == domain.UploadTypeFile {
		s.blocks[id] = blockify(content)
	}
	s.mu.Unlock()

	writeData(w, file)
}

// blockify turns every non-empty line into a paragraph block.
func blockify(content []byte) []domain.Block {
	var blocks []domain.Block
	sc := bufio.NewScanner(bytes.NewReader(content))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		blocks = append(blocks, domain.Block{Type: "paragraph", Value: line})
	}
	return blocks
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	var req domain.ListFilesRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	files := make([]domain.File, 0, len(s.files))
	for _, f := range s.files {
		if req.CorpusID == "" || f.CorpusID == req.CorpusID {
			files = append(files, f)
		}
	}
	s.mu.Unlock()

	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	writeData(w, domain.ListFilesResponse{Files: files})
}

// lookupFile decodes a FileIDRequest and checks the file exists.
func (s *Server) lookupFile(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req domain.FileIDRequest
	if !decode(w, r, &req) {
		return "", false
	}
	s.mu.Lock()
	_, ok := s.files[req.FileID]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "file not found: "+req.FileID)
		return "", false
	}
	return req.FileID, true
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lookupFile(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.files, id)
	delete(s.raw, id)
	delete(s.blocks, id)
	delete(s.tags, id)
	s.mu.Unlock()
	writeData(w, domain.FileIDResponse{FileID: id})
}

func (s *Server) clearFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lookupFile(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.blocks, id)
	s.mu.Unlock()
	writeData(w, domain.FileIDResponse{FileID: id})
}

func (s *Server) rawFile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.lookupFile(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	data := s.raw[id]
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

func (s *Server) queryFile(w http.ResponseWriter, r *http.Request) {
	var req domain.FileQueryRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	s.lastQuery = &req
	_, exists := s.files[req.FileID]
	blocks := s.blocks[req.FileID]
	s.mu.Unlock()

	if !exists {
		writeError(w, http.StatusNotFound, "not_found", "file not found: "+req.FileID)
		return
	}

	out := make([]domain.Block, 0, len(blocks))
	for _, b := range blocks {
		if matchBlock(b, &req) {
			out = append(out, b)
		}
	}
	writeData(w, domain.FileQueryResponse{FileID: req.FileID, Blocks: out})
}

func matchBlock(b domain.Block, q *domain.FileQueryRequest) bool {
	if q.BlockType != nil && b.Type != *q.BlockType {
		return false
	}
	if q.Text != nil {
		mode := "contains"
		if q.TextMode != nil {
			mode = *q.TextMode
		}
		switch mode {
		case "exact":
			if b.Value != *q.Text {
				return false
			}
		default:
			if !strings.Contains(b.Value, *q.Text) {
				return false
			}
		}
	}
	for _, sq := range q.HasSpans {
		if !hasSpan(b.Spans, sq) {
			return false
		}
	}
	return true
}

func hasSpan(spans []domain.Span, q domain.SpanQuery) bool {
	for _, sp := range spans {
		if q.Label != nil && sp.Label != *q.Label {
			continue
		}
		if q.Text != nil && sp.Text != *q.Text {
			continue
		}
		return true
	}
	return false
}

func (s *Server) tagFile(w http.ResponseWriter, r *http.Request) {
	var req domain.FileTagRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[req.FileID]; !ok {
		writeError(w, http.StatusNotFound, "not_found", "file not found: "+req.FileID)
		return
	}
	t := s.newTask(domain.FileTagResponse{
		FileID:    req.FileID,
		TagResult: domain.ParseResponse{Blocks: s.blocks[req.FileID]},
	}, nil)
	writeTask(w, t)
}

func (s *Server) parseFile(w http.ResponseWriter, r *http.Request) {
	var req domain.ParseRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[req.FileID]; !ok {
		writeError(w, http.StatusNotFound, "not_found", "file not found: "+req.FileID)
		return
	}
	t := s.newTask(domain.ParseResponse{Blocks: s.blocks[req.FileID]}, nil)
	writeTask(w, t)
}

func (s *Server) convertFile(w http.ResponseWriter, r *http.Request) {
	var req domain.ConvertRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[req.ID]; !ok {
		writeError(w, http.StatusNotFound, "not_found", "file not found: "+req.ID)
		return
	}
	id := req.ID
	t := s.newTask(domain.ConvertResponse{ID: id, Type: req.Type}, func() {
		if _, ok := s.blocks[id]; !ok {
			s.blocks[id] = blockify(s.raw[id])
		}
	})
	writeTask(w, t)
}

func (s *Server) createTags(w http.ResponseWriter, r *http.Request) {
	var req domain.TagObjectRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	existing := s.tags[req.ObjectID]
	for _, t := range req.Tags {
		if !slices.Contains(existing, t.Name) {
			existing = append(existing, t.Name)
		}
	}
	s.tags[req.ObjectID] = existing
	s.mu.Unlock()
	writeData(w, req)
}

func (s *Server) deleteTags(w http.ResponseWriter, r *http.Request) {
	var req domain.TagObjectRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	var kept []string
	for _, name := range s.tags[req.ObjectID] {
		drop := false
		for _, t := range req.Tags {
			if t.Name == name {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, name)
		}
	}
	s.tags[req.ObjectID] = kept
	s.mu.Unlock()
	writeData(w, req)
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	var req domain.ListTagsRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	names := s.tags[req.ObjectID]
	tags := make([]domain.Tag, len(names))
	for i, n := range names {
		tags[i] = domain.Tag{Name: n}
	}
	s.mu.Unlock()
	writeData(w, domain.ListTagsResponse{Tags: tags})
}

func (s *Server) createIndex(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateIndexRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, idx := range s.indexes {
		if idx.meta.Name == req.Name {
			if !req.Upsert {
				writeError(w, http.StatusConflict, "already_exists", "index exists: "+req.Name)
				return
			}
			writeData(w, idx.meta)
			return
		}
	}
	meta := domain.EmbeddingIndex{ID: s.nextID("index"), Name: req.Name, Model: req.Model}
	s.indexes[meta.ID] = &index{meta: meta}
	writeData(w, meta)
}

func (s *Server) insertIndex(w http.ResponseWriter, r *http.Request) {
	var req domain.IndexInsertRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[req.IndexID]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "index not found: "+req.IndexID)
		return
	}
	ids := make([]string, len(req.Items))
	for i := range req.Items {
		ids[i] = s.nextID("item")
	}
	items := req.Items
	t := s.newTask(domain.IndexInsertResponse{ItemIDs: ids}, func() {
		idx.items = append(idx.items, items...)
	})
	writeTask(w, t)
}

func (s *Server) searchIndex(w http.ResponseWriter, r *http.Request) {
	var req domain.IndexSearchRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	idx, ok := s.indexes[req.IndexID]
	var hits []domain.IndexHit
	if ok {
		hits = rank(idx.items, req.Query)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "index not found: "+req.IndexID)
		return
	}
	if req.K > 0 && len(hits) > req.K {
		hits = hits[:req.K]
	}
	writeData(w, domain.IndexSearchResponse{Hits: hits})
}

// rank scores items by the share of query words they contain.
func rank(items []domain.IndexItem, query string) []domain.IndexHit {
	words := strings.Fields(strings.ToLower(query))
	hits := make([]domain.IndexHit, 0, len(items))
	for _, it := range items {
		value := strings.ToLower(it.Value)
		matched := 0
		for _, wd := range words {
			if strings.Contains(value, wd) {
				matched++
			}
		}
		score := 0.0
		if len(words) > 0 {
			score = float64(matched) / float64(len(words))
		}
		hits = append(hits, domain.IndexHit{
			Value:        it.Value,
			Score:        score,
			ExternalID:   it.ExternalID,
			ExternalType: it.ExternalType,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits
}

func (s *Server) deleteIndex(w http.ResponseWriter, r *http.Request) {
	var req domain.IndexIDRequest
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	meta, ok := s.indexes[req.IndexID]
	delete(s.indexes, req.IndexID)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "index not found: "+req.IndexID)
		return
	}
	writeData(w, meta.meta)
}

func (s *Server) taskStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.TaskStatusRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[req.TaskID]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "task not found: "+req.TaskID)
		return
	}

	if t.pending > 0 {
		t.pending--
		writeJSON(w, http.StatusOK, map[string]any{
			"task": domain.Task{TaskID: t.id, State: domain.TaskRunning},
		})
		return
	}

	if t.failure != "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"task": domain.Task{TaskID: t.id, State: domain.TaskFailed, StatusMessage: t.failure},
		})
		return
	}

	if t.completed != nil {
		t.completed()
		t.completed = nil
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"task": domain.Task{TaskID: t.id, State: domain.TaskSucceeded},
		"data": t.data,
	})
}
