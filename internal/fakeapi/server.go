// Package fakeapi is an in-memory NLUDB API used by tests.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nludb/nludb-go/internal/domain"
)

// BasePath is where the API routes are mounted.
const BasePath = "/api/v1/"

// maxUpload bounds multipart bodies.
const maxUpload = 32 << 20

type injectedError struct {
	status  int
	code    string
	message string
}

type task struct {
	id        string
	pending   int
	failure   string
	data      any
	completed func()
}

type index struct {
	meta  domain.EmbeddingIndex
	items []domain.IndexItem
}

// Server is a fake NLUDB API backed by maps.
type Server struct {
	apiKey string

	mu           sync.Mutex
	seq          int
	files        map[string]domain.File
	raw          map[string][]byte
	blocks       map[string][]domain.Block
	tags         map[string][]string
	indexes      map[string]*index
	tasks        map[string]*task
	calls        map[string]int
	failures     map[string]injectedError
	lastQuery    *domain.FileQueryRequest
	pendingPolls int
	failTasks    string
}

// New creates a fake API accepting apiKey as bearer token.
func New(apiKey string) *Server {
	return &Server{
		apiKey:       apiKey,
		files:        make(map[string]domain.File),
		raw:          make(map[string][]byte),
		blocks:       make(map[string][]domain.Block),
		tags:         make(map[string][]string),
		indexes:      make(map[string]*index),
		tasks:        make(map[string]*task),
		calls:        make(map[string]int),
		failures:     make(map[string]injectedError),
		pendingPolls: 1,
	}
}

// Handler returns the chi router serving the API under BasePath.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route(strings.TrimSuffix(BasePath, "/"), func(r chi.Router) {
		r.Use(bearerAuth(s.apiKey))
		r.Use(s.countCalls)
		r.Use(s.injectFailures)

		r.Post("/file/create", s.createFile)
		r.Post("/file/list", s.listFiles)
		r.Post("/file/delete", s.deleteFile)
		r.Post("/file/clear", s.clearFile)
		r.Post("/file/raw", s.rawFile)
		r.Post("/file/query", s.queryFile)
		r.Post("/file/tag", s.tagFile)
		r.Post("/file/parse", s.parseFile)
		r.Post("/model/convert", s.convertFile)

		r.Post("/tag/create", s.createTags)
		r.Post("/tag/delete", s.deleteTags)
		r.Post("/tag/list", s.listTags)

		r.Post("/embedding-index/create", s.createIndex)
		r.Post("/embedding-index/insert", s.insertIndex)
		r.Post("/embedding-index/search", s.searchIndex)
		r.Post("/embedding-index/delete", s.deleteIndex)

		r.Post("/task/status", s.taskStatus)
	})
	return r
}

// SeedFile stores a file with pre-parsed blocks and returns its id.
func (s *Server) SeedFile(name string, blocks []domain.Block) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID("file")
	s.files[id] = domain.File{ID: id, Name: name}
	s.blocks[id] = blocks
	return id
}

// SetPendingPolls sets how many status polls a task reports "running" before it completes.
func (s *Server) SetPendingPolls(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingPolls = n
}

// FailTasks makes every new task end in the failed state with msg.
func (s *Server) FailTasks(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failTasks = msg
}

// FailEndpoint makes endpoint respond with an error until cleared with status 0.
func (s *Server) FailEndpoint(endpoint string, status int, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, endpoint)
		return
	}
	s.failures[endpoint] = injectedError{status: status, code: code, message: message}
}

// Calls returns how many times endpoint was hit (e.g. "file/query").
func (s *Server) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

// LastQuery returns the most recent file/query request.
func (s *Server) LastQuery() *domain.FileQueryRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery
}

// IndexItems returns the items inserted into an index.
func (s *Server) IndexItems(indexID string) []domain.IndexItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.indexes[indexID]; ok {
		return append([]domain.IndexItem(nil), idx.items...)
	}
	return nil
}

// Tags returns the tag names attached to a file.
func (s *Server) Tags(fileID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tags[fileID]...)
}

func (s *Server) endpoint(r *http.Request) string {
	return strings.TrimPrefix(r.URL.Path, BasePath)
}

func (s *Server) countCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[s.endpoint(r)]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f, ok := s.failures[s.endpoint(r)]
		s.mu.Unlock()
		if ok {
			writeError(w, f.status, f.code, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// nextID must be called with s.mu held.
func (s *Server) nextID(kind string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", kind, s.seq)
}

// newTask registers an asynchronous task; must be called with s.mu held.
func (s *Server) newTask(data any, completed func()) *task {
	t := &task{
		id:        s.nextID("task"),
		pending:   s.pendingPolls,
		failure:   s.failTasks,
		data:      data,
		completed: completed,
	}
	s.tasks[t.id] = t
	return t
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func writeTask(w http.ResponseWriter, t *task) {
	writeJSON(w, http.StatusOK, map[string]any{
		"task": domain.Task{TaskID: t.id, State: domain.TaskRunning},
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, domain.Envelope{Error: &domain.ErrorBody{Code: code, Message: message}})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "unreadable body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json: "+err.Error())
		return false
	}
	return true
}
