// Package server hosts a self-contained article publishing backend for
// development and tests: the same five endpoints the real service exposes,
// backed by an in-memory table with an optional JSON snapshot on disk.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"newsdesk/internal/model"
)

type Config struct {
	// AdminUser / AdminPassword are the only accepted credentials.
	AdminUser     string
	AdminPassword string
	// SnapshotPath, when set, is a JSON file loaded at startup and written
	// on shutdown so articles survive restarts.
	SnapshotPath string
	Logger       *zap.Logger
}

type Server struct {
	mu       sync.Mutex
	articles []*model.Article
	tokens   map[string]bool

	adminUser    string
	passwordHash []byte
	snapshotPath string

	router *mux.Router
	server *http.Server
	cron   *cron.Cron
	logger *zap.Logger
	now    func() time.Time
}

func New(cfg Config) (*Server, error) {
	if cfg.AdminUser == "" || cfg.AdminPassword == "" {
		return nil, fmt.Errorf("admin credentials are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		tokens:       make(map[string]bool),
		adminUser:    cfg.AdminUser,
		passwordHash: hash,
		snapshotPath: cfg.SnapshotPath,
		router:       mux.NewRouter(),
		logger:       logger,
		now:          time.Now,
	}
	s.routes()

	if s.snapshotPath != "" {
		if err := s.loadSnapshot(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Server) routes() {
	s.router.HandleFunc("/", s.handleRoot).Methods("GET")
	s.router.HandleFunc("/login", s.handleLogin).Methods("POST")
	s.router.HandleFunc("/articles", s.handleList).Methods("GET")
	s.router.HandleFunc("/articles", s.requireAuth(s.handleCreate)).Methods("POST")
	s.router.HandleFunc("/articles/{id}", s.requireAuth(s.handleUpdate)).Methods("PUT")
	s.router.HandleFunc("/articles/{id}/status", s.requireAuth(s.handleStatus)).Methods("PUT")
}

// Handler exposes the router, mainly so tests can mount it on httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start launches the HTTP server and the publish scheduler. Stop may be
// called from another goroutine, so both are published under s.mu.
func (s *Server) Start(addr string) error {
	c := cron.New()
	if _, err := c.AddFunc("@every 1m", s.sweepSchedules); err != nil {
		return fmt.Errorf("failed to schedule status sweep: %w", err)
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.mu.Lock()
	s.cron = c
	s.server = srv
	s.mu.Unlock()

	c.Start()
	s.logger.Info("Dev server listening", zap.String("addr", addr))
	return srv.ListenAndServe()
}

// Stop shuts down the server, the scheduler, and writes the snapshot.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	c, srv := s.cron, s.server
	s.mu.Unlock()

	if c != nil {
		c.Stop()
	}
	if s.snapshotPath != "" {
		if err := s.saveSnapshot(); err != nil {
			s.logger.Error("Failed to write snapshot", zap.Error(err))
		}
	}
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Article API"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if creds.Username != s.adminUser ||
		bcrypt.CompareHashAndPassword(s.passwordHash, []byte(creds.Password)) != nil {
		s.logger.Warn("Login rejected", zap.String("username", creds.Username))
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = true
	s.mu.Unlock()

	s.logger.Info("Login accepted", zap.String("username", creds.Username))
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		s.mu.Lock()
		valid := s.tokens[token]
		s.mu.Unlock()

		if !valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

// handleList returns published articles only.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	published := make([]model.Article, 0, len(s.articles))
	for _, a := range s.articles {
		if a.Status == model.StatusPublished {
			published = append(published, *a)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, published)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.articles {
		if existing.URL == payload.URL {
			writeError(w, http.StatusBadRequest, "article with this URL already exists")
			return
		}
	}

	now := s.now().UTC()
	article := &model.Article{
		ID:          uuid.NewString(),
		Title:       payload.Title,
		URL:         payload.URL,
		Status:      payload.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
		PublishAt:   payload.PublishAt,
		UnpublishAt: payload.UnpublishAt,
	}
	s.articles = append(s.articles, article)

	s.logger.Info("Article created",
		zap.String("id", article.ID),
		zap.String("title", article.Title))
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Article added successfully",
		"article": article,
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()

	article := s.findLocked(id)
	if article == nil {
		writeError(w, http.StatusNotFound, "article not found")
		return
	}

	article.Title = payload.Title
	article.URL = payload.URL
	article.Status = payload.Status
	article.PublishAt = payload.PublishAt
	article.UnpublishAt = payload.UnpublishAt
	article.UpdatedAt = s.now().UTC()

	writeJSON(w, http.StatusOK, article)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := model.ParseStatus(body.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()

	article := s.findLocked(id)
	if article == nil {
		writeError(w, http.StatusNotFound, "article not found")
		return
	}

	article.Status = status
	article.UpdatedAt = s.now().UTC()
	writeJSON(w, http.StatusOK, article)
}

// findLocked looks up an article by id. Callers must hold s.mu.
func (s *Server) findLocked(id string) *model.Article {
	for _, a := range s.articles {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// sweepSchedules flips the status of articles whose publish or unpublish
// time has passed. Runs every minute while the server is up.
func (s *Server) sweepSchedules() {
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.articles {
		if a.PublishAt != nil && !a.PublishAt.After(now) && a.Status == model.StatusUnpublished {
			a.Status = model.StatusPublished
			a.UpdatedAt = now
			s.logger.Info("Article published on schedule", zap.String("id", a.ID))
		}
		if a.UnpublishAt != nil && !a.UnpublishAt.After(now) && a.Status == model.StatusPublished {
			a.Status = model.StatusUnpublished
			a.UpdatedAt = now
			s.logger.Info("Article unpublished on schedule", zap.String("id", a.ID))
		}
	}
}

func (s *Server) loadSnapshot() error {
	data, err := os.ReadFile(s.snapshotPath)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	var articles []*model.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return fmt.Errorf("failed to parse snapshot: %w", err)
	}

	s.mu.Lock()
	s.articles = articles
	s.mu.Unlock()

	s.logger.Info("Snapshot loaded", zap.Int("articles", len(articles)))
	return nil
}

func (s *Server) saveSnapshot() error {
	s.mu.Lock()
	data, err := json.Marshal(s.articles)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.snapshotPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.snapshotPath, data, 0o644)
}

func decodePayload(w http.ResponseWriter, r *http.Request) (model.Payload, bool) {
	var payload model.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return payload, false
	}
	draft := model.ArticleDraft{
		Title:       payload.Title,
		URL:         payload.URL,
		Status:      payload.Status,
		PublishAt:   payload.PublishAt,
		UnpublishAt: payload.UnpublishAt,
	}
	if err := draft.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return payload, false
	}
	return payload, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
