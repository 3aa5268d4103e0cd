package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/MrEthical07/bitguard"
	"github.com/MrEthical07/bitguard/middleware"
	"github.com/MrEthical07/bitguard/permission"
)

const articlesModule = "articles"

var errBadRequest = errors.New("bad request")

type server struct {
	engine  *bitguard.Engine
	backend backend
	logger  *slog.Logger
	login   *ipLimiter

	mu       sync.RWMutex
	nextID   int64
	articles map[int64]article
}

type article struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

func newServer(engine *bitguard.Engine, be backend, logger *slog.Logger, cfg serverConfig) *server {
	return &server{
		engine:   engine,
		backend:  be,
		logger:   logger,
		login:    newIPLimiter(cfg.LoginRPS, cfg.LoginBurst, 10*time.Minute, time.Now),
		articles: make(map[int64]article),
	}
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("POST /login", s.login.middleware(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("POST /refresh", s.handleRefresh)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.Handle("GET /me", middleware.Authenticate(s.engine)(http.HandlerFunc(s.handleMe)))

	articles := middleware.RequireModule(s.engine, articlesModule)
	mux.Handle("GET /articles", articles(http.HandlerFunc(s.handleListArticles)))
	mux.Handle("POST /articles", articles(http.HandlerFunc(s.handleCreateArticle)))
	mux.Handle("DELETE /articles/{id}", articles(http.HandlerFunc(s.handleDeleteArticle)))
	return mux
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	latency, err := s.backend.Ping(r.Context())
	if err != nil {
		s.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "store_latency": latency.String()})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Identifier == "" || body.Password == "" {
		writeBadRequest(w, "identifier and password are required")
		return
	}

	pair, err := s.engine.Login(withClientIP(r), body.Identifier, body.Password)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &body); err != nil || body.RefreshToken == "" {
		writeBadRequest(w, "refresh_token is required")
		return
	}

	pair, err := s.engine.Refresh(withClientIP(r), body.RefreshToken)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearer(r)
	if !ok {
		middleware.WriteError(w, bitguard.ErrAuthRequired)
		return
	}
	if err := s.engine.Logout(withClientIP(r), token); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	grants, err := s.engine.Grants(r.Context(), res.SubjectID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	names := make(map[string]string, len(grants))
	for module, bits := range grants {
		names[module] = permission.Name(bits)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subject_id": res.SubjectID,
		"grants":     names,
	})
}

func (s *server) handleListArticles(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	out := make([]article, 0, len(s.articles))
	for _, a := range s.articles {
		out = append(out, a)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleCreateArticle(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())

	var body struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Title == "" {
		writeBadRequest(w, "title is required")
		return
	}

	s.mu.Lock()
	s.nextID++
	a := article{ID: s.nextID, OwnerID: res.SubjectID, Title: body.Title, CreatedAt: time.Now().UTC()}
	s.articles[a.ID] = a
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, a)
}

// handleDeleteArticle lets owners delete their own articles; anyone else needs Full
// Access on the module.
func (s *server) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid article id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "article not found"})
		return
	}
	if !res.OwnsOrFull(a.OwnerID) {
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":   bitguard.CodeInsufficientPermission,
			"message": "only the owner or a Full Access holder may delete this article",
		})
		return
	}
	delete(s.articles, id)
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
