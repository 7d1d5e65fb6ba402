// Package devserver is an in-memory stand-in for the DevDocs backend. It
// serves the same HTTP surface with naive keyword search instead of vector
// similarity, for local development and end-to-end tests.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colthorp/devdocs-cli-go/internal/api"
	"github.com/colthorp/devdocs-cli-go/internal/core"
	"github.com/colthorp/devdocs-cli-go/internal/validate"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Server serves the DevDocs API from a Store.
type Server struct {
	store  *Store
	logger zerolog.Logger
	token  string
	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithToken protects the bookmark and profile routes with a bearer token.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithStore serves an existing store.
func WithStore(st *Store) Option {
	return func(s *Server) { s.store = st }
}

// New creates a server with an empty store unless WithStore is given.
func New(opts ...Option) *Server {
	s := &Server{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = NewStore()
	}
	s.router = s.routes()
	return s
}

// Store returns the backing store.
func (s *Server) Store() *Store { return s.store }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(withRequestID, s.accessLog, s.recoverer)

	r.Get("/", handleRoot)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handleHealth)

		r.Get("/solutions", s.handleListSolutions)
		r.Post("/solutions", s.handleCreateSolution)
		r.Get("/solutions/{id}", s.handleGetSolution)
		r.Put("/solutions/{id}", s.handleUpdateSolution)
		r.Delete("/solutions/{id}", s.handleDeleteSolution)

		r.Post("/search", s.handleSearch)
		r.Get("/search/suggestions", s.handleSuggestions)

		r.Get("/dashboard/stats", s.handleStats)
		r.Get("/dashboard/recent", s.handleRecent)
		r.Get("/dashboard/popular-tags", s.handlePopularTags)

		r.Get("/auth/status", s.handleAuthStatus)
		r.Get("/auth/users/{id}", s.handlePublicProfile)

		r.Group(func(r chi.Router) {
			r.Use(s.bearerAuth)
			r.Post("/bookmarks/toggle/{id}", s.handleToggleBookmark)
			r.Get("/bookmarks", s.handleBookmarks)
			r.Get("/bookmarks/check/{id}", s.handleCheckBookmark)
			r.Delete("/bookmarks/{id}", s.handleDeleteBookmark)
			r.Get("/auth/me", s.handleProfile)
			r.Put("/auth/me", s.handleUpdateProfile)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("dev server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type errorResponse struct {
	Error      string           `json:"error"`
	Message    string           `json:"message"`
	StatusCode int              `json:"status_code"`
	Path       string           `json:"path"`
	RequestID  string           `json:"request_id,omitempty"`
	Details    []api.FieldError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, errType, msg string, details []api.FieldError) {
	writeJSON(w, status, errorResponse{
		Error:      errType,
		Message:    msg,
		StatusCode: status,
		Path:       r.URL.Path,
		RequestID:  requestIDFrom(r.Context()),
		Details:    details,
	})
}

func writeValidation(w http.ResponseWriter, r *http.Request, details ...api.FieldError) {
	writeError(w, r, http.StatusUnprocessableEntity, "ValidationError", "Invalid request data", details)
}

func writeNotFound(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusNotFound, "HTTPError", err.Error(), nil)
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeValidation(w, r, api.FieldError{Field: "body", Message: "JSON decode error", Code: "json_invalid"})
		return false
	}
	return true
}

// pathID parses the {id} parameter as a UUID.
func pathID(w http.ResponseWriter, r *http.Request, field string) (string, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeValidation(w, r, api.FieldError{Field: field, Message: "Input should be a valid UUID", Code: "uuid_parsing"})
		return "", false
	}
	return id.String(), true
}

// intParam reads an optional bounded integer query parameter.
func intParam(r *http.Request, name string, def, lo, hi int) (int, *api.FieldError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &api.FieldError{Field: name, Message: "Input should be a valid integer", Code: "int_parsing"}
	}
	if n < lo {
		return 0, &api.FieldError{Field: name, Message: fmt.Sprintf("Input should be greater than or equal to %d", lo), Code: "greater_than_equal"}
	}
	if hi > 0 && n > hi {
		return 0, &api.FieldError{Field: name, Message: fmt.Sprintf("Input should be less than or equal to %d", hi), Code: "less_than_equal"}
	}
	return n, nil
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "online",
		"message": "DevDocs API is running",
		"version": core.Version,
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "memory"})
}

func (s *Server) handleListSolutions(w http.ResponseWriter, r *http.Request) {
	page, ferr := intParam(r, "page", 1, 1, 0)
	if ferr != nil {
		writeValidation(w, r, *ferr)
		return
	}
	pageSize, ferr := intParam(r, "page_size", core.DefaultPageSize, 1, core.MaxPageSize)
	if ferr != nil {
		writeValidation(w, r, *ferr)
		return
	}
	q := r.URL.Query()
	f := filter{
		language:        validate.NormalizeLanguage(q.Get("language")),
		tag:             strings.ToLower(strings.TrimSpace(q.Get("tag"))),
		includeArchived: q.Get("include_archived") == "true",
	}

	items, total := s.store.List(f, page, pageSize)
	totalPages := 1
	if total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	writeJSON(w, http.StatusOK, api.SolutionList{
		Solutions:  items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

func (s *Server) handleCreateSolution(w http.ResponseWriter, r *http.Request) {
	var in api.SolutionInput
	if !decodeBody(w, r, &in) {
		return
	}
	if errs := validate.Solution(&in); errs != nil {
		writeValidation(w, r, errs.FieldErrors()...)
		return
	}
	writeJSON(w, http.StatusCreated, s.store.Create(in))
}

func (s *Server) handleGetSolution(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "solution_id")
	if !ok {
		return
	}
	sol, err := s.store.Get(id)
	if err != nil {
		writeNotFound(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sol)
}

func (s *Server) handleUpdateSolution(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "solution_id")
	if !ok {
		return
	}
	var patch api.SolutionPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if errs := validate.Patch(&patch); errs != nil {
		writeValidation(w, r, errs.FieldErrors()...)
		return
	}
	sol, err := s.store.Update(id, patch)
	if err != nil {
		writeNotFound(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sol)
}

func (s *Server) handleDeleteSolution(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "solution_id")
	if !ok {
		return
	}
	permanent := r.URL.Query().Get("permanent") == "true"
	if err := s.store.Delete(id, permanent); err != nil {
		writeNotFound(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query         *string  `json:"query"`
		Limit         *int     `json:"limit"`
		MinSimilarity *float64 `json:"min_similarity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Query == nil {
		writeValidation(w, r, api.FieldError{Field: "query", Message: "Field required", Code: "missing"})
		return
	}
	limit := core.DefaultSearchLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	minSim := core.DefaultMinSimilarity
	if req.MinSimilarity != nil {
		minSim = *req.MinSimilarity
	}

	start := time.Now()
	results := s.store.Search(*req.Query, limit, minSim)
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	writeJSON(w, http.StatusOK, api.SearchResponse{
		Query:        *req.Query,
		Results:      results,
		TotalResults: len(results),
		SearchTimeMS: elapsed,
	})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if len([]rune(query)) < core.MinSuggestionLength {
		writeValidation(w, r, api.FieldError{
			Field:   "query",
			Message: fmt.Sprintf("String should have at least %d characters", core.MinSuggestionLength),
			Code:    "string_too_short",
		})
		return
	}
	limit, ferr := intParam(r, "limit", 5, 1, 10)
	if ferr != nil {
		writeValidation(w, r, *ferr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": s.store.Suggestions(query, limit)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Stats())
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit, ferr := intParam(r, "limit", 10, 1, 0)
	if ferr != nil {
		writeValidation(w, r, *ferr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recent_solutions": s.store.Recent(limit)})
}

func (s *Server) handlePopularTags(w http.ResponseWriter, r *http.Request) {
	limit, ferr := intParam(r, "limit", core.DefaultTagsLimit, 1, 0)
	if ferr != nil {
		writeValidation(w, r, *ferr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"popular_tags": s.store.PopularTags(limit)})
}

func (s *Server) handleToggleBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "solution_id")
	if !ok {
		return
	}
	on, err := s.store.ToggleBookmark(id)
	if err != nil {
		writeNotFound(w, r, err)
		return
	}
	msg := "Bookmark removed"
	if on {
		msg = "Bookmark added"
	}
	writeJSON(w, http.StatusOK, api.BookmarkToggle{Bookmarked: on, Message: msg})
}

func (s *Server) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Bookmarks())
}

func (s *Server) handleCheckBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "solution_id")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"bookmarked": s.store.IsBookmarked(id)})
}

func (s *Server) handleDeleteBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "solution_id")
	if !ok {
		return
	}
	if err := s.store.DeleteBookmark(id); err != nil {
		writeNotFound(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.MessageResponse{Message: "Bookmark deleted successfully"})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.AuthStatus{
		Enabled:      s.token != "",
		SupabaseURL:  "Not configured",
		JWTSecretSet: s.token != "",
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Profile())
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch api.ProfilePatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if errs := validate.Profile(&patch); errs != nil {
		writeValidation(w, r, errs.FieldErrors()...)
		return
	}
	writeJSON(w, http.StatusOK, s.store.UpdateProfile(patch))
}

func (s *Server) handlePublicProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user_id")
	if !ok {
		return
	}
	prof, err := s.store.PublicProfile(id)
	if err != nil {
		writeNotFound(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prof)
}
