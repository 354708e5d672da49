package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/stroombox/reddit-bot-project/internal/logger"
	"github.com/stroombox/reddit-bot-project/internal/store"
)

// Server exposes the review surface over HTTP for the dashboard.
type Server struct {
	svc *Service
}

// NewServer returns a Server wrapping the given service.
func NewServer(svc *Service) *Server {
	return &Server{svc: svc}
}

// Register attaches the review routes to the router.
func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/suggestions", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/suggestions", s.handleAdd).Methods(http.MethodPost)
	r.HandleFunc("/suggestions/purge-expired", s.handlePurge).Methods(http.MethodPost)
	r.HandleFunc("/suggestions/{id}/generate", s.handleGenerate).Methods(http.MethodPost)
	r.HandleFunc("/suggestions/{id}/approve-and-post", s.handleApprove).Methods(http.MethodPost)
	r.HandleFunc("/suggestions/{id}/post-direct", s.handlePostDirect).Methods(http.MethodPost)
	r.HandleFunc("/suggestions/{id}/reject", s.handleReject).Methods(http.MethodPost)
}

// CORS allows the dashboard (served from another origin) to call the API.
// Must wrap the router itself, not run as mux middleware: mux only invokes
// middleware on matched routes, so a preflight OPTIONS to a POST-only route
// would otherwise come back 405 without the headers.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestID tags each request context with an id for log correlation.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithRequestID(r.Context(), fmt.Sprintf("req-%d", time.Now().UnixNano()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	suggestions, err := s.svc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if suggestions == nil {
		suggestions = []store.Suggestion{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}

type addRequest struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Subreddit string   `json:"subreddit"`
	Author    string   `json:"author"`
	Selftext  string   `json:"selftext"`
	PostURL   string   `json:"postUrl"`
	ImageURLs []string `json:"imageUrls"`
	CreatedAt string   `json:"createdAt"`
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if req.ID == "" || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id and title are required"})
		return
	}

	createdAt := time.Now()
	if req.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339, req.CreatedAt)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "createdAt must be RFC3339"})
			return
		}
		createdAt = t
	}

	inserted, err := s.svc.Add(r.Context(), store.Suggestion{
		SubmissionID:  req.ID,
		Title:         req.Title,
		Subreddit:     req.Subreddit,
		Author:        req.Author,
		Selftext:      req.Selftext,
		PostURL:       req.PostURL,
		ImageURLs:     req.ImageURLs,
		PostCreatedAt: createdAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if !inserted {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{"id": req.ID, "inserted": inserted})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		UserThought string `json:"user_thought"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // body is optional
	}

	comment, err := s.svc.Generate(r.Context(), id, req.UserThought)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "suggestedComment": comment})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		ApprovedComment string `json:"approved_comment"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := s.svc.ApproveAndPost(r.Context(), id, req.ApprovedComment); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "posted"})
}

func (s *Server) handlePostDirect(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		CommentText string `json:"comment_text"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := s.svc.PostDirect(r.Context(), id, req.CommentText); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "posted"})
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.svc.Reject(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "rejected"})
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	purged, err := s.svc.PurgeExpired(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"purged": purged})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps lifecycle errors onto HTTP statuses: missing suggestion →
// 404, empty comment → 400, failed external call → 502, anything else
// (storage included) → 500. The message always reaches the dashboard so a
// human can decide whether to retry.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var extErr *ExternalServiceError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrEmptyComment):
		status = http.StatusBadRequest
	case errors.As(err, &extErr):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		logger.Error(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
