package handlers

import (
	"encoding/json"
	"fritter/internal/engine"
	"fritter/internal/middleware"
	"fritter/internal/utils"
	"fritter/internal/websocket"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Server holds all server dependencies
type Server struct {
	Engine         *engine.Engine
	Metrics        *utils.MetricsCollector
	Hub            *websocket.Hub
	Auth           *middleware.Authenticator
	RateLimiter    *middleware.UserRateLimiter
	CORS           *middleware.CORSConfig
	MetricsEnabled bool
	RequestTimeout time.Duration
}

// NewServer creates a new Server instance with the given components
func NewServer(
	eng *engine.Engine,
	metrics *utils.MetricsCollector,
	hub *websocket.Hub,
	auth *middleware.Authenticator,
	limiter *middleware.UserRateLimiter,
	cors *middleware.CORSConfig,
) *Server {
	return &Server{
		Engine:         eng,
		Metrics:        metrics,
		Hub:            hub,
		Auth:           auth,
		RateLimiter:    limiter,
		CORS:           cors,
		MetricsEnabled: true,
		RequestTimeout: 5 * time.Second, // Default timeout for actor requests
	}
}

// Routes builds the complete HTTP handler. The websocket endpoint sits
// outside the counting and rate limiting chain because it hijacks the
// connection.
func (s *Server) Routes() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /health", s.HandleHealth())
	if s.MetricsEnabled {
		api.Handle("GET /metrics", s.Metrics.Handler())
	}

	api.HandleFunc("POST /freets", s.HandleCreateFreet())
	api.HandleFunc("GET /freets", s.HandleListFreets())
	api.HandleFunc("GET /freets/{id}", s.HandleGetFreet())
	api.HandleFunc("PUT /freets/{id}", s.HandleUpdateFreet())
	api.HandleFunc("DELETE /freets/{id}", s.HandleDeleteFreet())

	api.HandleFunc("POST /freets/{id}/like", s.HandleLike())
	api.HandleFunc("DELETE /freets/{id}/like", s.HandleUnlike())

	api.HandleFunc("POST /freets/{id}/approve", s.HandleApprove())
	api.HandleFunc("POST /freets/{id}/disapprove", s.HandleDisapprove())
	api.HandleFunc("DELETE /freets/{id}/reactions/{polarity}", s.HandleRetract())
	api.HandleFunc("GET /freets/{id}/reactions/me", s.HandleReactionState())

	api.HandleFunc("POST /freets/{id}/links/{polarity}", s.HandleAttachLink())
	api.HandleFunc("DELETE /freets/{id}/links/{polarity}", s.HandleDetachLink())
	api.HandleFunc("GET /freets/{id}/links/{polarity}", s.HandleMostPopularLinks())

	api.HandleFunc("POST /freets/{id}/reconcile", s.HandleReconcile())
	api.HandleFunc("GET /users/me/likes", s.HandleLikedFreets())

	var chain http.Handler = api
	chain = s.countRequests(chain)
	if s.RateLimiter != nil {
		chain = s.RateLimiter.Middleware(chain)
	}
	chain = s.Auth.Middleware(chain)

	root := http.NewServeMux()
	root.HandleFunc("GET /ws", s.HandleWebSocket())
	root.Handle("/", chain)
	return middleware.CORSMiddleware(s.CORS)(root)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.IncrementRequests()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status >= http.StatusBadRequest {
			s.Metrics.IncrementErrors()
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// writeError maps any error onto its AppError status and JSON body.
func writeError(w http.ResponseWriter, err error) {
	appErr := utils.AsAppError(err)
	status := utils.AppErrorToHTTPStatus(appErr.Code)
	if status >= http.StatusInternalServerError {
		log.Printf("Request failed: %v", err)
	}
	writeJSON(w, status, appErr)
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, utils.NewAppError(utils.ErrInvalidInput, message, nil))
}

func freetIDFromPath(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, utils.NewAppError(utils.ErrInvalidInput, "Invalid freet ID format", nil)
	}
	return id, nil
}

// currentUser returns the authenticated caller set by the JWT middleware.
func currentUser(r *http.Request) (uuid.UUID, error) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok || userID == uuid.Nil {
		return uuid.Nil, utils.NewUnauthorizedError("no authenticated user")
	}
	return userID, nil
}

func listLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, utils.NewAppError(utils.ErrInvalidInput, "limit must be a positive integer", nil)
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}
