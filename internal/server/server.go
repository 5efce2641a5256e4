package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tabortao/HomeRecord/internal/handler"
	"github.com/tabortao/HomeRecord/internal/honor"
	"github.com/tabortao/HomeRecord/internal/middleware"
	"github.com/tabortao/HomeRecord/internal/store"
	ws "github.com/tabortao/HomeRecord/internal/websocket"
)

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	userStore    *store.UserStore
	honorH       *handler.HonorHandler
	userH        *handler.UserHandler
	taskH        *handler.TaskHandler
	wishH        *handler.WishHandler
	checkLimiter *middleware.RateLimiter
	logger       *slog.Logger
}

// New wires the HTTP surface. checksPerMinute bounds POST /api/honors/check
// per client IP.
func New(db *sql.DB, engine *honor.Engine, checksPerMinute int, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	taskStore := store.NewTaskStore(db)
	logStore := store.NewOperationLogStore(db)
	honorStore := store.NewHonorStore(db)

	honorH := handler.NewHonorHandler(engine, userStore, honorStore, hub, logger.With("component", "honor_handler"))

	return &Server{
		db:           db,
		hub:          hub,
		userStore:    userStore,
		honorH:       honorH,
		userH:        handler.NewUserHandler(userStore, logStore, honorH, logger.With("component", "user_handler")),
		taskH:        handler.NewTaskHandler(taskStore, userStore, logStore, honorH, logger.With("component", "task_handler")),
		wishH:        handler.NewWishHandler(userStore, logStore, honorH, logger.With("component", "wish_handler")),
		checkLimiter: middleware.NewRateLimiter(checksPerMinute, time.Minute),
		logger:       logger,
	}
}

// RateLimiter returns the check limiter for periodic cleanup.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.checkLimiter
}

// Hub returns the websocket hub so background jobs can announce grants.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.userStore))

	// Honor API routes
	mux.HandleFunc("GET /api/honors/all", s.honorH.ListCatalog)
	mux.HandleFunc("GET /api/honors/user/{id}", s.honorH.ListUserHonors)
	mux.Handle("POST /api/honors/check", middleware.RateLimit(s.checkLimiter)(http.HandlerFunc(s.honorH.Check)))

	// Events that can change honor eligibility
	mux.HandleFunc("POST /api/users", s.userH.Create)
	mux.HandleFunc("GET /api/users/{id}", s.userH.Get)
	mux.HandleFunc("DELETE /api/users/{id}", s.userH.Delete)
	mux.HandleFunc("POST /api/gold/update", s.userH.UpdateGold)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("PATCH /api/tasks/{id}/status", s.taskH.UpdateStatus)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)
	mux.HandleFunc("POST /api/wishes/exchange", s.wishH.Exchange)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"status": status, "clients": s.hub.ClientCount()})
}
