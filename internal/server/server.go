package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"nestkeep/internal/config"
	"nestkeep/internal/docstore"
	"nestkeep/internal/handler"
	"nestkeep/internal/invite"
	"nestkeep/internal/middleware"
	"nestkeep/internal/session"
	"nestkeep/internal/store"
	ws "nestkeep/internal/websocket"
)

type Server struct {
	db              *sql.DB
	hub             *ws.Hub
	sessionH        *handler.SessionHandler
	eventH          *handler.EventHandler
	inviteH         *handler.InviteHandler
	sessionSvc      *session.Service
	rateLimiter     *middleware.RateLimiter
	acceptRateLimit int
	logger          *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	docs := docstore.NewSQLite(db)
	sessions := store.NewSessionStore(docs)
	invites := store.NewInviteStore(docs)
	sitters := store.NewSitterStore(docs)
	sitterSessions := store.NewSitterSessionStore(docs)

	sessionSvc := session.NewService(sessions, sitterSessions, hub, logger.With("component", "session"))
	inviteSvc := invite.NewService(docs, sessions, invites, sitters, sitterSessions, hub, logger.With("component", "invite"))
	inviteSvc.SetInviteTTL(cfg.InviteTTL)

	return &Server{
		db:              db,
		hub:             hub,
		sessionH:        handler.NewSessionHandler(sessionSvc, inviteSvc, logger.With("component", "session_handler")),
		eventH:          handler.NewEventHandler(sessionSvc, logger.With("component", "event_handler")),
		inviteH:         handler.NewInviteHandler(inviteSvc, sessionSvc, logger.With("component", "invite_handler")),
		sessionSvc:      sessionSvc,
		rateLimiter:     middleware.NewRateLimiter(),
		acceptRateLimit: cfg.AcceptRateLimit,
		logger:          logger,
	}
}

// SessionService exposes the session service for background tasks.
func (s *Server) SessionService() *session.Service {
	return s.sessionSvc
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no identity required)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Identity-required routes
	apiMux := http.NewServeMux()
	s.registerRoutes(apiMux)
	outerMux.Handle("/", middleware.RequireIdentity(apiMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// rateLimitedHandler throttles per client IP. Applied to the code endpoints
// so a 6-digit space cannot be enumerated.
func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, s.acceptRateLimit, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Session routes (owner)
	mux.HandleFunc("POST /api/sessions", s.sessionH.Create)
	mux.HandleFunc("GET /api/sessions", s.sessionH.List)
	mux.HandleFunc("GET /api/sessions/buckets", s.sessionH.Buckets)
	mux.HandleFunc("POST /api/sessions/refresh", s.sessionH.Refresh)
	mux.HandleFunc("POST /api/sessions/sweep", s.sessionH.Sweep)
	mux.HandleFunc("GET /api/sessions/{id}", s.sessionH.Get)
	mux.HandleFunc("PUT /api/sessions/{id}", s.sessionH.Update)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.sessionH.Delete)
	mux.HandleFunc("POST /api/sessions/{id}/status", s.sessionH.UpdateStatus)
	mux.HandleFunc("POST /api/sessions/{id}/complete", s.sessionH.Complete)
	mux.HandleFunc("POST /api/sessions/{id}/archive", s.sessionH.Archive)

	// Session event routes
	mux.HandleFunc("POST /api/sessions/{id}/events", s.eventH.Create)
	mux.HandleFunc("GET /api/sessions/{id}/events", s.eventH.List)
	mux.HandleFunc("PUT /api/sessions/{id}/events/batch", s.eventH.Replace)
	mux.HandleFunc("PUT /api/sessions/{id}/events/{event_id}", s.eventH.Update)
	mux.HandleFunc("DELETE /api/sessions/{id}/events/{event_id}", s.eventH.Delete)

	// Invite routes (owner); a session holds at most one invite at a time
	mux.HandleFunc("POST /api/sessions/{id}/invite", s.inviteH.Create)
	mux.HandleFunc("GET /api/sessions/{id}/invites", s.inviteH.ListActive)
	mux.HandleFunc("DELETE /api/sessions/{id}/invite", s.inviteH.Revoke)

	// Invite routes (sitter)
	mux.HandleFunc("GET /api/invites/{code}", s.rateLimitedHandler(s.inviteH.Validate))
	mux.HandleFunc("POST /api/invites/{code}/accept", s.rateLimitedHandler(s.inviteH.Accept))
	mux.HandleFunc("GET /api/sitter/sessions", s.inviteH.SitterSessions)
	mux.HandleFunc("DELETE /api/sitter/sessions/{id}", s.inviteH.LeaveSession)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))
}
