package http

import (
	"net/http"

	"vidmill/internal/service"
)

type Server struct {
	mux        *http.ServeMux
	handlers   *Handlers
	sseHandler *SSEHandler
	authSvc    AuthService
}

func NewServer(authSvc AuthService, lifecycle Lifecycle, eventBus *service.EventBus) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		handlers:   NewHandlers(lifecycle),
		sseHandler: NewSSEHandler(eventBus, lifecycle),
		authSvc:    authSvc,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/login", LoginHandler(s.authSvc))
	s.mux.HandleFunc("POST /api/logout", AuthMiddleware(s.authSvc, LogoutHandler()))

	s.mux.HandleFunc("GET /api/jobs", AuthMiddleware(s.authSvc, s.handlers.ListJobs()))
	s.mux.HandleFunc("POST /api/jobs", AuthMiddleware(s.authSvc, s.handlers.SubmitJob()))
	s.mux.HandleFunc("GET /api/jobs/{id}", AuthMiddleware(s.authSvc, s.handlers.GetJob()))
	s.mux.HandleFunc("POST /api/jobs/{id}/reprocess", AuthMiddleware(s.authSvc, s.handlers.ReprocessJob()))
	s.mux.HandleFunc("DELETE /api/jobs/{id}", AuthMiddleware(s.authSvc, s.handlers.DeleteJob()))

	s.mux.HandleFunc("GET /api/jobs/{id}/events", AuthMiddleware(s.authSvc, s.sseHandler.JobEvents()))
	s.mux.HandleFunc("GET /api/events", AuthMiddleware(s.authSvc, s.sseHandler.AllEvents()))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
