package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Messages
	mux.HandleFunc("/api/messages", s.handleMessagesRoute) // GET (list), POST (enqueue)

	// API routes - Queue lifecycle
	mux.HandleFunc("/api/queue/status", s.app.QueueHandler.HandleStatus)
	mux.HandleFunc("/api/queue/start", s.app.QueueHandler.HandleStart)
	mux.HandleFunc("/api/queue/stop", s.app.QueueHandler.HandleStop)
	mux.HandleFunc("/api/queue/clear", s.app.QueueHandler.HandleClear)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// Catch-all for unknown API paths
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleMessagesRoute routes /api/messages by method
func (s *Server) handleMessagesRoute(w http.ResponseWriter, r *http.Request) {
	RouteResourceCollection(w, r,
		s.app.MessageHandler.HandleListMessages,
		s.app.MessageHandler.HandleAddMessage,
	)
}
