package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	gorillaws "github.com/gorilla/websocket"

	ws "github.com/ticketroute/helpdesk-backend/internal/adapters/primary/websocket"
	"github.com/ticketroute/helpdesk-backend/internal/auth"
	"github.com/ticketroute/helpdesk-backend/internal/config"
)

// WebSocketHandler upgrades connections for the realtime event stream.
// Browsers cannot set an Authorization header on websocket upgrades, so
// the token is passed as a query parameter instead.
type WebSocketHandler struct {
	hub          *ws.Hub
	tokenManager *auth.TokenManager
	cfg          config.WebSocketConfig
	upgrader     gorillaws.Upgrader
	logger       *slog.Logger
}

func NewWebSocketHandler(hub *ws.Hub, tokenManager *auth.TokenManager, cfg config.WebSocketConfig, logger *slog.Logger) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:          hub,
		tokenManager: tokenManager,
		cfg:          cfg,
		logger:       logger,
	}
	h.upgrader = gorillaws.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Connect)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	// An empty allowlist only passes config validation outside
	// production.
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (h *WebSocketHandler) Connect(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token query parameter is required", http.StatusUnauthorized)
		return
	}
	claims, err := h.tokenManager.ValidateToken(token)
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UserID, h.cfg.PingInterval, h.cfg.PongWait)
	client.Start()
}
