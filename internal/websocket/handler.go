package websocket

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/barterly/barter-api/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Token auth makes the connection user-bound; origin is not the gate.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades authenticated HTTP requests to WebSocket connections.
// The upgrade requires the raw HTTP connection, so it runs on its own
// net/http listener next to the fiber app.
type Handler struct {
	manager    *Manager
	jwtService *utils.JWTService
}

// NewHandler creates a new Handler
func NewHandler(manager *Manager, jwtService *utils.JWTService) *Handler {
	return &Handler{manager: manager, jwtService: jwtService}
}

// ServeHTTP authenticates via the token query parameter and starts a client
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	userID, err := h.jwtService.ExtractUserID(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if _, err := uuid.Parse(userID); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrading connection: %v", err)
		return
	}

	NewClient(userID, conn, h.manager).Start()
}

// ListenAndServe runs the WebSocket endpoint on its own port
func (h *Handler) ListenAndServe(port string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	log.Printf("WebSocket server listening on :%s", port)
	return http.ListenAndServe(":"+port, mux)
}
