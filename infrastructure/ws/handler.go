package ws

import (
	"fmt"
	"log/slog"
	"net/http"

	"chat-hub/auth"
	"chat-hub/contract"
	"chat-hub/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handler upgrades authenticated HTTP requests to websocket channels and
// plugs them into the router. Authentication happened at login; here we only
// validate the token the login service issued.
type Handler struct {
	log            *slog.Logger
	router         contract.IRouter
	tokens         auth.TokenValidator
	bufferSize     int
	maxMessageSize int64
	upgrader       websocket.Upgrader
}

func NewHandler(log *slog.Logger, router contract.IRouter, tokens auth.TokenValidator,
	bufferSize int, maxMessageSize int64, allowedOrigins []string) *Handler {
	return &Handler{
		log:            log,
		router:         router,
		tokens:         tokens,
		bufferSize:     bufferSize,
		maxMessageSize: maxMessageSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.Validate(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn(fmt.Sprintf("Websocket upgrade failed: %v", err))
		return
	}
	conn.SetReadLimit(h.maxMessageSize)

	handle := domain.HandleID(uuid.NewString())
	sink := NewSink(h.log, h.bufferSize)
	h.router.Connect(handle, sink)

	c := newClient(h.log, conn, h.router, sink, handle, claims.Identity)
	go c.writePump()
	go c.readPump()

	h.log.Info(fmt.Sprintf("Channel %s opened for %s", handle, claims.Identity))
}

// originChecker allows any origin when the list is empty (local development),
// otherwise requires an exact match.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, a := range allowed {
			if origin == a {
				return true
			}
		}
		return false
	}
}
