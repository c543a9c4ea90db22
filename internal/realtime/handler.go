package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/birlikkoshan/tasksync/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler upgrades authenticated requests to websocket connections.
type Handler struct {
	hub      *Hub
	authn    auth.Authenticator
	lists    ListOwnership
	cfg      ClientConfig
	upgrader websocket.Upgrader
	// base outlives any single request; cancelled on shutdown.
	base context.Context
}

// NewHandler returns a Handler. An empty origins list accepts any origin.
func NewHandler(base context.Context, hub *Hub, authn auth.Authenticator, lists ListOwnership, cfg ClientConfig, origins []string) *Handler {
	h := &Handler{hub: hub, authn: authn, lists: lists, cfg: cfg, base: base}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(origins),
	}
	return h
}

func originChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, allowed := range origins {
			if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
				return true
			}
		}
		return false
	}
}

// Serve godoc
// @Summary      Open the live update channel
// @Tags         realtime
// @Security     TokenAuth
// @Param        token  query  string  false  "Token when the header cannot be set"
// @Success      101
// @Failure      401  {object}  map[string]string
// @Router       /ws [get]
func (h *Handler) Serve(c *gin.Context) {
	raw := auth.TokenFromRequest(c.Request)
	if raw == "" {
		raw = c.Query("token")
	}
	id, err := h.authn.Authenticate(c.Request.Context(), raw)
	if err != nil {
		status, msg := auth.AuthErrorResponse(err)
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		slog.Debug("websocket upgrade", "err", err)
		return
	}

	client := newClient(conn, id.UserID, h.hub, h.lists, h.cfg)
	if !h.hub.Join(client, UserTopic(id.UserID)) {
		_ = conn.Close()
		return
	}
	slog.Debug("websocket connected", "client", client.ID(), "user_id", id.UserID)

	go client.writePump()
	go client.readPump(h.base)
}
