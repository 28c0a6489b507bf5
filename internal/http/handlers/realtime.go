package handlers

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gestorbiz/gestor-backend/internal/http/response"
	"github.com/gestorbiz/gestor-backend/internal/pkg/ctxutil"
	"github.com/gestorbiz/gestor-backend/internal/platform/logger"
	"github.com/gestorbiz/gestor-backend/internal/realtime"
	"github.com/gestorbiz/gestor-backend/internal/services"
)

type RealtimeHandler struct {
	log         *logger.Logger
	hub         *realtime.Hub
	teamService services.TeamService

	mu      sync.RWMutex
	clients map[uuid.UUID]*realtime.Client // keyed by session id
}

func NewRealtimeHandler(baseLog *logger.Logger, hub *realtime.Hub, teamService services.TeamService) *RealtimeHandler {
	return &RealtimeHandler{
		log:         baseLog.With("handler", "RealtimeHandler"),
		hub:         hub,
		teamService: teamService,
		clients:     make(map[uuid.UUID]*realtime.Client),
	}
}

// GET /sse/stream
func (rh *RealtimeHandler) Stream(c *gin.Context) {
	rd, ok := currentUser(c)
	if !ok {
		return
	}
	if rd.SessionID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing session id"))
		return
	}
	rh.log.Info("realtime stream open", "user_id", rd.UserID.String(), "session_id", rd.SessionID.String())

	rh.mu.Lock()
	// A reconnect for the same session replaces the old client.
	if existing, exists := rh.clients[rd.SessionID]; exists {
		rh.hub.CloseClient(existing)
		delete(rh.clients, rd.SessionID)
	}
	client := rh.hub.NewClient(rd.UserID)
	rh.clients[rd.SessionID] = client
	rh.mu.Unlock()

	// Every session listens on the user channel; team channels are opt-in.
	rh.hub.AddChannel(client, realtime.UserChannel(rd.UserID))

	rh.hub.ServeHTTP(c.Writer, c.Request, client)

	// A reconnect may have replaced this session's registry entry already;
	// only remove the entry if it still points at this client.
	rh.mu.Lock()
	if rh.clients[rd.SessionID] == client {
		delete(rh.clients, rd.SessionID)
	}
	rh.mu.Unlock()
	rh.hub.CloseClient(client)
}

// POST /sse/subscribe
// body: { "channel": "team:<uuid>" }
func (rh *RealtimeHandler) Subscribe(c *gin.Context) {
	rd, client, channel, ok := rh.bindChannelRequest(c)
	if !ok {
		return
	}
	if err := rh.authorizeChannel(c, rd.UserID, channel); err != nil {
		response.RespondFromError(c, err)
		return
	}
	rh.hub.AddChannel(client, channel)
	response.RespondOK(c, gin.H{"subscribed": channel})
}

// POST /sse/unsubscribe
func (rh *RealtimeHandler) Unsubscribe(c *gin.Context) {
	_, client, channel, ok := rh.bindChannelRequest(c)
	if !ok {
		return
	}
	rh.hub.RemoveChannel(client, channel)
	response.RespondOK(c, gin.H{"unsubscribed": channel})
}

func (rh *RealtimeHandler) bindChannelRequest(c *gin.Context) (rd *ctxutil.RequestData, client *realtime.Client, channel string, ok bool) {
	data, authed := currentUser(c)
	if !authed {
		return nil, nil, "", false
	}
	if data.SessionID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing session id"))
		return nil, nil, "", false
	}
	var req struct {
		Channel string `json:"channel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Channel) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_channel", errors.New("channel required"))
		return nil, nil, "", false
	}

	rh.mu.RLock()
	client, exists := rh.clients[data.SessionID]
	rh.mu.RUnlock()
	if !exists {
		response.RespondError(c, http.StatusConflict, "no_stream", errors.New("no active stream for this session"))
		return nil, nil, "", false
	}
	return data, client, strings.TrimSpace(req.Channel), true
}

// authorizeChannel restricts subscriptions to the caller's own user channel
// and to channels of teams the caller belongs to.
func (rh *RealtimeHandler) authorizeChannel(c *gin.Context, userID uuid.UUID, channel string) error {
	if suffix, found := strings.CutPrefix(channel, "team:"); found {
		teamID, err := uuid.Parse(suffix)
		if err != nil {
			return errors.New("invalid team channel")
		}
		return rh.teamService.RequireMember(c.Request.Context(), teamID, userID)
	}
	if channel == realtime.UserChannel(userID) {
		return nil
	}
	return errors.New("unknown channel")
}
