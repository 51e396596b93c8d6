package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/taskhive/taskhive/internal/config"
	"github.com/taskhive/taskhive/internal/domain/message"
	"github.com/taskhive/taskhive/internal/http/middlewares"
	"github.com/taskhive/taskhive/internal/hub"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

type WSHandler struct {
	hub      *hub.Hub
	messages MessagesRepository
	jwt      middlewares.TokenVerifier
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(h *hub.Hub, messages MessagesRepository, jwt middlewares.TokenVerifier, log *slog.Logger, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))

	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return &WSHandler{
		hub:      h,
		messages: messages,
		jwt:      jwt,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					// non-browser clients
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

// inboundEvent defers payload decoding until the event type is known.
type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Serve authenticates the handshake, upgrades it and joins the caller to
// its own notification room. Browsers cannot set an Authorization header on
// a websocket handshake, so the token also rides a query param.
func (h *WSHandler) Serve(ctx *gin.Context) {
	token := ctx.Query("token")

	if token == "" {
		token = ctx.GetHeader("Authorization")
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}
	}

	claims, err := h.jwt.VerifyAccessToken(token)

	if err != nil {
		RespondUnAuthorized(ctx, "unauthorized", "Invalid or expired access token")
		return
	}

	ws, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)

	if err != nil {
		// Upgrade already wrote the handshake error
		h.log.Warn("ws upgrade failed", "err", err)
		return
	}

	conn := h.hub.Register()
	h.hub.Join(conn, claims.UserID)

	h.log.Debug("ws connected", "user", claims.UserID)

	go h.writePump(ws, conn)
	h.readPump(ws, conn, claims.UserID)
}

func (h *WSHandler) readPump(ws *websocket.Conn, conn *hub.Conn, userID string) {
	defer func() {
		h.hub.Disconnect(conn)
		ws.Close()
		h.log.Debug("ws disconnected", "user", userID)
	}()

	ws.SetReadLimit(64 << 10)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var ev inboundEvent

		if err := ws.ReadJSON(&ev); err != nil {
			return
		}

		switch ev.Event {
		case "join":
			var recipientID string
			if err := json.Unmarshal(ev.Data, &recipientID); err != nil {
				continue
			}
			// a connection only ever joins its own room
			if recipientID == userID {
				h.hub.Join(conn, recipientID)
			}

		case hub.EventChatMessage:
			h.handleChatMessage(ev.Data, userID)
		}
	}
}

// handleChatMessage persists the message before re-broadcasting so a
// receiver that is offline still finds it in the store later.
func (h *WSHandler) handleChatMessage(data json.RawMessage, senderID string) {
	var req message.CreateMessageRequest

	if err := json.Unmarshal(data, &req); err != nil {
		h.log.Warn("ws chat-message malformed", "err", err)
		return
	}

	if req.Content == "" || req.ReceiverID == "" {
		return
	}

	// the socket identity wins over whatever the payload claims
	req.SenderID = senderID

	m := message.NewFromCreateRequest(req)

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	if err := h.messages.Append(cctx, m); err != nil {
		h.log.Error("ws chat-message persist failed", "err", err)
		return
	}

	h.hub.Publish(m.ReceiverID, hub.EventChatMessage, m)
}

func (h *WSHandler) writePump(ws *websocket.Conn, conn *hub.Conn) {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case ev, ok := <-conn.Receive():
			if !ok {
				_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))

			if err := ws.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))

			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
