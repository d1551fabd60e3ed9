package presence

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"photoedit-backend/internal/models"
)

const (
	wsMaxPayloadBytes = 32 * 1024
	wsPingInterval    = 15 * time.Second
	wsPongWait        = 45 * time.Second
	wsWriteWait       = 10 * time.Second
)

// clientFrame is what a connected editor sends upstream: presence beats
// (tool/cursor) and activity notes.
type clientFrame struct {
	Type    FrameType             `json:"type"`
	Tool    models.Tool           `json:"tool,omitempty"`
	Cursor  models.CursorPosition `json:"cursor,omitempty"`
	Kind    string                `json:"kind,omitempty"`
	Summary string                `json:"summary,omitempty"`
}

// WSHandler upgrades an HTTP request into a presence channel for one
// asset. Downstream it pushes PresenceEntry upserts and ActivityEvent
// appends; upstream it accepts the client's own beats.
type WSHandler struct {
	Hub    *Hub
	Logger *slog.Logger

	upgrader websocket.Upgrader
}

// NewWSHandler builds a handler around the hub. Origin checking is left
// to the CORS layer in front of the router.
func NewWSHandler(hub *Hub, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &WSHandler{
		Hub:    hub,
		Logger: logger.With("component", "presence-ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
	}
}

// Serve handles one presence connection for the given asset and user.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request, assetID uuid.UUID, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := h.Hub.Subscribe(assetID)
	h.Hub.UpdatePresence(assetID, userID, "", models.CursorPosition{})

	done := make(chan struct{})
	go h.writePump(conn, sub, done)
	h.readPump(conn, assetID, userID)

	close(done)
	sub.Close()
	h.Hub.Leave(assetID, userID)
	conn.Close()
}

func (h *WSHandler) readPump(conn *websocket.Conn, assetID uuid.UUID, userID string) {
	conn.SetReadLimit(wsMaxPayloadBytes)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.Logger.Debug("presence read ended", "user", userID, "error", err)
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			h.Logger.Debug("dropping malformed frame", "user", userID, "error", err)
			continue
		}

		switch frame.Type {
		case FramePresence:
			h.Hub.UpdatePresence(assetID, userID, frame.Tool, frame.Cursor)
		case FrameActivity:
			h.Hub.Record(assetID, userID, frame.Kind, frame.Summary)
		}
	}
}

func (h *WSHandler) writePump(conn *websocket.Conn, sub *Subscription, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case frame := <-sub.Frames:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
