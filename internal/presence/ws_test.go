package presence

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"photoedit-backend/internal/models"
)

func dialPresence(t *testing.T, h *WSHandler, assetID uuid.UUID, userID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Serve(w, r, assetID, userID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f Frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestWSJoinAnnouncesPresence(t *testing.T) {
	hub := NewHub(Config{}, nil)
	h := NewWSHandler(hub, nil)
	assetID := uuid.New()

	conn := dialPresence(t, h, assetID, "maya")

	// The join upsert echoes back to the joining subscriber.
	f := readFrame(t, conn)
	if f.Type != FramePresence || f.Presence == nil || f.Presence.UserID != "maya" {
		t.Fatalf("frame = %+v, want presence for maya", f)
	}

	entries := hub.Entries(assetID)
	if len(entries) != 1 || entries[0].UserID != "maya" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestWSPresenceBeatUpdatesHub(t *testing.T) {
	hub := NewHub(Config{}, nil)
	h := NewWSHandler(hub, nil)
	assetID := uuid.New()

	conn := dialPresence(t, h, assetID, "maya")
	readFrame(t, conn) // join echo

	beat := map[string]any{
		"type":   "presence",
		"tool":   "crop",
		"cursor": map[string]float64{"x": 12, "y": 34},
	}
	if err := conn.WriteJSON(beat); err != nil {
		t.Fatal(err)
	}

	f := readFrame(t, conn)
	if f.Type != FramePresence || f.Presence.CurrentTool != models.ToolCrop {
		t.Fatalf("frame = %+v, want crop presence", f)
	}
	if f.Presence.Cursor.X != 12 || f.Presence.Cursor.Y != 34 {
		t.Fatalf("cursor = %+v", f.Presence.Cursor)
	}
}

func TestWSActivityFrameReachesFeed(t *testing.T) {
	hub := NewHub(Config{}, nil)
	h := NewWSHandler(hub, nil)
	assetID := uuid.New()

	conn := dialPresence(t, h, assetID, "maya")
	readFrame(t, conn) // join echo

	note := map[string]any{
		"type":    "activity",
		"kind":    "tool",
		"summary": "switched to mask refine",
	}
	if err := conn.WriteJSON(note); err != nil {
		t.Fatal(err)
	}

	f := readFrame(t, conn)
	if f.Type != FrameActivity || f.Activity == nil || f.Activity.ActorID != "maya" {
		t.Fatalf("frame = %+v, want activity by maya", f)
	}

	feed := hub.Feed(assetID)
	if len(feed) != 1 || feed[0].Summary != "switched to mask refine" {
		t.Fatalf("feed = %+v", feed)
	}
}

func TestWSDisconnectLeavesRoom(t *testing.T) {
	hub := NewHub(Config{}, nil)
	h := NewWSHandler(hub, nil)
	assetID := uuid.New()

	conn := dialPresence(t, h, assetID, "maya")
	readFrame(t, conn) // join echo
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(hub.Entries(assetID)) == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("presence entry not removed after disconnect")
}
