package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dkarev/pokerboard/internal/core"
	"github.com/dkarev/pokerboard/internal/domain"
)

type wsEvent struct {
	Type    string        `json:"type"`
	RoomID  string        `json:"roomId"`
	Session core.Snapshot `json:"session"`
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wsEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev wsEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return ev
}

func TestWebSocketSessionFlow(t *testing.T) {
	r, _ := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn := dialWS(t, srv)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"join","roomId":"R","userId":"alice"}`)); err != nil {
		t.Fatalf("send join: %v", err)
	}

	// Join answers with the current snapshot straight away.
	ev := readEvent(t, conn)
	if ev.Type != "session" || ev.RoomID != "R" {
		t.Fatalf("unexpected event after join: %+v", ev)
	}
	if len(ev.Session.Participants) != 0 || ev.Session.StoryStatus != domain.StoryPending {
		t.Fatalf("fresh room not blank: %+v", ev.Session)
	}

	// A mutation over HTTP fans out to the websocket.
	resp, err := http.Post(srv.URL+"/api/upsert-participant", "application/json",
		strings.NewReader(`{"roomId":"R","userId":"alice","name":"Alice","role":"dev"}`))
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 204 {
		t.Fatalf("upsert status = %d", resp.StatusCode)
	}

	ev = readEvent(t, conn)
	if len(ev.Session.Participants) != 1 || ev.Session.Participants[0].Name != "Alice" {
		t.Fatalf("broadcast after upsert: %+v", ev.Session.Participants)
	}
	if ev.Session.Participants[0].HasVoted {
		t.Errorf("fresh participant marked as voted")
	}
}

func TestWebSocketTwoClientsShareBroadcasts(t *testing.T) {
	r, _ := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	first := dialWS(t, srv)
	second := dialWS(t, srv)
	for i, conn := range []*websocket.Conn{first, second} {
		user := []string{"alice", "bob"}[i]
		if err := conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"join","roomId":"R","userId":"`+user+`"}`)); err != nil {
			t.Fatalf("join %s: %v", user, err)
		}
		readEvent(t, conn)
	}

	resp, err := http.Post(srv.URL+"/api/reveal", "application/json",
		strings.NewReader(`{"roomId":"R"}`))
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	resp.Body.Close()

	for _, conn := range []*websocket.Conn{first, second} {
		ev := readEvent(t, conn)
		if ev.Session.StoryStatus != domain.StoryRevealed {
			t.Errorf("client missed reveal broadcast: %+v", ev.Session)
		}
	}
}
