package integration_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type wsEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dialWS(t *testing.T, server *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token

	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)

	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial ws: %v (status %d)", err, status)
	}

	// the server joins the room just after finishing the handshake
	time.Sleep(100 * time.Millisecond)

	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) wsEvent {
	t.Helper()

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))

	var ev wsEvent

	if err := ws.ReadJSON(&ev); err != nil {
		t.Fatalf("read ws event: %v", err)
	}

	return ev
}

func assertNoEvent(t *testing.T, ws *websocket.Conn) {
	t.Helper()

	_ = ws.SetReadDeadline(time.Now().Add(300 * time.Millisecond))

	var ev wsEvent

	if err := ws.ReadJSON(&ev); err == nil {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	router, _ := setupTestRouter(t)

	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=garbage"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	if err == nil {
		t.Fatal("handshake with a bad token must fail")
	}

	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
}

func TestTaskUpdateReachesAssigneeLive(t *testing.T) {
	router, _ := setupTestRouter(t)

	server := httptest.NewServer(router)
	defer server.Close()

	adminLogin := login(t, router, "admin", "admin123", "admin")
	empLogin := login(t, router, "employee1", "employee123", "employee")

	empWS := dialWS(t, server, empLogin.AccessToken)
	defer empWS.Close()

	// assigning a task pushes task-update into the assignee's room
	createBody := `{"title":"Live-assigned task","assignedTo":["` + empLogin.User.ID + `"],"priority":"medium"}`
	w := doRequest(router, http.MethodPost, "/tasks", createBody, adminLogin.AccessToken)

	if w.Code != http.StatusCreated {
		t.Fatalf("create task got status %d, body=%s", w.Code, w.Body.String())
	}

	ev := readEvent(t, empWS)

	if ev.Event != "task-update" {
		t.Fatalf("got event %q, want task-update", ev.Event)
	}

	var payload taskResponse

	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		t.Fatalf("decode task payload: %v", err)
	}

	if payload.Title != "Live-assigned task" || payload.Status != "pending" {
		t.Fatalf("unexpected task payload: %+v", payload)
	}
}

func TestChatMessageReachesReceiverOnly(t *testing.T) {
	router, _ := setupTestRouter(t)

	server := httptest.NewServer(router)
	defer server.Close()

	adminLogin := login(t, router, "admin", "admin123", "admin")
	empLogin := login(t, router, "employee1", "employee123", "employee")

	adminWS := dialWS(t, server, adminLogin.AccessToken)
	defer adminWS.Close()

	empWS := dialWS(t, server, empLogin.AccessToken)
	defer empWS.Close()

	// the employee sends a chat message over its socket
	send := wsEvent{
		Event: "chat-message",
		Data: json.RawMessage(`{"senderId":"spoofed","receiverId":"` + adminLogin.User.ID + `","content":"hello boss"}`),
	}

	if err := empWS.WriteJSON(send); err != nil {
		t.Fatalf("write ws event: %v", err)
	}

	got := readEvent(t, adminWS)

	if got.Event != "chat-message" {
		t.Fatalf("got event %q, want chat-message", got.Event)
	}

	var msg struct {
		SenderID   string `json:"senderId"`
		ReceiverID string `json:"receiverId"`
		Content    string `json:"content"`
	}

	if err := json.Unmarshal(got.Data, &msg); err != nil {
		t.Fatalf("decode message payload: %v", err)
	}

	if msg.Content != "hello boss" {
		t.Fatalf("unexpected content: %q", msg.Content)
	}

	// the socket identity overrides the claimed sender
	if msg.SenderID != empLogin.User.ID {
		t.Fatalf("senderId must come from the socket identity, got %q", msg.SenderID)
	}

	// no echo back to the sender
	assertNoEvent(t, empWS)

	// and the message was persisted for later fetches
	lw := doRequest(router, http.MethodGet, "/messages", "", adminLogin.AccessToken)

	if lw.Code != http.StatusOK {
		t.Fatalf("list messages got status %d, body=%s", lw.Code, lw.Body.String())
	}

	if !strings.Contains(lw.Body.String(), "hello boss") {
		t.Fatalf("message not persisted: %s", lw.Body.String())
	}
}

func TestChatMessageViaRESTReachesReceiver(t *testing.T) {
	router, _ := setupTestRouter(t)

	server := httptest.NewServer(router)
	defer server.Close()

	adminLogin := login(t, router, "admin", "admin123", "admin")
	empLogin := login(t, router, "employee1", "employee123", "employee")

	empWS := dialWS(t, server, empLogin.AccessToken)
	defer empWS.Close()

	body := `{"senderId":"` + adminLogin.User.ID + `","receiverId":"` + empLogin.User.ID + `","content":"ping"}`
	w := doRequest(router, http.MethodPost, "/messages", body, adminLogin.AccessToken)

	if w.Code != http.StatusCreated {
		t.Fatalf("create message got status %d, body=%s", w.Code, w.Body.String())
	}

	ev := readEvent(t, empWS)

	if ev.Event != "chat-message" {
		t.Fatalf("got event %q, want chat-message", ev.Event)
	}
}
