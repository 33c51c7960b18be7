package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/avelarsoto/communa-backend/pkg/auth"
	"github.com/avelarsoto/communa-backend/pkg/auth/session"
	"github.com/avelarsoto/communa-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "communa",
		ExpirationMinutes: 30,
	}
}

func testRealtimeConfig() config.RealtimeConfig {
	return config.RealtimeConfig{
		WriteWait:      5 * time.Second,
		PongWait:       30 * time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     16,
	}
}

type staticSessions struct {
	ok bool
}

func (s staticSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	return s.ok, nil
}

func newTestServer(t *testing.T, hub *Hub, sessions session.AccessSessionChecker) *httptest.Server {
	t.Helper()
	handler := NewHandler(hub, testJWTConfig(), testRealtimeConfig(), sessions, testLogger())
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func mintToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWTConfig(), time.Now(), auth.AccessTokenPayload{UserID: userID})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func wsURL(srv *httptest.Server, query string) string {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	if query != "" {
		url += "?" + query
	}
	return url
}

func TestHandlerRejectsMissingToken(t *testing.T) {
	srv := newTestServer(t, newTestHub(), nil)

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestHandlerRejectsInvalidToken(t *testing.T) {
	srv := newTestServer(t, newTestHub(), nil)

	resp, err := http.Get(srv.URL + "?token=not-a-jwt")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestHandlerRejectsRevokedSession(t *testing.T) {
	srv := newTestServer(t, newTestHub(), staticSessions{ok: false})

	resp, err := http.Get(srv.URL + "?token=" + mintToken(t, uuid.New()))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestHandlerDeliversNotifications(t *testing.T) {
	hub := newTestHub()
	srv := newTestServer(t, hub, nil)
	userID := uuid.New()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "token="+mintToken(t, userID)), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitForOnline(t, hub, userID)

	payload := map[string]string{"id": uuid.NewString(), "type": "like"}
	if err := hub.SendToUser(context.Background(), userID, EventNotification, payload); err != nil {
		t.Fatalf("send to user: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame Frame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if frame.Event != EventNotification {
		t.Fatalf("expected event %q, got %q", EventNotification, frame.Event)
	}

	var got map[string]string
	if err := json.Unmarshal(frame.Data, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got["type"] != "like" {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestHandlerAcknowledgeRoundTrip(t *testing.T) {
	hub := newTestHub()
	srv := newTestServer(t, hub, nil)
	userID := uuid.New()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "token="+mintToken(t, userID)), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitForOnline(t, hub, userID)

	notificationID := uuid.NewString()
	ack, err := NewFrame(EventAcknowledge, map[string]string{"notificationId": notificationID})
	if err != nil {
		t.Fatalf("build ack: %v", err)
	}
	if err := conn.WriteJSON(ack); err != nil {
		t.Fatalf("write ack: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply Frame
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read ack reply: %v", err)
	}
	if reply.Event != EventAcknowledge {
		t.Fatalf("expected event %q, got %q", EventAcknowledge, reply.Event)
	}

	var body struct {
		Acknowledged   bool   `json:"acknowledged"`
		NotificationID string `json:"notificationId"`
	}
	if err := json.Unmarshal(reply.Data, &body); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if !body.Acknowledged {
		t.Fatal("expected acknowledged=true")
	}
	if body.NotificationID != notificationID {
		t.Fatalf("expected notification id %s, got %s", notificationID, body.NotificationID)
	}
}

func TestHandlerUnregistersOnDisconnect(t *testing.T) {
	hub := newTestHub()
	srv := newTestServer(t, hub, nil)
	userID := uuid.New()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "token="+mintToken(t, userID)), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	waitForOnline(t, hub, userID)

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Registry().IsOnline(userID) {
		if time.Now().After(deadline) {
			t.Fatal("user still online after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func waitForOnline(t *testing.T, hub *Hub, userID uuid.UUID) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !hub.Registry().IsOnline(userID) {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
