package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skymirror/skymirror"
)

func TestSignalSocketBookkeeping(t *testing.T) {
	s := NewSignalService(nil)
	a := &websocket.Conn{}
	b := &websocket.Conn{}

	s.AddSocket("did:plc:a", a)
	s.AddSocket("did:plc:a", b)
	if len(s.sockets["did:plc:a"]) != 2 {
		t.Fatalf("expected 2 sockets, got %d", len(s.sockets["did:plc:a"]))
	}

	s.RemoveSocket("did:plc:a", a)
	if len(s.sockets["did:plc:a"]) != 1 {
		t.Fatalf("expected 1 socket, got %d", len(s.sockets["did:plc:a"]))
	}

	s.RemoveSocket("did:plc:a", b)
	if _, ok := s.sockets["did:plc:a"]; ok {
		t.Fatal("expected empty identity to be dropped from the registry")
	}
}

func TestRemoveSocketUnregistered(t *testing.T) {
	s := NewSignalService(nil)
	s.RemoveSocket("did:plc:a", &websocket.Conn{})
}

func TestNotifyDeliversLocallyWithoutRedis(t *testing.T) {
	s := NewSignalService(nil)
	registered := make(chan struct{})
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		s.AddSocket("did:plc:target", conn)
		defer s.RemoveSocket("did:plc:target", conn)
		close(registered)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer client.Close()
	<-registered

	if err := s.NotifyMentioned(context.Background(), []string{"did:plc:target"}); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev skymirror.Event
	if err := client.ReadJSON(&ev); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if ev.Type != skymirror.EventRefreshNotifications {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestNotifyWithoutSocketsIsNoop(t *testing.T) {
	s := NewSignalService(nil)
	ctx := context.Background()

	if err := s.NotifyMentioned(ctx, []string{"did:plc:a"}); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if err := s.NotifyMentioned(ctx, nil); err != nil {
		t.Fatalf("empty notify failed: %v", err)
	}
	if err := s.Broadcast(ctx); err != nil {
		t.Fatalf("broadcast failed: %v", err)
	}
}
