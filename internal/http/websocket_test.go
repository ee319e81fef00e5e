package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"songquiz/internal/host"
)

func readEvent(t *testing.T, conn *websocket.Conn) host.Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var event host.Event
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	return event
}

func TestHub_PushesStateAndEvents(t *testing.T) {
	ts := newTestServer(t, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = ts.server.hub.Run(ctx)
	}()

	server := httptest.NewServer(ts.handler)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	initial := readEvent(t, conn)
	if initial.Type != host.EventState || initial.Snapshot == nil || !initial.Snapshot.Authenticated {
		t.Fatalf("initial event = %+v", initial)
	}

	// registration happens after the initial message is queued
	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(ts.metrics.ViewsConnected) != 1 {
		if time.Now().After(deadline) {
			t.Fatal("view was never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	ts.setup(t)

	event := readEvent(t, conn)
	if event.Type != host.EventNotification || event.Message != "Playlist loaded: 10 tracks." {
		t.Errorf("event = %+v", event)
	}
}

func TestHub_BroadcastWithoutViewsDoesNotBlock(t *testing.T) {
	var (
		mu     sync.Mutex
		counts []int
	)
	hub := NewHub(zap.NewNop(), func(n int) {
		mu.Lock()
		defer mu.Unlock()
		counts = append(counts, n)
	})

	for i := 0; i < broadcastBufferSize*2; i++ {
		hub.Broadcast(host.Event{Type: host.EventState})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- hub.Run(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(counts) != 0 {
		t.Errorf("view count callbacks without views: %v", counts)
	}
}
