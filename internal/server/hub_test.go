package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Noratrieb/does-it-build/internal/model"
)

func startHub(t *testing.T) (string, *Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(hub)
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http"), hub, cancel
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("unmarshal %s: %v", msg, err)
	}
	return ev
}

func TestHubHelloOnConnect(t *testing.T) {
	wsURL, _, _ := startHub(t)
	conn := dial(t, wsURL)

	if ev := readEvent(t, conn); ev.Event != "hello" {
		t.Errorf("first event = %q, want hello", ev.Event)
	}
}

func TestHubBroadcastsBuildsWithoutStderr(t *testing.T) {
	wsURL, hub, _ := startHub(t)
	conn := dial(t, wsURL)
	readEvent(t, conn) // hello

	hub.BuildRecorded(model.BuildAttempt{
		Nightly: "2024-01-01",
		Target:  "riscv64gc-unknown-none-elf",
		Status:  model.StatusError,
		Mode:    model.ModeCore,
		Stderr:  "very large compiler output",
	})

	ev := readEvent(t, conn)
	if ev.Event != "build" {
		t.Fatalf("event = %q, want build", ev.Event)
	}
	data, ok := ev.Data.(map[string]any)
	if !ok {
		t.Fatalf("data has type %T", ev.Data)
	}
	if data["target"] != "riscv64gc-unknown-none-elf" {
		t.Errorf("target = %v", data["target"])
	}
	if _, leaked := data["stderr"]; leaked {
		t.Error("build event carried stderr")
	}
}

func TestHubBroadcastsSweeps(t *testing.T) {
	wsURL, hub, _ := startHub(t)
	conn := dial(t, wsURL)
	readEvent(t, conn) // hello

	hub.SweepFinished("2024-01-02", model.ModeMiriStd)

	ev := readEvent(t, conn)
	if ev.Event != "sweep" {
		t.Fatalf("event = %q, want sweep", ev.Event)
	}
	data := ev.Data.(map[string]any)
	if data["nightly"] != "2024-01-02" || data["mode"] != "miri-std" {
		t.Errorf("sweep data = %v", data)
	}
}

func TestHubCountTracksClients(t *testing.T) {
	wsURL, hub, _ := startHub(t)

	conn := dial(t, wsURL)
	readEvent(t, conn)
	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond) // let readPump notice
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after disconnect = %d, want 0", n)
	}
}

func TestHubCancelClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t)
	conn := dial(t, wsURL)
	readEvent(t, conn)
	time.Sleep(10 * time.Millisecond)

	cancel()
	time.Sleep(50 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel = %d, want 0", n)
	}
}

func TestHubRejectsPlainHTTP(t *testing.T) {
	srv := httptest.NewServer(NewHub())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}
