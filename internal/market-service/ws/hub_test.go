package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_PingPong(t *testing.T) {
	hub := NewHub(func(r *http.Request) bool { return true })
	conn := dialHub(t, hub)

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg map[string]string
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if msg["type"] != "pong" {
		t.Errorf("type = %q, want pong", msg["type"])
	}
}

// Pongs saem do goroutine do handler e broadcasts do goroutine do subscriber,
// na mesma conexão: os dois fluxos concorrentes não podem se sobrepor (o
// gorilla/websocket aborta com "concurrent write" quando isso acontece).
func TestHub_ConcurrentPingsAndBroadcasts(t *testing.T) {
	hub := NewHub(func(r *http.Request) bool { return true })

	registered := make(chan int, 4)
	hub.OnClientsChange = func(n int) { registered <- n }

	conn := dialHub(t, hub)

	select {
	case <-registered:
	case <-time.After(3 * time.Second):
		t.Fatal("client never registered")
	}

	const pings = 200
	const broadcasts = 200

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < pings; i++ {
			if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
				t.Errorf("write ping %d: %v", i, err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < broadcasts; i++ {
			hub.Broadcast(map[string]string{"type": "prediction"})
		}
	}()

	gotPongs, gotBroadcasts := 0, 0
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for gotPongs < pings || gotBroadcasts < broadcasts {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read (pongs=%d broadcasts=%d): %v", gotPongs, gotBroadcasts, err)
		}
		var msg map[string]string
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal %q: %v", data, err)
		}
		switch msg["type"] {
		case "pong":
			gotPongs++
		case "prediction":
			gotBroadcasts++
		default:
			t.Fatalf("unexpected message %q", data)
		}
	}
	wg.Wait()
}
