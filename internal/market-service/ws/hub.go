package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// client embrulha a conexão com um mutex de escrita: o goroutine do handler
// (pongs) e o goroutine do subscriber Redis (broadcasts) escrevem na mesma
// conexão, e o gorilla/websocket exige um escritor por vez.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

// Hub gerencia as conexões WebSocket do feed de previsões. Diferente de um
// feed de odds, não há assinatura por tópico: toda previsão nova vai pra todos
// os clientes conectados.
type Hub struct {
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[*client]struct{}

	// OnClientsChange recebe o total de conexões a cada mudança (métrica)
	OnClientsChange func(n int)
}

// NewHub cria o hub com política customizada de origem (CORS)
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		conns:    make(map[*client]struct{}),
	}
}

var pongPayload = []byte(`{"type":"pong"}`)

// HandleWS gerencia o ciclo de vida de uma conexão: registra, responde pings
// e remove ao desconectar.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := &client{conn: conn}
	h.add(c)
	defer h.remove(c)

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		if msg.Type == "ping" {
			_ = c.write(websocket.TextMessage, pongPayload)
		}
	}
}

// Broadcast envia uma previsão nova pra todos os clientes conectados
func (h *Hub) Broadcast(v any) {
	b, _ := json.Marshal(v)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns {
		_ = c.write(websocket.TextMessage, b)
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	if h.OnClientsChange != nil {
		h.OnClientsChange(n)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.conns, c)
	n := len(h.conns)
	h.mu.Unlock()
	if h.OnClientsChange != nil {
		h.OnClientsChange(n)
	}
}
