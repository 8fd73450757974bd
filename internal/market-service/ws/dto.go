package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket.
// O feed não tem assinatura por tópico; só "ping" é reconhecido.
type ClientMsg struct {
	Type string `json:"type"`
}
