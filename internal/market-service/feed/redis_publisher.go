package feed

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/prediction-market-poc/pkg/contracts/events"
)

// RedisBroadcaster publica previsões recém-criadas no canal Pub/Sub lido pelo
// hub WebSocket (cada instância do serviço repassa aos próprios clientes).
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) PublishPredictionCreated(ctx context.Context, e events.PredictionCreated) error {
	payload, _ := json.Marshal(e)
	return b.r.Publish(ctx, b.channel, payload).Err()
}
