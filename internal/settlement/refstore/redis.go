package refstore

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "settlement:ref:"

// Redis marca referências de transação consumidas via SETNX. Sem TTL: um
// txHash liquida uma operação pra sempre.
type Redis struct {
	r *redis.Client
}

func NewRedis(r *redis.Client) *Redis { return &Redis{r: r} }

func (s *Redis) Consume(ctx context.Context, ref string) (bool, error) {
	return s.r.SetNX(ctx, keyPrefix+ref, 1, 0).Result()
}
