package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// BalanceCache guarda saldos consultados no toncenter por um TTL curto, pra
// não estourar o rate limit da API em refresh de tela.
type BalanceCache struct{ R *redis.Client }

func New(r *redis.Client) *BalanceCache { return &BalanceCache{R: r} }

func key(addr string) string { return "balance:addr:" + addr }

func (c *BalanceCache) Get(ctx context.Context, addr string) (int64, bool, error) {
	v, err := c.R.Get(ctx, key(addr)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (c *BalanceCache) Set(ctx context.Context, addr string, nano int64, ttl time.Duration) error {
	return c.R.Set(ctx, key(addr), strconv.FormatInt(nano, 10), ttl).Err()
}
