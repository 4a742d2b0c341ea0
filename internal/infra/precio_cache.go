package infra

import (
	"context"
	"encoding/json"
	"time"

	"github.com/garcia-cyber/popcornRDC/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const precioCacheTTL = 4 * time.Hour

// PrecioCache fronts the public price lookup. A nil client turns every call
// into a miss, which is what unit tests and a Redis outage both get.
type PrecioCache struct {
	rdb *redis.Client
}

func NewPrecioCache(rdb *redis.Client) *PrecioCache { return &PrecioCache{rdb: rdb} }

func precioKey(codigo string) string { return "precio:" + codigo }

func (c *PrecioCache) Get(ctx context.Context, codigo string) (*dto.ConsultaPrecioResponse, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, precioKey(codigo)).Bytes()
	if err != nil {
		return nil, false
	}
	var resp dto.ConsultaPrecioResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

// Set is best effort; errors are logged and dropped.
func (c *PrecioCache) Set(ctx context.Context, codigo string, resp dto.ConsultaPrecioResponse) {
	if c == nil || c.rdb == nil {
		return
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, precioKey(codigo), b, precioCacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("codigo", codigo).Msg("precio cache: set failed")
	}
}

// Invalidar drops the cached entries for both the 12 and 13 digit forms.
func (c *PrecioCache) Invalidar(ctx context.Context, codigos ...string) {
	if c == nil || c.rdb == nil || len(codigos) == 0 {
		return
	}
	keys := make([]string, len(codigos))
	for i, k := range codigos {
		keys[i] = precioKey(k)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Strs("keys", keys).Msg("precio cache: invalidate failed")
	}
}
