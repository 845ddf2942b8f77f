// Package cache guarda en Redis el mapeo idempotency key -> factura para
// responder reintentos de clientes sin ir a PostgreSQL.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/stockledger-api/internal/application/billing"
)

var _ billing.IdempotencyCache = (*IdempotencyCache)(nil)

const (
	fieldInvoiceID   = "invoice_id"
	fieldRequestHash = "request_hash"
)

// NewRedis crea el cliente desde una URL redis:// y valida la conexión.
func NewRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// IdempotencyCache hash idem:<tenant>:<key> con invoice_id y request_hash.
// Solo se escribe después del commit, así que una entrada siempre apunta a una
// factura confirmada.
type IdempotencyCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewIdempotencyCache ttl <= 0 deja las entradas sin expiración.
func NewIdempotencyCache(rdb *redis.Client, ttl time.Duration) *IdempotencyCache {
	return &IdempotencyCache{rdb: rdb, ttl: ttl}
}

func cacheKey(tenantID, key string) string {
	return "idem:" + tenantID + ":" + key
}

// Get found=false si no hay entrada.
func (c *IdempotencyCache) Get(ctx context.Context, tenantID, key string) (string, string, bool, error) {
	vals, err := c.rdb.HMGet(ctx, cacheKey(tenantID, key), fieldInvoiceID, fieldRequestHash).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", "", false, nil
		}
		return "", "", false, fmt.Errorf("redis hmget: %w", err)
	}
	invoiceID, _ := vals[0].(string)
	hash, _ := vals[1].(string)
	if invoiceID == "" || hash == "" {
		return "", "", false, nil
	}
	return invoiceID, hash, true, nil
}

// Put guarda la entrada con el TTL configurado.
func (c *IdempotencyCache) Put(ctx context.Context, tenantID, key, invoiceID, requestHash string) error {
	k := cacheKey(tenantID, key)
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k, fieldInvoiceID, invoiceID, fieldRequestHash, requestHash)
		if c.ttl > 0 {
			p.Expire(ctx, k, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}
