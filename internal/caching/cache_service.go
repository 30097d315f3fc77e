package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stockbill/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "stockbill"

type CacheService interface {
	// Product caching
	GetProduct(ctx context.Context, tenantID, productID uuid.UUID) (*models.Product, error)
	SetProduct(ctx context.Context, product *models.Product, ttl time.Duration) error
	DeleteProduct(ctx context.Context, tenantID, productID uuid.UUID) error

	// Report caching, keyed by a caller-built report key
	GetReport(ctx context.Context, tenantID uuid.UUID, reportKey string) (*models.Report, error)
	SetReport(ctx context.Context, tenantID uuid.UUID, reportKey string, report *models.Report, ttl time.Duration) error
	InvalidateTenantReports(ctx context.Context, tenantID uuid.UUID) error

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(client *redis.Client) CacheService {
	return &redisCacheService{client: client}
}

func productKey(tenantID, productID uuid.UUID) string {
	return fmt.Sprintf("%s:product:%s:%s", keyPrefix, tenantID, productID)
}

func reportKey(tenantID uuid.UUID, key string) string {
	return fmt.Sprintf("%s:report:%s:%s", keyPrefix, tenantID, key)
}

func (r *redisCacheService) getJSON(ctx context.Context, key string, dest any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *redisCacheService) setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

// GetProduct returns (nil, nil) on a cache miss.
func (r *redisCacheService) GetProduct(ctx context.Context, tenantID, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	found, err := r.getJSON(ctx, productKey(tenantID, productID), &product)
	if err != nil || !found {
		return nil, err
	}
	return &product, nil
}

func (r *redisCacheService) SetProduct(ctx context.Context, product *models.Product, ttl time.Duration) error {
	return r.setJSON(ctx, productKey(product.TenantID, product.ID), product, ttl)
}

func (r *redisCacheService) DeleteProduct(ctx context.Context, tenantID, productID uuid.UUID) error {
	return r.client.Del(ctx, productKey(tenantID, productID)).Err()
}

// GetReport returns (nil, nil) on a cache miss.
func (r *redisCacheService) GetReport(ctx context.Context, tenantID uuid.UUID, key string) (*models.Report, error) {
	var report models.Report
	found, err := r.getJSON(ctx, reportKey(tenantID, key), &report)
	if err != nil || !found {
		return nil, err
	}
	return &report, nil
}

func (r *redisCacheService) SetReport(ctx context.Context, tenantID uuid.UUID, key string, report *models.Report, ttl time.Duration) error {
	return r.setJSON(ctx, reportKey(tenantID, key), report, ttl)
}

func (r *redisCacheService) InvalidateTenantReports(ctx context.Context, tenantID uuid.UUID) error {
	return r.deleteMatching(ctx, fmt.Sprintf("%s:report:%s:*", keyPrefix, tenantID))
}

func (r *redisCacheService) deleteMatching(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}

// IsRateLimited counts a hit against key and reports whether the window's limit is exceeded.
func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := fmt.Sprintf("%s:ratelimit:%s", keyPrefix, key)
	// EXPIRE NX rides along with every INCR, so a counter never outlives its window.
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, cacheKey)
		pipe.ExpireNX(ctx, cacheKey, window)
		return nil
	})
	if err != nil {
		return true, err
	}

	return incr.Val() > int64(limit), nil
}
