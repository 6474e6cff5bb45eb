package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ruralpay/ledger-audit/internal/config"
	"github.com/ruralpay/ledger-audit/internal/models"
	"go.uber.org/zap"
)

const latestReportKey = "ledger_audit:report:latest"

// ErrNoReport is returned when no audit report has been cached yet.
var ErrNoReport = errors.New("no cached audit report")

// InitRedis connects to Redis. It returns nil when Redis is unreachable so the
// audit can still run without a report cache.
func InitRedis(cfg config.RedisConfig, logger *zap.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis connection failed, continuing without report cache", zap.Error(err))
		rdb.Close()
		return nil
	}

	logger.Info("redis connection established", zap.String("addr", cfg.Addr()))
	return rdb
}

// ReportCache keeps the JSON of the most recent audit report.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	return &ReportCache{client: client, ttl: ttl}
}

// Store replaces the cached report.
func (c *ReportCache) Store(ctx context.Context, report *models.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := c.client.Set(ctx, latestReportKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache report: %w", err)
	}
	return nil
}

// Latest returns the raw JSON of the cached report or ErrNoReport.
func (c *ReportCache) Latest(ctx context.Context) ([]byte, error) {
	data, err := c.client.Get(ctx, latestReportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoReport
	}
	if err != nil {
		return nil, fmt.Errorf("read cached report: %w", err)
	}
	return data, nil
}
