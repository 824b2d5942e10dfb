package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/civicfix/civicfix-server/internal/config"
	"github.com/civicfix/civicfix-server/internal/ratelimit"
)

// ErrRedisDisabled is returned by Ready when REDIS_ADDR is unset.
var ErrRedisDisabled = errors.New("redis disabled")

// Redis holds the connection behind the per-citizen report counters.
type Redis struct {
	Client *redis.Client
}

// NewRedis dials cfg.Addr and returns nil when no address is configured, in
// which case reports are not rate limited. An unreachable server is logged and
// left to the readiness check.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Warn("REDIS_ADDR not provided; report rate limiting disabled")
		return nil
	}
	r := &Redis{Client: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
	if err := r.Ready(ctx); err != nil {
		logger.Warn("report counters unavailable", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("report counters connected", zap.String("addr", cfg.Addr))
	}
	return r
}

// ReportLimiter returns the limiter for POST /api/issues, or nil when Redis is
// disabled or the daily cap is not positive.
func (r *Redis) ReportLimiter(limits config.LimitsConfig) ratelimit.Limiter {
	if r == nil || r.Client == nil || limits.ReportsPerDay <= 0 {
		return nil
	}
	return ratelimit.NewRedisLimiter(r.Client, limits.ReportKeyPrefix, limits.ReportsPerDay, ratelimit.DefaultWindow)
}

// Ready pings the server for /health/ready.
func (r *Redis) Ready(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return ErrRedisDisabled
	}
	return r.Client.Ping(ctx).Err()
}

func (r *Redis) Close() {
	if r == nil || r.Client == nil {
		return
	}
	_ = r.Client.Close()
}
