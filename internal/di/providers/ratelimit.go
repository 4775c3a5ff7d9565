package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/pilgrimapp/pilgrim-server/internal/config"
	"github.com/pilgrimapp/pilgrim-server/internal/logger"
	"github.com/pilgrimapp/pilgrim-server/internal/ratelimit"
)

const redisPingTimeout = 3 * time.Second

// LookupLimiterHandle wraps the per-caller user directory lookup limiter.
type LookupLimiterHandle struct {
	ratelimit.Limiter
	close func() error
}

// Shutdown implements do.Shutdownable.
func (h *LookupLimiterHandle) Shutdown() error {
	if h.close == nil {
		return nil
	}
	return h.close()
}

// ProvideLookupLimiter provides the friend-request lookup limiter. With a
// Redis URL the budget is shared by every instance; otherwise it is per process.
func ProvideLookupLimiter(i do.Injector) (*LookupLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	rc := cfg.Relationships

	if rc.RedisURL != "" {
		rdb, err := ratelimit.ParseRedisURL(rc.RedisURL)
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			// Lookups fail open, so an unreachable Redis only loses the limit.
			log.Warn("Redis unreachable, lookup limit will fail open", "error", err)
		}

		log.Info("Lookup limiter using Redis", "per_minute", rc.LookupsPerMinute)
		return &LookupLimiterHandle{
			Limiter: ratelimit.NewRedisLimiter(rdb, "pilgrim:lookup", int64(rc.LookupsPerMinute), time.Minute),
			close:   rdb.Close,
		}, nil
	}

	krl := ratelimit.PerMinute(rc.LookupsPerMinute, rc.LookupBurst)
	log.Info("Lookup limiter in memory", "per_minute", rc.LookupsPerMinute, "burst", rc.LookupBurst)
	return &LookupLimiterHandle{
		Limiter: krl,
		close: func() error {
			krl.Stop()
			return nil
		},
	}, nil
}

// IPLimiterHandle wraps the per-IP API limiter. Limiter is nil when disabled.
type IPLimiterHandle struct {
	Limiter *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *IPLimiterHandle) Shutdown() error {
	if h.Limiter != nil {
		h.Limiter.Stop()
	}
	return nil
}

// ProvideIPLimiter provides the per-IP request limiter.
func ProvideIPLimiter(i do.Injector) (*IPLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Server.RequestsPerSecond <= 0 {
		log.Info("Per-IP rate limit disabled")
		return &IPLimiterHandle{}, nil
	}
	return &IPLimiterHandle{
		Limiter: ratelimit.New(cfg.Server.RequestsPerSecond, cfg.Server.RequestBurst),
	}, nil
}
