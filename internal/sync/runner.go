package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/suvilkaushik/easysched-mvp/internal/logger"
	"github.com/suvilkaushik/easysched-mvp/internal/redis"
)

const (
	lockKey    = "sync:full:lock"
	reportKey  = "sync:full:last_report"
	lockExpiry = 15 * time.Minute
)

// ErrAlreadyRunning means another full sync holds the run lock.
var ErrAlreadyRunning = errors.New("sync: a full sync is already running")

// Runner serializes full sync runs across processes with a redis lock and
// keeps the last report around for operators. With no redis client the
// orchestrator still runs, just without cross-process exclusion.
type Runner struct {
	orch  *Orchestrator
	redis *redis.Client
}

func NewRunner(orch *Orchestrator, redis *redis.Client) *Runner {
	return &Runner{orch: orch, redis: redis}
}

func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if r.redis != nil {
		// The lock value identifies this run, so release only clears a
		// lock we still hold. A run that outlives the TTL leaves any
		// newer holder's lock alone.
		owner := uuid.NewString()
		ok, err := r.redis.AcquireLock(ctx, lockKey, owner, lockExpiry)
		if err != nil {
			return nil, fmt.Errorf("sync: acquire run lock: %w", err)
		}
		if !ok {
			return nil, ErrAlreadyRunning
		}
		defer func() {
			if err := r.redis.ReleaseLock(context.WithoutCancel(ctx), lockKey, owner); err != nil {
				logger.Warn("failed releasing sync lock", map[string]any{
					"error": err.Error(),
				})
			}
		}()
	}

	report := r.orch.RunFullSync(ctx)

	if r.redis != nil {
		data, err := json.Marshal(report)
		if err == nil {
			err = r.redis.Set(context.WithoutCancel(ctx), reportKey, data, 0).Err()
		}
		if err != nil {
			logger.Warn("failed storing sync report", map[string]any{
				"run":   report.RunID,
				"error": err.Error(),
			})
		}
	}
	return report, nil
}

// LastReport returns the most recent stored report, or nil when none exists
// or no redis is configured.
func (r *Runner) LastReport(ctx context.Context) (*Report, error) {
	if r.redis == nil {
		return nil, nil
	}
	data, err := r.redis.Get(ctx, reportKey).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sync: load last report: %w", err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("sync: decode last report: %w", err)
	}
	return &report, nil
}
