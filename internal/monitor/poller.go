// Package monitor keeps dashboard summaries fresh by polling the CRM backend
// at fixed intervals.
package monitor

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Poller refreshes one summary on a fixed interval. A failed fetch never
// stops the poller: the fallback value replaces the snapshot and the next tick
// tries again.
type Poller[T any] struct {
	name     string
	interval time.Duration
	fetch    func(ctx context.Context) (T, error)
	fallback func() T
	cache    *redis.Client
	logger   *logrus.Logger

	mu     sync.RWMutex
	latest T
	ticks  int
}

func NewPoller[T any](
	name string,
	interval time.Duration,
	fetch func(ctx context.Context) (T, error),
	fallback func() T,
	cache *redis.Client,
	logger *logrus.Logger,
) *Poller[T] {
	return &Poller[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		fallback: fallback,
		cache:    cache,
		logger:   logger,
		latest:   fallback(),
	}
}

func (p *Poller[T]) Name() string {
	return p.name
}

// CacheKey is the Redis key holding the latest snapshot.
func (p *Poller[T]) CacheKey() string {
	return "dashboard:" + p.name
}

// Run polls until ctx is cancelled. The first fetch happens immediately.
func (p *Poller[T]) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.WithField("poller", p.name).Info("Dashboard poller stopped")
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh performs one tick. Each tick is bounded by the poll interval.
func (p *Poller[T]) Refresh(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	value, err := p.fetch(tickCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.WithError(err).WithField("poller", p.name).Warn("Dashboard refresh failed, using fallback")
		value = p.fallback()
	}

	p.mu.Lock()
	p.latest = value
	p.ticks++
	p.mu.Unlock()

	p.store(tickCtx, value)
}

// Latest returns the most recent snapshot.
func (p *Poller[T]) Latest() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Ticks returns how many refreshes have completed.
func (p *Poller[T]) Ticks() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ticks
}

func (p *Poller[T]) store(ctx context.Context, value T) {
	if p.cache == nil {
		return
	}
	js, err := json.Marshal(value)
	if err != nil {
		p.logger.WithError(err).WithField("poller", p.name).Error("Failed to encode dashboard snapshot")
		return
	}
	if err := p.cache.Set(ctx, p.CacheKey(), js, 2*p.interval).Err(); err != nil {
		p.logger.WithError(err).WithField("poller", p.name).Warn("Failed to cache dashboard snapshot")
	}
}
