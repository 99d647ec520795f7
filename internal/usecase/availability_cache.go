package usecase

import (
	"context"
	"fmt"
	"time"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/internal/dto/response"

	"go.uber.org/zap"
)

// DisplayCache stores eventually consistent listings. pkg/cache.RedisCache
// implements it.
type DisplayCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// AvailabilityDisplay serves availability listings for browsing. Its answers
// may be stale for up to the cache TTL, so booking confirmation never calls it.
type AvailabilityDisplay interface {
	FindAvailableUnitsForDisplay(ctx context.Context, unitType *entity.UnitType, from time.Time, to *time.Time) ([]response.UnitResponse, error)
	Invalidate(ctx context.Context)
}

type availabilityDisplay struct {
	index AvailabilityIndex
	cache DisplayCache
	ttl   time.Duration
	log   *zap.Logger
}

// NewAvailabilityDisplay reads through cache. A nil cache disables caching.
func NewAvailabilityDisplay(index AvailabilityIndex, cache DisplayCache, ttl time.Duration, log *zap.Logger) AvailabilityDisplay {
	if cache == nil {
		cache = noopCache{}
	}
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	return &availabilityDisplay{
		index: index,
		cache: cache,
		ttl:   ttl,
		log:   log.With(zap.String("service", "availability_display")),
	}
}

func displayKey(unitType *entity.UnitType, from time.Time, to *time.Time) string {
	t := "any"
	if unitType != nil {
		t = string(*unitType)
	}
	end := "instant"
	if to != nil {
		end = to.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%s:%s:%s", t, from.UTC().Format(time.RFC3339), end)
}

func (d *availabilityDisplay) FindAvailableUnitsForDisplay(ctx context.Context, unitType *entity.UnitType, from time.Time, to *time.Time) ([]response.UnitResponse, error) {
	key := displayKey(unitType, from, to)

	var cached []response.UnitResponse
	hit, err := d.cache.Get(ctx, key, &cached)
	if err != nil {
		d.log.Warn("Availability cache read failed", zap.Error(err), zap.String("key", key))
	}
	if hit {
		return cached, nil
	}

	units, err := d.index.FindAvailableUnits(ctx, unitType, from, to)
	if err != nil {
		return nil, err
	}

	out := response.UnitsToResponse(units)
	if err := d.cache.Set(ctx, key, out, d.ttl); err != nil {
		d.log.Warn("Availability cache write failed", zap.Error(err), zap.String("key", key))
	}
	return out, nil
}

// Invalidate drops every cached listing. On failure the entries still expire with their TTL.
func (d *availabilityDisplay) Invalidate(ctx context.Context) {
	if err := d.cache.Invalidate(ctx); err != nil {
		d.log.Warn("Availability cache invalidation failed", zap.Error(err))
	}
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (noopCache) Set(context.Context, string, any, time.Duration) error { return nil }
func (noopCache) Invalidate(context.Context) error                      { return nil }
