package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"todoapi/internal/core/domain"
	"todoapi/internal/core/port"
	tel "todoapi/internal/core/telemetry"
)

const (
	KeyPrefix  = "todos:"
	keyAll     = KeyPrefix + "all"
	keyByIDTag = KeyPrefix + "id"
)

func keyByID(id int64) string {
	return keyByIDTag + ":" + strconv.FormatInt(id, 10)
}

// flightKey scopes singleflight calls to a generation so callers arriving
// after a write never join a load that started before it.
func flightKey(key string, gen uint64) string {
	return key + "@" + strconv.FormatUint(gen, 10)
}

// CachedTodoRepository serves FindAll and FindByID from cache and drops every
// todo entry on writes. Duplicate lookups always hit the wrapped repository.
//
// Every write bumps generation. A load only populates the cache when no write
// happened while it ran, so a read racing a delete cannot resurrect the row.
type CachedTodoRepository struct {
	next       port.TodoRepository
	cache      port.CacheRepository
	ttl        time.Duration
	telemetry  port.Telemetry
	logger     *otelzap.Logger
	group      singleflight.Group
	generation atomic.Uint64
}

func NewCachedTodoRepository(next port.TodoRepository, cache port.CacheRepository, ttl time.Duration, telemetry port.Telemetry, logger *otelzap.Logger) *CachedTodoRepository {
	if telemetry == nil {
		telemetry = tel.NewNoOpProbe()
	}

	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}

	return &CachedTodoRepository{
		next:      next,
		cache:     cache,
		ttl:       ttl,
		telemetry: telemetry,
		logger:    logger,
	}
}

func (r *CachedTodoRepository) FindAll(ctx context.Context) ([]domain.Todo, error) {
	var todos []domain.Todo

	if r.lookup(ctx, keyAll, keyAll, &todos) {
		return todos, nil
	}

	gen := r.generation.Load()

	v, err, _ := r.group.Do(flightKey(keyAll, gen), func() (interface{}, error) {
		loadCtx := context.WithoutCancel(ctx)

		todos, err := r.next.FindAll(loadCtx)

		if err != nil {
			return nil, err
		}

		r.store(loadCtx, gen, keyAll, todos)

		return todos, nil
	})

	if err != nil {
		return nil, err
	}

	return v.([]domain.Todo), nil
}

type cachedLookup struct {
	todo  domain.Todo
	found bool
}

func (r *CachedTodoRepository) FindByID(ctx context.Context, id int64) (domain.Todo, bool, error) {
	key := keyByID(id)

	var todo domain.Todo

	if r.lookup(ctx, key, keyByIDTag, &todo) {
		return todo, true, nil
	}

	gen := r.generation.Load()

	v, err, _ := r.group.Do(flightKey(key, gen), func() (interface{}, error) {
		loadCtx := context.WithoutCancel(ctx)

		todo, found, err := r.next.FindByID(loadCtx, id)

		if err != nil {
			return nil, err
		}

		if found {
			r.store(loadCtx, gen, key, todo)
		}

		return cachedLookup{todo: todo, found: found}, nil
	})

	if err != nil {
		return domain.Todo{}, false, err
	}

	result := v.(cachedLookup)

	return result.todo, result.found, nil
}

func (r *CachedTodoRepository) FindByTitleAndDescription(ctx context.Context, title, description string) (domain.Todo, bool, error) {
	return r.next.FindByTitleAndDescription(ctx, title, description)
}

func (r *CachedTodoRepository) Save(ctx context.Context, todo domain.Todo) (domain.Todo, error) {
	saved, err := r.next.Save(ctx, todo)

	if err != nil {
		return domain.Todo{}, err
	}

	r.invalidate(ctx)

	return saved, nil
}

func (r *CachedTodoRepository) DeleteByID(ctx context.Context, id int64) error {
	if err := r.next.DeleteByID(ctx, id); err != nil {
		return err
	}

	r.invalidate(ctx)

	return nil
}

// lookup decodes a cached entry into dest. Backend failures count as misses
// so the wrapped repository keeps serving reads.
func (r *CachedTodoRepository) lookup(ctx context.Context, key, label string, dest interface{}) bool {
	data, err := r.cache.Get(ctx, key)

	if err != nil {
		if !errors.Is(err, port.ErrCacheMiss) {
			r.logger.Ctx(ctx).Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}

		r.telemetry.RecordCacheAccess(ctx, label, false)

		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		r.logger.Ctx(ctx).Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		r.telemetry.RecordCacheAccess(ctx, label, false)

		return false
	}

	r.telemetry.RecordCacheAccess(ctx, label, true)

	return true
}

// store caches value loaded under gen. A write landing between the check and
// the Set is caught by the second check, which removes the entry again.
func (r *CachedTodoRepository) store(ctx context.Context, gen uint64, key string, value interface{}) {
	if r.generation.Load() != gen {
		return
	}

	data, err := json.Marshal(value)

	if err != nil {
		r.logger.Ctx(ctx).Warn("Cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	if err := r.cache.Set(ctx, key, data, r.ttl); err != nil {
		r.logger.Ctx(ctx).Warn("Cache write failed", zap.String("key", key), zap.Error(err))
		return
	}

	if r.generation.Load() != gen {
		if err := r.cache.Delete(ctx, key); err != nil {
			r.logger.Ctx(ctx).Error("Cache rollback failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// invalidate must run after the write has committed.
func (r *CachedTodoRepository) invalidate(ctx context.Context) {
	r.generation.Add(1)

	if err := r.cache.DeleteByPrefix(ctx, KeyPrefix); err != nil {
		r.logger.Ctx(ctx).Error("Cache invalidation failed", zap.Error(err))
	}
}
