package city

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-city-crud/internal/types"
)

var _ Store = (*CachedStore)(nil)

// CachedStore keeps recently read cities in memory in front of a slower Store.
// All always goes to the backing store so list order stays authoritative.
//
// Writes evict after the backing store has changed and bump epoch. Find
// fills the cache only if epoch did not move while it was reading.
type CachedStore struct {
	next   Store
	cache  *cache.Cache
	logger *slog.Logger

	mu    sync.Mutex
	epoch uint64
}

func NewCachedStore(next Store, ttl, cleanupInterval time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{
		next:   next,
		cache:  cache.New(ttl, cleanupInterval),
		logger: logger,
	}
}

func cacheKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (s *CachedStore) All(ctx context.Context) ([]types.City, error) {
	return s.next.All(ctx)
}

func (s *CachedStore) Find(ctx context.Context, id int64) (*types.City, error) {
	if v, ok := s.cache.Get(cacheKey(id)); ok {
		c := v.(types.City)
		s.logger.DebugContext(ctx, "City cache hit", slog.Int64("id", id))
		return &c, nil
	}

	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	c, err := s.next.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.epoch == epoch {
		s.cache.SetDefault(cacheKey(id), *c)
	}
	s.mu.Unlock()
	return c, nil
}

// Append does not fill the cache; the first Find after it does.
func (s *CachedStore) Append(ctx context.Context, city types.City) (*types.City, error) {
	return s.next.Append(ctx, city)
}

func (s *CachedStore) Replace(ctx context.Context, id int64, mutate func(*types.City)) (*types.City, error) {
	c, err := s.next.Replace(ctx, id, mutate)
	s.invalidate(id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CachedStore) Remove(ctx context.Context, id int64) error {
	err := s.next.Remove(ctx, id)
	s.invalidate(id)
	return err
}

// invalidate must run after the backing store has been written.
func (s *CachedStore) invalidate(id int64) {
	s.mu.Lock()
	s.epoch++
	s.cache.Delete(cacheKey(id))
	s.mu.Unlock()
}

// ItemCount reports how many cities are currently cached.
func (s *CachedStore) ItemCount() int {
	return s.cache.ItemCount()
}
