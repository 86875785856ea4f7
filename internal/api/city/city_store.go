package city

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/FACorreiaa/go-city-crud/internal/types"
)

var _ Store = (*MemoryStore)(nil)

// Store holds the current set of cities in insertion order.
// Implementations own id allocation.
type Store interface {
	// All returns every city in insertion order. The slice is never nil.
	All(ctx context.Context) ([]types.City, error)

	// Find returns the city with the given id or types.ErrNotFound.
	Find(ctx context.Context, id int64) (*types.City, error)

	// Append allocates a fresh id and stores the city at the end of the collection.
	Append(ctx context.Context, city types.City) (*types.City, error)

	// Replace applies mutate to the stored city atomically. The id cannot be changed.
	Replace(ctx context.Context, id int64, mutate func(*types.City)) (*types.City, error)

	// Remove deletes the city with the given id or returns types.ErrNotFound.
	Remove(ctx context.Context, id int64) error
}

// SeedCities is the initial data set used when seeding is enabled.
var SeedCities = []types.City{
	{Name: "Tokyo", Country: "Japan"},
	{Name: "New York", Country: "USA"},
	{Name: "Paris", Country: "France"},
}

// MemoryStore is a process-local Store. Nothing survives a restart.
type MemoryStore struct {
	logger *slog.Logger

	mu     sync.RWMutex
	cities []types.City
	lastID int64
}

func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	return &MemoryStore{
		logger: logger,
		cities: make([]types.City, 0),
	}
}

func (s *MemoryStore) All(_ context.Context) ([]types.City, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.City, len(s.cities))
	copy(out, s.cities)
	return out, nil
}

func (s *MemoryStore) Find(_ context.Context, id int64) (*types.City, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("city %d: %w", id, types.ErrNotFound)
	}
	c := s.cities[i]
	return &c, nil
}

func (s *MemoryStore) Append(ctx context.Context, city types.City) (*types.City, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	city.ID = s.lastID
	s.cities = append(s.cities, city)

	s.logger.DebugContext(ctx, "City appended", slog.Int64("id", city.ID), slog.Int("size", len(s.cities)))
	return &city, nil
}

func (s *MemoryStore) Replace(ctx context.Context, id int64, mutate func(*types.City)) (*types.City, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("city %d: %w", id, types.ErrNotFound)
	}
	c := s.cities[i]
	mutate(&c)
	c.ID = id
	s.cities[i] = c

	s.logger.DebugContext(ctx, "City replaced", slog.Int64("id", id))
	return &c, nil
}

func (s *MemoryStore) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("city %d: %w", id, types.ErrNotFound)
	}
	s.cities = append(s.cities[:i], s.cities[i+1:]...)

	s.logger.DebugContext(ctx, "City removed", slog.Int64("id", id), slog.Int("size", len(s.cities)))
	return nil
}

// indexOf must be called with mu held.
func (s *MemoryStore) indexOf(id int64) int {
	for i := range s.cities {
		if s.cities[i].ID == id {
			return i
		}
	}
	return -1
}

// Seed appends cities to store, typically SeedCities on an empty store.
func Seed(ctx context.Context, store Store, cities []types.City) error {
	for _, c := range cities {
		if _, err := store.Append(ctx, c); err != nil {
			return fmt.Errorf("failed to seed city %q: %w", c.Name, err)
		}
	}
	return nil
}
