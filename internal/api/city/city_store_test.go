package city

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-city-crud/internal/types"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func names(cities []types.City) []string {
	out := make([]string, len(cities))
	for i, c := range cities {
		out[i] = c.Name
	}
	return out
}

func TestMemoryStore_AppendAssignsIncreasingIDs(t *testing.T) {
	store := NewMemoryStore(newTestLogger())
	ctx := context.Background()

	a, err := store.Append(ctx, types.City{Name: "Rome", Country: "Italy"})
	require.NoError(t, err)
	b, err := store.Append(ctx, types.City{ID: 999, Name: "Oslo", Country: "Norway"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID, "caller supplied ids are ignored")

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rome", "Oslo"}, names(all))
}

func TestMemoryStore_AllIsNeverNil(t *testing.T) {
	store := NewMemoryStore(newTestLogger())

	all, err := store.All(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestMemoryStore_FindReturnsCopy(t *testing.T) {
	store := NewMemoryStore(newTestLogger())
	ctx := context.Background()
	created, _ := store.Append(ctx, types.City{Name: "Rome", Country: "Italy"})

	found, err := store.Find(ctx, created.ID)
	require.NoError(t, err)
	found.Name = "Changed"

	again, err := store.Find(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rome", again.Name)
}

func TestMemoryStore_FindMissing(t *testing.T) {
	store := NewMemoryStore(newTestLogger())

	_, err := store.Find(context.Background(), 42)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestMemoryStore_ReplaceKeepsID(t *testing.T) {
	store := NewMemoryStore(newTestLogger())
	ctx := context.Background()
	created, _ := store.Append(ctx, types.City{Name: "Rome", Country: "Italy"})

	updated, err := store.Replace(ctx, created.ID, func(c *types.City) {
		c.ID = 77
		c.Name = "Roma"
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Roma", updated.Name)
	assert.Equal(t, "Italy", updated.Country)

	_, err = store.Replace(ctx, 77, func(c *types.City) {})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestMemoryStore_RemovePreservesOrder(t *testing.T) {
	store := NewMemoryStore(newTestLogger())
	ctx := context.Background()
	require.NoError(t, Seed(ctx, store, []types.City{
		{Name: "A", Country: "X"},
		{Name: "B", Country: "X"},
		{Name: "C", Country: "X"},
		{Name: "D", Country: "X"},
	}))

	require.NoError(t, store.Remove(ctx, 2))
	assert.ErrorIs(t, store.Remove(ctx, 2), types.ErrNotFound)

	all, _ := store.All(ctx)
	assert.Equal(t, []string{"A", "C", "D"}, names(all))

	// Ids are never reused after a delete.
	e, _ := store.Append(ctx, types.City{Name: "E", Country: "X"})
	assert.Equal(t, int64(5), e.ID)
}

func TestMemoryStore_ConcurrentAppendsAndUpdates(t *testing.T) {
	store := NewMemoryStore(newTestLogger())
	ctx := context.Background()
	target, _ := store.Append(ctx, types.City{Name: "Counter", Country: "0"})

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, err := store.Append(ctx, types.City{Name: fmt.Sprintf("City %d", i), Country: "X"})
			assert.NoError(t, err)
		}(i)
		go func() {
			defer wg.Done()
			_, err := store.Replace(ctx, target.ID, func(c *types.City) {
				c.Country += "+"
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, _ := store.All(ctx)
	assert.Len(t, all, workers+1)

	seen := make(map[int64]bool, len(all))
	for _, c := range all {
		assert.False(t, seen[c.ID], "duplicate id %d", c.ID)
		seen[c.ID] = true
	}

	final, _ := store.Find(ctx, target.ID)
	assert.Len(t, final.Country, workers+1, "no update may be lost")
}
