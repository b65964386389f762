package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string
	Name string
}

func itemKey(i item) string { return i.ID }

func TestRecordCache_PutGetDelete(t *testing.T) {
	c := NewRecordCache[item]()

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Put("a", item{ID: "a", Name: "first"})
	c.Put("b", item{ID: "b", Name: "second"})
	c.Put("a", item{ID: "a", Name: "updated"})

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "updated", got.Name)
	assert.Equal(t, 2, c.Len())

	all, warm := c.All()
	assert.False(t, warm, "puts alone never make the cache warm")
	assert.Equal(t, []item{{"a", "updated"}, {"b", "second"}}, all)

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	all, _ = c.All()
	assert.Equal(t, []item{{"b", "second"}}, all)
}

func TestRecordCache_ReplaceMarksWarm(t *testing.T) {
	c := NewRecordCache[item]()
	c.Put("stale", item{ID: "stale"})

	c.Replace([]item{{ID: "x"}, {ID: "y"}}, itemKey)

	assert.True(t, c.Warm())
	_, ok := c.Get("stale")
	assert.False(t, ok)
	all, warm := c.All()
	assert.True(t, warm)
	assert.Equal(t, []item{{ID: "x"}, {ID: "y"}}, all)
}

func TestRecordCache_ReplaceWithDuplicateKeys(t *testing.T) {
	c := NewRecordCache[item]()
	c.Replace([]item{{ID: "x", Name: "1"}, {ID: "x", Name: "2"}}, itemKey)

	all, _ := c.All()
	assert.Equal(t, []item{{ID: "x", Name: "2"}}, all)
}

func TestRecordCache_ReplaceIfUnchanged(t *testing.T) {
	c := NewRecordCache[item]()

	gen := c.Generation()
	assert.True(t, c.ReplaceIfUnchanged([]item{{ID: "x"}}, itemKey, gen))
	assert.True(t, c.Warm())

	gen = c.Generation()
	c.Delete("x")
	assert.False(t, c.ReplaceIfUnchanged([]item{{ID: "x"}, {ID: "y"}}, itemKey, gen), "a delete after the read wins")
	_, ok := c.Get("x")
	assert.False(t, ok)

	gen = c.Generation()
	c.Put("z", item{ID: "z"})
	assert.False(t, c.ReplaceIfUnchanged(nil, itemKey, gen), "a put after the read wins")
	_, ok = c.Get("z")
	assert.True(t, ok)

	gen = c.Generation()
	c.Delete("never-cached")
	assert.False(t, c.ReplaceIfUnchanged([]item{{ID: "never-cached"}}, itemKey, gen),
		"deleting an uncached id still invalidates an older read")
}

func TestRecordCache_Find(t *testing.T) {
	c := NewRecordCache[item]()
	c.Put("1", item{ID: "1", Name: "ada"})
	c.Put("2", item{ID: "2", Name: "grace"})

	found, ok := c.Find(func(i item) bool { return i.Name == "grace" })
	require.True(t, ok)
	assert.Equal(t, "2", found.ID)

	_, ok = c.Find(func(i item) bool { return i.Name == "linus" })
	assert.False(t, ok)
}

func TestRecordCache_Invalidate(t *testing.T) {
	c := NewRecordCache[item]()
	c.Replace([]item{{ID: "x"}}, itemKey)

	c.Invalidate()

	assert.False(t, c.Warm())
	assert.Equal(t, 0, c.Len())
	all, warm := c.All()
	assert.Empty(t, all)
	assert.False(t, warm)
}

func TestRecordCache_ConcurrentAccess(t *testing.T) {
	c := NewRecordCache[item]()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("id-%d", n)
			c.Put(id, item{ID: id})
		}(i)
		go func() {
			defer wg.Done()
			c.All()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, c.Len())
}
