package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expansion-evaluator/internal/types"
)

func TestStaticKB_Lookup(t *testing.T) {
	kb, err := NewStaticKB()
	require.NoError(t, err)
	assert.Equal(t, 14, kb.Len())

	result, ok := kb.Lookup("https://www.allbirds.com/", 3)
	require.True(t, ok)
	assert.True(t, result.Success)
	assert.Equal(t, "Static Knowledge Base - allbirds.com", result.ExtractionMethod)
	assert.Equal(t, "shopify", result.PlatformDetected)
	require.Len(t, result.Products, 3)
	assert.Equal(t, "Tree Runners", result.Products[0].Name)
	assert.Equal(t, "https://www.allbirds.com/products/mens-tree-runners", result.Products[0].URL)
	assert.Equal(t, 3, result.TotalFound)
}

func TestStaticKB_ParentDomain(t *testing.T) {
	kb, err := NewStaticKB()
	require.NoError(t, err)

	known, ok := kb.Match("https://shop.gap.com")
	require.True(t, ok)
	assert.Equal(t, "gap.com", known)

	known, ok = kb.Match("https://gapfactory.com")
	require.True(t, ok)
	assert.Equal(t, "gapfactory.com", known)

	_, ok = kb.Match("https://notgap.com")
	assert.False(t, ok)
	_, ok = kb.Lookup("https://unknown-store.example", 10)
	assert.False(t, ok)
}

func TestLoadStaticKB_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"stores":{"acme.test":{"platform":"custom","products":[
		{"name":"Anvil","path":"/p/anvil","price":"$10","category":"Tools"}]}}}`), 0o644))

	kb, err := LoadStaticKB(path)
	require.NoError(t, err)
	result, ok := kb.Lookup("https://acme.test", 0)
	require.True(t, ok)
	assert.Equal(t, "https://acme.test/p/anvil", result.Products[0].URL)

	result, ok = kb.Lookup("https://acme.test/shop?ref=1", 0)
	require.True(t, ok)
	assert.Equal(t, "https://acme.test/p/anvil", result.Products[0].URL)

	_, err = LoadStaticKB(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestInference(t *testing.T) {
	inference, err := NewInference()
	require.NoError(t, err)

	products := inference.Infer("https://bestshoestore.com")
	require.Len(t, products, 4)
	assert.Equal(t, "Dress Shoes", products[0].Name)
	assert.Equal(t, "https://bestshoestore.com/products/dress-shoes", products[0].URL)
	assert.Equal(t, "Price on request", products[0].Price)
	assert.Equal(t, "Shoe", products[0].Category)

	books := inference.Infer("https://kidsbookbarn.com/")
	assert.Equal(t, "https://kidsbookbarn.com/products/childrens-books", books[3].URL)

	generic := inference.Infer("https://acme.example")
	require.Len(t, generic, 4)
	assert.Equal(t, "Featured Products", generic[0].Name)
	assert.Equal(t, "https://acme.example/collections/featured-products", generic[0].URL)
	assert.Equal(t, "Various", generic[0].Price)
	assert.Equal(t, "General", generic[0].Category)

	withPath := inference.Infer("https://acme.example/shop?ref=1")
	assert.Equal(t, "https://acme.example/collections/featured-products", withPath[0].URL)
}

func TestResultCache_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewResultCache(24*time.Hour, 2*time.Hour)
	cache.Now = func() time.Time { return now }

	_, err := cache.Get("https://a.example")
	assert.ErrorIs(t, err, types.ErrCacheMiss)

	cache.Put("https://a.example", types.NewSuccessResult([]types.Product{{Name: "A", URL: "https://a.example/p"}}, "m", "", 0), false, "")
	cache.Put("https://b.example", types.NewFailureResult("m", errors.New("boom")), true, "boom")

	now = now.Add(3 * time.Hour)
	entry, err := cache.Get("https://a.example")
	require.NoError(t, err)
	assert.Len(t, entry.Result.Products, 1)

	_, err = cache.Get("https://b.example")
	assert.ErrorIs(t, err, types.ErrCacheMiss)
	assert.Equal(t, 1, cache.Len(), "expired entry is removed on read")

	now = now.Add(21 * time.Hour)
	_, err = cache.Get("https://a.example")
	assert.ErrorIs(t, err, types.ErrCacheMiss)
}

func TestResultCache_KeyIsExactURL(t *testing.T) {
	cache := NewResultCache(time.Hour, time.Hour)
	cache.Put("https://a.example", types.NewSuccessResult(nil, "m", "", 0), false, "")

	_, err := cache.Get("https://a.example/")
	assert.ErrorIs(t, err, types.ErrCacheMiss)
	assert.Len(t, cacheKey("https://a.example"), 32)
}

func TestDynamicKB_UpsertPersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kb", "dynamic.json")
	logger := logrus.New()

	repo := NewFileRepository(path)
	assert.Equal(t, path, repo.Path())
	kb := NewDynamicKB(repo, 0, logger)
	require.NoError(t, kb.Load(ctx))

	_, err := kb.Get(ctx, "https://www.acme.example")
	assert.ErrorIs(t, err, types.ErrKnowledgeMiss)

	products := []types.Product{{Name: "Anvil", URL: "https://acme.example/products/anvil"}}
	require.NoError(t, kb.Upsert(ctx, "https://www.acme.example/shop", products, "shopify", "Platform-specific (shopify)"))
	require.NoError(t, kb.Upsert(ctx, "https://empty.example", nil, "custom", "m"))
	assert.Equal(t, 1, kb.Len())

	reloaded := NewDynamicKB(NewFileRepository(path), 0, logger)
	entry, err := reloaded.Get(ctx, "https://acme.example")
	require.NoError(t, err)
	assert.Equal(t, "shopify", entry.Platform)
	assert.Equal(t, "Anvil", entry.Products[0].Name)
	assert.False(t, entry.LastUpdated.IsZero())
}

func TestDynamicKB_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	kb := NewDynamicKB(NewFileRepository(filepath.Join(t.TempDir(), "kb.json")), 0, logrus.New())
	require.NoError(t, kb.Upsert(ctx, "https://acme.example", []types.Product{
		{Name: "Anvil", URL: "https://acme.example/products/anvil"},
		{Name: "Hammer", URL: "https://acme.example/products/hammer"},
	}, "custom", "Sitemap Analysis"))

	entry, err := kb.Get(ctx, "https://acme.example")
	require.NoError(t, err)
	entry.Products[0].Name = "Changed"
	slices.Reverse(entry.Products)

	again, err := kb.Get(ctx, "https://acme.example")
	require.NoError(t, err)
	require.Len(t, again.Products, 2)
	assert.Equal(t, "Anvil", again.Products[0].Name)
	assert.Equal(t, "Hammer", again.Products[1].Name)
}

func TestDynamicKB_MaxAge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	kb := NewDynamicKB(NewFileRepository(filepath.Join(t.TempDir(), "kb.json")), 48*time.Hour, logrus.New())
	kb.Now = func() time.Time { return now }

	require.NoError(t, kb.Upsert(ctx, "https://acme.example", []types.Product{{Name: "Anvil"}}, "custom", "m"))

	now = now.Add(47 * time.Hour)
	_, err := kb.Get(ctx, "https://acme.example")
	assert.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = kb.Get(ctx, "https://acme.example")
	assert.ErrorIs(t, err, types.ErrKnowledgeMiss)
}

func TestDynamicKB_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	kb := NewDynamicKB(NewFileRepository(path), 0, logrus.New())
	assert.Error(t, kb.Load(context.Background()))
	assert.Equal(t, 0, kb.Len())

	require.NoError(t, kb.Upsert(context.Background(), "https://acme.example", []types.Product{{Name: "Anvil"}}, "custom", "m"))
	assert.Equal(t, 1, kb.Len())
}

type failingRepo struct{}

func (failingRepo) Load(ctx context.Context) (map[string]types.KnowledgeEntry, error) {
	return nil, nil
}

func (failingRepo) ReplaceAll(ctx context.Context, entries map[string]types.KnowledgeEntry) error {
	return errors.New("disk full")
}

func TestDynamicKB_PersistFailureKeepsMemoryConsistent(t *testing.T) {
	kb := NewDynamicKB(failingRepo{}, 0, logrus.New())
	err := kb.Upsert(context.Background(), "https://acme.example", []types.Product{{Name: "Anvil"}}, "custom", "m")
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 0, kb.Len())
}

func TestDynamicKB_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kb.json")
	kb := NewDynamicKB(NewFileRepository(path), 0, logrus.New())

	domains := []string{"a.example", "b.example", "c.example", "d.example", "e.example", "f.example"}
	var wg sync.WaitGroup
	for _, d := range domains {
		wg.Add(1)
		go func(domain string) {
			defer wg.Done()
			assert.NoError(t, kb.Upsert(ctx, "https://"+domain, []types.Product{{Name: domain}}, "custom", "m"))
		}(d)
	}
	wg.Wait()

	entries, err := NewFileRepository(path).Load(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, len(domains))
}

func TestUpgradeLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upgrades.json")
	log := NewUpgradeLog(path)
	log.Now = func() time.Time { return time.Unix(1700000000, 500000000) }

	require.NoError(t, log.Record("acme.example", 12))
	require.NoError(t, log.Record("other.example", 3))

	records, err := log.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 12, records["acme.example"].ProductCount)
	assert.Equal(t, UpgradeStatus, records["acme.example"].Status)
	assert.InDelta(t, 1700000000.5, records["acme.example"].Timestamp, 0.001)
}
