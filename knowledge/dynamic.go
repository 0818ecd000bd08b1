package knowledge

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"expansion-evaluator/internal/types"
	"expansion-evaluator/utils"
)

// Repository persists the whole dynamic knowledge base as one document
type Repository interface {
	Load(ctx context.Context) (map[string]types.KnowledgeEntry, error)
	ReplaceAll(ctx context.Context, entries map[string]types.KnowledgeEntry) error
}

// FileRepository stores the knowledge base as a JSON object keyed by domain
type FileRepository struct {
	path string
}

// NewFileRepository creates a repository backed by path
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Path of the backing file
func (r *FileRepository) Path() string {
	return r.path
}

func (r *FileRepository) Load(ctx context.Context) (map[string]types.KnowledgeEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries := make(map[string]types.KnowledgeEntry)
	if err := readJSON(r.path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *FileRepository) ReplaceAll(ctx context.Context, entries map[string]types.KnowledgeEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeJSON(r.path, entries)
}

// DynamicKB is the knowledge base learned from successful extractions.
// Every write is persisted before Upsert returns.
type DynamicKB struct {
	repo   Repository
	maxAge time.Duration
	logger types.Logger

	// Now is the clock used for timestamps and expiry
	Now func() time.Time

	mu      sync.RWMutex
	entries map[string]types.KnowledgeEntry
	loaded  bool
}

// NewDynamicKB wraps repo. maxAge of zero keeps entries forever.
func NewDynamicKB(repo Repository, maxAge time.Duration, logger types.Logger) *DynamicKB {
	return &DynamicKB{
		repo:    repo,
		maxAge:  maxAge,
		logger:  logger,
		Now:     time.Now,
		entries: make(map[string]types.KnowledgeEntry),
	}
}

// Load reads the repository once. A failed load leaves the knowledge base
// empty and usable; the error is returned for the caller to report.
func (k *DynamicKB) Load(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.loadLocked(ctx)
}

func (k *DynamicKB) loadLocked(ctx context.Context) error {
	if k.loaded {
		return nil
	}
	k.loaded = true

	entries, err := k.repo.Load(ctx)
	if err != nil {
		k.logger.Warnf("Could not load dynamic knowledge base: %v", err)
		return err
	}
	if entries != nil {
		k.entries = entries
	}
	k.logger.Infof("Loaded dynamic knowledge base with %d domains", len(k.entries))
	return nil
}

func (k *DynamicKB) ensureLoaded(ctx context.Context) {
	k.mu.RLock()
	loaded := k.loaded
	k.mu.RUnlock()
	if loaded {
		return
	}
	k.mu.Lock()
	k.loadLocked(ctx)
	k.mu.Unlock()
}

// Get returns a copy of the entry learned for the domain of storeURL. It returns
// ErrKnowledgeMiss when there is none, when it has no products, or when it
// is older than the configured max age.
func (k *DynamicKB) Get(ctx context.Context, storeURL string) (types.KnowledgeEntry, error) {
	k.ensureLoaded(ctx)
	domain := utils.NormalizeDomain(storeURL)

	k.mu.RLock()
	entry, ok := k.entries[domain]
	k.mu.RUnlock()

	if !ok || len(entry.Products) == 0 {
		return types.KnowledgeEntry{}, types.ErrKnowledgeMiss
	}
	if k.maxAge > 0 && k.Now().Sub(entry.LastUpdated) > k.maxAge {
		return types.KnowledgeEntry{}, types.ErrKnowledgeMiss
	}
	entry.Products = slices.Clone(entry.Products)
	return entry, nil
}

// Upsert records products for the domain of storeURL and persists the
// knowledge base. Empty product lists are ignored.
func (k *DynamicKB) Upsert(ctx context.Context, storeURL string, products []types.Product, platform, method string) error {
	if len(products) == 0 {
		return nil
	}
	domain := utils.NormalizeDomain(storeURL)
	if domain == "" {
		return fmt.Errorf("%w: %q", types.ErrInvalidURL, storeURL)
	}
	k.ensureLoaded(ctx)

	k.mu.Lock()
	defer k.mu.Unlock()

	next := make(map[string]types.KnowledgeEntry, len(k.entries)+1)
	for d, e := range k.entries {
		next[d] = e
	}
	next[domain] = types.KnowledgeEntry{
		Products:         append([]types.Product(nil), products...),
		Platform:         platform,
		LastUpdated:      k.Now().UTC(),
		ExtractionMethod: method,
	}

	if err := k.repo.ReplaceAll(ctx, next); err != nil {
		return fmt.Errorf("failed to persist knowledge for %s: %w", domain, err)
	}
	k.entries = next
	k.logger.Infof("Stored %d products for %s in knowledge base", len(products), domain)
	return nil
}

// Len is the number of learned domains
func (k *DynamicKB) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.entries)
}
