package catalog

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/repository"
)

// SnapshotStore is the slice of the product store the reader needs.
type SnapshotStore interface {
	SnapshotByIDs(ctx context.Context, productIDs []string) (map[string]repository.ProductSnapshot, error)
}

type StoreReader struct {
	store   SnapshotStore
	cache   EntryCache
	breaker *gobreaker.CircuitBreaker[map[string]repository.ProductSnapshot]
	sfg     singleflight.Group // collapses concurrent misses for the same id set
}

func NewStoreReader(store SnapshotStore, cache EntryCache) *StoreReader {
	settings := gobreaker.Settings{
		Name:    "catalog-store",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &StoreReader{
		store:   store,
		cache:   cache,
		breaker: gobreaker.NewCircuitBreaker[map[string]repository.ProductSnapshot](settings),
	}
}

// Snapshot serves cached entries where possible and reads the rest through
// the circuit breaker. Any store or breaker failure makes the whole snapshot
// untrusted and surfaces as ErrUnavailable.
func (r *StoreReader) Snapshot(ctx context.Context, productIDs []string) (map[string]Entry, error) {
	result := make(map[string]Entry, len(productIDs))

	cached, err := r.cache.GetMany(ctx, productIDs)
	if err != nil {
		log.Printf("catalog cache get error: %v", err)
		cached = map[string]Entry{}
	}

	var misses []string
	for _, id := range productIDs {
		if entry, ok := cached[id]; ok {
			result[id] = entry
		} else {
			misses = append(misses, id)
		}
	}
	if len(misses) == 0 {
		return result, nil
	}

	v, err, _ := r.sfg.Do(flightKey(misses), func() (interface{}, error) {
		return r.breaker.Execute(func() (map[string]repository.ProductSnapshot, error) {
			return r.store.SnapshotByIDs(ctx, misses)
		})
	})
	if err != nil {
		return nil, ErrUnavailable
	}

	fresh := v.(map[string]repository.ProductSnapshot)
	entries := make(map[string]Entry, len(fresh))
	for id, snap := range fresh {
		entry := Entry{UnitPrice: snap.UnitPrice, Stock: snap.Stock}
		entries[id] = entry
		result[id] = entry
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := r.cache.SetMany(ctx, entries); err != nil {
			log.Printf("catalog cache set error: %v", err)
		}
	}()

	return result, nil
}

// Invalidate drops a product's cached entry after a catalog mutation.
func (r *StoreReader) Invalidate(productID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.cache.Delete(ctx, productID); err != nil {
		log.Printf("catalog cache invalidate error: %v", err)
	}
}

func flightKey(ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
