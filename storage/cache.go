/*
	Read-through caches.  CacheStore keeps recently fetched values in RAM
	(snappy-compressed), BadgerCache persists them across runs, and
	WrapGroupcache shares immutable values through a groupcache group.  All of
	them wrap a Store and only override Get.
*/

package storage

import (
	"context"
	"fmt"

	"github.com/coocood/freecache"
	"github.com/dgraph-io/badger/v3"
	"github.com/dustin/go-humanize"
	"github.com/golang/groupcache"
	"github.com/twinj/uuid"

	"github.com/tlambert03/ndv/ndv"
)

// CacheStore wraps a Store with an in-memory read-through cache.  Entries are
// stored snappy-compressed with a CRC32 checksum.
type CacheStore struct {
	store Store
	cache *freecache.Cache
}

// NewCacheStore returns a caching wrapper around store holding up to
// megabytes MB of compressed entries.
func NewCacheStore(store Store, megabytes int) *CacheStore {
	ndv.Infof("Initializing %s store cache with %s...\n",
		store.Type(), humanize.Bytes(uint64(megabytes)<<20))
	return &CacheStore{
		store: store,
		cache: freecache.NewCache(megabytes << 20),
	}
}

func (s *CacheStore) Type() string { return s.store.Type() + "+cache" }

func (s *CacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	if cached, err := s.cache.Get([]byte(key)); err == nil {
		data, err := DeserializeData(cached)
		if err == nil {
			return data, nil
		}
		ndv.Errorf("corrupt cache entry for %q, refetching: %v\n", key, err)
	}
	data, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	entry, err := SerializeData(data, Snappy, CRC32)
	if err != nil {
		return data, nil
	}
	if err := s.cache.Set([]byte(key), entry, 0); err != nil {
		ndv.Debugf("cache store: could not cache %s for %q: %v\n",
			humanize.Bytes(uint64(len(entry))), key, err)
	}
	return data, nil
}

// BadgerCache wraps a Store with an on-disk read-through cache so remote
// chunks survive restarts.
type BadgerCache struct {
	store Store
	db    *badger.DB
}

// NewBadgerCache opens (or creates) a cache database at path.
func NewBadgerCache(store Store, path string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("could not open cache db at %q: %v", path, err)
	}
	ndv.Infof("Opened persistent %s store cache at %s\n", store.Type(), path)
	return &BadgerCache{store: store, db: db}, nil
}

func (s *BadgerCache) Type() string { return s.store.Type() + "+badger" }

func (s *BadgerCache) Get(ctx context.Context, key string) ([]byte, error) {
	var cached []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		cached, err = item.ValueCopy(nil)
		return err
	})
	if err == nil {
		if data, err := DeserializeData(cached); err == nil {
			return data, nil
		}
		ndv.Errorf("corrupt persistent cache entry for %q, refetching\n", key)
	}

	data, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	entry, serr := SerializeData(data, Snappy, CRC32)
	if serr != nil {
		return data, nil
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), entry)
	}); err != nil {
		ndv.Debugf("badger cache: could not store %q: %v\n", key, err)
	}
	return data, nil
}

// Close closes the cache database.
func (s *BadgerCache) Close() error {
	return s.db.Close()
}

// groupcacheStore fills a groupcache group from the wrapped Store.
type groupcacheStore struct {
	store Store
	cache *groupcache.Group
}

// WrapGroupcache returns a store that tries a groupcache group of the given
// byte size before resorting to the passed Store.  Values are assumed
// immutable, which holds for array chunks and metadata documents.
func WrapGroupcache(store Store, cacheBytes int64) Store {
	// group names are process-global, so isolate each wrapped store
	name := "ndv-" + store.Type() + "-" + uuid.NewV4().String()
	group := groupcache.NewGroup(name, cacheBytes, groupcache.GetterFunc(
		func(ctx context.Context, key string, dest groupcache.Sink) error {
			data, err := store.Get(ctx, key)
			if err != nil {
				return err
			}
			return dest.SetBytes(data)
		}))
	ndv.Infof("Initializing groupcache group %q with %s...\n",
		name, humanize.Bytes(uint64(cacheBytes)))
	return groupcacheStore{store: store, cache: group}
}

func (g groupcacheStore) Type() string { return g.store.Type() + "+groupcache" }

// Get tries groupcache first; a miss calls the wrapped Store via the group
// getter.  ErrNotFound does not stick in the cache.
func (g groupcacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := g.cache.Get(ctx, key, groupcache.AllocatingByteSliceSink(&data))
	return data, err
}
