package enrichment

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const cacheBucket = "enrichment"

type cacheEntry struct {
	Record    Record    `json:"record"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// DiskCache is the disk-backed cache of §4.9 step 1: a single-file
// key/value database keyed by repository identity. It enforces no size
// ceiling: OpenDiskCache takes no size limit.
type DiskCache struct {
	db  *bolt.DB
	ttl time.Duration
}

// OpenDiskCache opens (creating if absent) a bbolt-backed cache file at
// path, with entries considered fresh for ttl.
func OpenDiskCache(path string, ttl time.Duration) (*DiskCache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening enrichment cache %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(cacheBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing enrichment cache %s: %w", path, err)
	}
	return &DiskCache{db: db, ttl: ttl}, nil
}

// Close closes the underlying database file.
func (c *DiskCache) Close() error { return c.db.Close() }

// Get returns the cached record for identity, and false if absent or
// expired. An expired entry is left in place — it is overwritten on the
// next successful Put, not eagerly evicted.
func (c *DiskCache) Get(identity string) (Record, bool, error) {
	var entry cacheEntry
	var found bool
	err := c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(cacheBucket)).Get([]byte(identity))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("decoding cache entry for %s: %w", identity, err)
		}
		found = true
		return nil
	})
	if err != nil {
		return Record{}, false, err
	}
	if !found || !time.Now().Before(entry.FetchedAt.Add(c.ttl)) {
		return Record{}, false, nil
	}
	return entry.Record, true, nil
}

// Put stores record under identity, stamped with now as its fetch time.
func (c *DiskCache) Put(identity string, record Record, now time.Time) error {
	entry := cacheEntry{Record: record, FetchedAt: now}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(cacheBucket)).Put([]byte(identity), raw)
	})
}
