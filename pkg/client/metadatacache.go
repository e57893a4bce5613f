package client

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/stacklok/pkgregistry-client/pkg/registry"
)

// metadataCacheSize bounds the number of distinct (registry, package)
// version-metadata entries retained.
const metadataCacheSize = 4096

type metadataEntry struct {
	metadata registry.PackageVersionMetadata
	expiry   time.Time
}

type metadataKey struct {
	registryURL string
	identity    registry.RegistryIdentity
	version     string
}

// MetadataCache is C4: a thread-safe, TTL-bounded mapping from
// (registry, package, version) to decoded version metadata. Only
// getPackageVersionMetadata reads and writes this cache.
//
// A cache entry is valid while now.Before(expiry) — see AvailabilityGate's
// doc comment for why this direction, not the inverse, is correct.
type MetadataCache struct {
	ttl time.Duration

	mu    sync.Mutex
	cache *lru.Cache[metadataKey, metadataEntry]
}

// NewMetadataCache constructs a MetadataCache with the given TTL.
func NewMetadataCache(ttl time.Duration) *MetadataCache {
	cache, _ := lru.New[metadataKey, metadataEntry](metadataCacheSize)
	return &MetadataCache{ttl: ttl, cache: cache}
}

// Get returns the cached metadata, if present and unexpired.
func (c *MetadataCache) Get(reg registry.Registry, id registry.RegistryIdentity, version registry.Version) (registry.PackageVersionMetadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache.Get(metadataKey{registryURL: reg.URL, identity: id, version: version.String()})
	if !ok || !time.Now().Before(entry.expiry) {
		return registry.PackageVersionMetadata{}, false
	}
	return entry.metadata, true
}

// Put stores metadata, expiring it after the cache's TTL.
func (c *MetadataCache) Put(reg registry.Registry, id registry.RegistryIdentity, version registry.Version, metadata registry.PackageVersionMetadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(metadataKey{registryURL: reg.URL, identity: id, version: version.String()}, metadataEntry{
		metadata: metadata,
		expiry:   time.Now().Add(c.ttl),
	})
}
