/*
Package cache provides the two Redis-backed memoizations storage.Store
deliberately does not own (spec.md §4.1): a query-id cache keyed by raw
search query text, and an alias-name cache rebuilt from core.tag_alias.
Both are pure caches over Postgres state — losing them is a latency
regression, never a correctness one — which is why they live outside the
[github.com/nikvoid/nndb-core/internal/storage] transactional boundary.
*/
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nikvoid/nndb-core/internal/model"
	"github.com/nikvoid/nndb-core/internal/platform/constants"
	"github.com/nikvoid/nndb-core/pkg/slug"
)

// QueryTTL bounds how long a cached result-id list survives before a
// search re-evaluates against Postgres, even absent an explicit
// invalidation (spec.md §4.7: "whole-cache invalidation on any mutation").
const QueryTTL = 10 * time.Minute

// QueryCache memoizes resolved search-result element-id pages by raw query
// string, so repeated identical searches skip the Postgres evaluation.
type QueryCache struct {
	client *redis.Client
}

func NewQueryCache(client *redis.Client) *QueryCache {
	return &QueryCache{client: client}
}

type cachedPage struct {
	ElementIDs []int64 `json:"element_ids"`
	Total      int     `json:"total"`
}

// Get returns a previously cached page for (query, offset, limit), or
// ok=false on a cache miss.
func (c *QueryCache) Get(ctx context.Context, query string, offset, limit int) (ids []int64, total int, ok bool) {
	key := queryKey(query, offset, limit)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, 0, false
	}
	var page cachedPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, 0, false
	}
	return page.ElementIDs, page.Total, true
}

// Set stores a page's result under (query, offset, limit).
func (c *QueryCache) Set(ctx context.Context, query string, offset, limit int, ids []int64, total int) error {
	raw, err := json.Marshal(cachedPage{ElementIDs: ids, Total: total})
	if err != nil {
		return err
	}
	key := queryKey(query, offset, limit)
	return c.client.Set(ctx, key, raw, QueryTTL).Err()
}

// InvalidateAll drops every cached query page. The scan workflow calls it
// after admitting new elements; no other mutation (tag, alias, metadata or
// wiki writes) calls it, so pages cached before those stay until QueryTTL.
func (c *QueryCache) InvalidateAll(ctx context.Context) error {
	return scanDelPrefix(ctx, c.client, constants.RedisPrefixQueryCache)
}

// queryKey hashes the raw query text with xxhash rather than embedding it
// verbatim, keeping the Redis key short and free of query-syntax characters
// regardless of how long or unusual the search string gets.
func queryKey(query string, offset, limit int) string {
	h := xxhash.Sum64String(query)
	return fmt.Sprintf("%s%x:%d:%d", constants.RedisPrefixQueryCache, h, offset, limit)
}

// aliasEntry is the cached value for one alias: the canonical tag's id (for
// the search evaluator, which needs an id directly) and name (for
// ingest-time canonicalization, which needs a name to build a [model.TagSeed]
// with, mirroring the original importer's alias_cache: HashMap<String, String>).
type aliasEntry struct {
	TagID   int64  `json:"tag_id"`
	TagName string `json:"tag_name"`
}

// AliasCache mirrors core.tag_alias in memory and in Redis, so query
// parsing and tag parsing never need a round trip to Postgres to resolve an
// alias to its canonical tag (spec.md §4.1 ReloadTagAliasesIndex/LookupAlias).
type AliasCache struct {
	client *redis.Client

	mu      sync.RWMutex
	aliases map[string]aliasEntry
}

func NewAliasCache(client *redis.Client) *AliasCache {
	return &AliasCache{client: client, aliases: make(map[string]aliasEntry)}
}

// Reload replaces the in-memory index and mirrors it into Redis. It is called
// at startup and after the fetch_wikis workflow; alias_tag and update_tag do
// not call it, so their changes reach the index only on the next reload.
func (c *AliasCache) Reload(ctx context.Context, aliases []model.TagAlias) error {
	next := make(map[string]aliasEntry, len(aliases))
	for _, a := range aliases {
		next[a.Alias] = aliasEntry{TagID: a.TagID, TagName: a.TagName}
	}

	c.mu.Lock()
	c.aliases = next
	c.mu.Unlock()

	if err := scanDelPrefix(ctx, c.client, constants.RedisPrefixAliasCache); err != nil {
		return err
	}
	if len(aliases) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for alias, entry := range next {
		raw, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		pipe.Set(ctx, constants.RedisPrefixAliasCache+alias, raw, 0)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// LookupAlias resolves alias to a canonical tag id, consulting the
// in-memory index first and falling back to Redis (in case another process
// reloaded more recently than this one).
func (c *AliasCache) LookupAlias(ctx context.Context, alias string) (int64, bool) {
	entry, ok := c.lookup(ctx, alias)
	return entry.TagID, ok
}

// LookupAliasName resolves alias to its canonical tag name, used to
// canonicalize tags extracted during parsing before they reach AddTags
// (spec.md §4.3, mirroring the original's per-parse lookup_alias call).
func (c *AliasCache) LookupAliasName(ctx context.Context, alias string) (string, bool) {
	entry, ok := c.lookup(ctx, alias)
	return entry.TagName, ok
}

func (c *AliasCache) lookup(ctx context.Context, alias string) (aliasEntry, bool) {
	name := slug.Tag(alias)

	c.mu.RLock()
	entry, ok := c.aliases[name]
	c.mu.RUnlock()
	if ok {
		return entry, true
	}

	raw, err := c.client.Get(ctx, constants.RedisPrefixAliasCache+name).Bytes()
	if err != nil {
		return aliasEntry{}, false
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		return aliasEntry{}, false
	}
	return entry, true
}

func scanDelPrefix(ctx context.Context, client *redis.Client, prefix string) error {
	iter := client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return client.Del(ctx, keys...).Err()
}
