// Package hcache implements the Hierarchy Cache (C11): a read-through
// memoization layer in front of internal/store's tree/subtree/ancestry
// reads, backed by an in-memory tidwall/buntdb instance (spec §4.11's
// "read-through cache for tree/ancestry queries with invalidation hooks").
package hcache

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/buntdb"
	"golang.org/x/sync/singleflight"

	curatorerrors "github.com/nodecurio/curator/internal/errors"
	"github.com/nodecurio/curator/internal/logging"
	"github.com/nodecurio/curator/internal/store"
)

// Cache wraps an in-memory buntdb instance. Single-flight collapses
// concurrent misses for the same key into one underlying store call (spec
// §5: "reads are lock-free with a per-key memoization lock to prevent
// stampede").
type Cache struct {
	db  *buntdb.DB
	sf  singleflight.Group
	ttl time.Duration
}

func New(ttl time.Duration) (*Cache, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, curatorerrors.Wrap(curatorerrors.KindInternal, err, "open hierarchy cache")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{db: db, ttl: ttl}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func key(view store.View, kind, arg string) string {
	return fmt.Sprintf("%s|%s|%s", view, kind, arg)
}

// getOrCompute fetches a cached JSON-encoded value, falling back to
// compute on a miss and writing the result back with this cache's TTL.
func getOrCompute[T any](c *Cache, k string, compute func() (T, error)) (T, error) {
	var zero T

	if raw, ok := c.lookup(k); ok {
		var val T
		if err := json.Unmarshal([]byte(raw), &val); err == nil {
			return val, nil
		}
		// A corrupt cache entry is treated as a miss rather than an error.
	}

	result, err, _ := c.sf.Do(k, func() (any, error) {
		v, err := compute()
		if err != nil {
			return nil, err
		}
		encoded, merr := json.Marshal(v)
		if merr == nil {
			c.store(k, string(encoded))
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return result.(T), nil
}

func (c *Cache) lookup(k string) (string, bool) {
	var val string
	err := c.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(k)
		if err != nil {
			return err
		}
		val = v
		return nil
	})
	return val, err == nil
}

func (c *Cache) store(k, v string) {
	err := c.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(k, v, &buntdb.SetOptions{Expires: true, TTL: c.ttl})
		return err
	})
	if err != nil {
		logging.ValidateWarn("hcache: failed to write cache entry %s: %v", k, err)
	}
}

// GetNodeByHierarchyCode memoizes store.GetNodeByHierarchyCode.
func (c *Cache) GetNodeByHierarchyCode(view store.View, code string, compute func() (*store.Node, error)) (*store.Node, error) {
	return getOrCompute(c, key(view, "node", code), compute)
}

// GetTree memoizes store.GetTree, keyed by an empty argument since it takes
// only a view.
func (c *Cache) GetTree(view store.View, compute func() ([]store.Node, error)) ([]store.Node, error) {
	return getOrCompute(c, key(view, "tree", ""), compute)
}

// GetSubtree memoizes store.GetSubtree.
func (c *Cache) GetSubtree(view store.View, prefix string, compute func() ([]store.Node, error)) ([]store.Node, error) {
	return getOrCompute(c, key(view, "subtree", prefix), compute)
}

// GetAncestry memoizes store.GetAncestry.
func (c *Cache) GetAncestry(view store.View, nodeID string, compute func() ([]store.Node, error)) ([]store.Node, error) {
	return getOrCompute(c, key(view, "ancestry", nodeID), compute)
}

// InvalidateAll drops every cached entry in both views — the coarse path
// any create/update/delete takes (spec §5: "single-writer-on-invalidation").
func (c *Cache) InvalidateAll() {
	err := c.db.Update(func(tx *buntdb.Tx) error {
		return tx.DeleteAll()
	})
	if err != nil {
		logging.ValidateWarn("hcache: failed to invalidate all: %v", err)
	}
}

// InvalidatePrefixes drops every cached entry whose key is a prefix of any
// of the given codes, in the given view — the targeted path the Hierarchy
// Engine takes after a restructure, passing both the old and new code for
// every moved node (spec §4.11's invalidation hooks).
func (c *Cache) InvalidatePrefixes(view store.View, codes ...string) {
	if len(codes) == 0 {
		return
	}
	prefix := string(view) + "|"
	var toDelete []string
	_ = c.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(prefix+"*", func(k, _ string) bool {
			arg := argOf(k)
			for _, code := range codes {
				if isPrefixOf(arg, code) {
					toDelete = append(toDelete, k)
					break
				}
			}
			return true
		})
	})
	if len(toDelete) == 0 {
		return
	}
	err := c.db.Update(func(tx *buntdb.Tx) error {
		for _, k := range toDelete {
			if _, err := tx.Delete(k); err != nil && err != buntdb.ErrNotFound {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logging.ValidateWarn("hcache: failed to invalidate prefixes: %v", err)
		return
	}
	logging.ValidateDebug("hcache: invalidated %d entr(y/ies) for %d code(s)", len(toDelete), len(codes))
}

// argOf extracts the trailing argument segment from a "view|kind|arg" key.
func argOf(k string) string {
	parts := strings.SplitN(k, "|", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

// isPrefixOf reports whether prefix is code itself or an ancestor of code
// along dot boundaries (e.g. "A.LLM" is a prefix of "A.LLM.T.1").
func isPrefixOf(prefix, code string) bool {
	if prefix == "" {
		return false
	}
	return prefix == code || strings.HasPrefix(code, prefix+".")
}
