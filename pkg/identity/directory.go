// Package identity resolves voter addresses to display names.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/canopy-network/gravityx/pkg/utils"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const (
	DefaultCacheSize = 10000
	DefaultHitTTL    = time.Hour
	DefaultMissTTL   = 10 * time.Minute
)

// Directory maps lower-cased addresses to usernames. Addresses without a username are left
// out of the result.
type Directory interface {
	ResolveUsernames(ctx context.Context, addresses []string) (map[string]string, error)
}

type entry struct {
	name string
	at   time.Time
}

// Cached fronts a Directory with an LRU. Names are kept for hitTTL so renames show up
// eventually. Misses are cached too, for missTTL, so top voters
// without a username do not hit the store on every snapshot.
type Cached struct {
	next    Directory
	cache   *lru.Cache[string, entry]
	hitTTL  time.Duration
	missTTL time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewCached wraps next with a cache of the given size. Non-positive values take the defaults.
func NewCached(next Directory, size int, hitTTL, missTTL time.Duration, logger *zap.Logger) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if hitTTL <= 0 {
		hitTTL = DefaultHitTTL
	}
	if missTTL <= 0 {
		missTTL = DefaultMissTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("identity cache: %w", err)
	}
	return &Cached{next: next, cache: cache, hitTTL: hitTTL, missTTL: missTTL, now: time.Now, logger: logger}, nil
}

// ResolveUsernames implements Directory.
func (c *Cached) ResolveUsernames(ctx context.Context, addresses []string) (map[string]string, error) {
	keys := utils.LowerDedup(addresses)
	out := make(map[string]string, len(keys))

	now := c.now()
	missing := make([]string, 0, len(keys))
	for _, k := range keys {
		e, ok := c.cache.Get(k)
		switch {
		case !ok:
			missing = append(missing, k)
		case e.name != "" && now.Sub(e.at) < c.hitTTL:
			out[k] = e.name
		case e.name == "" && now.Sub(e.at) < c.missTTL:
			// known miss
		default:
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	found, err := c.next.ResolveUsernames(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, k := range missing {
		name := found[k]
		c.cache.Add(k, entry{name: name, at: now})
		if name != "" {
			out[k] = name
		}
	}

	c.logger.Debug("Resolved usernames",
		zap.Int("requested", len(keys)),
		zap.Int("fetched", len(missing)),
		zap.Int("resolved", len(out)))
	return out, nil
}

// Len returns the number of cached entries, hits and misses alike.
func (c *Cached) Len() int {
	return c.cache.Len()
}
