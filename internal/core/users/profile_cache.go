package users

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"Murmur/internal/core/notifications"
)

// ProfileInvalidator drops cached profiles after a write
type ProfileInvalidator interface {
	Invalidate(ids ...string)
}

type cachedProfile struct {
	profile   *PublicUser
	expiresAt time.Time
}

// ProfileCache is a bounded, short-lived cache of public profiles used to populate
// feeds and notifications without re-reading the same authors for every request.
// Writers invalidate the ids they touch; the TTL bounds staleness from other replicas.
type ProfileCache struct {
	repo  Repository
	cache *lru.Cache[string, cachedProfile]
	now   func() time.Time
	ttl   time.Duration
}

// NewProfileCache creates a cache holding at most size profiles for ttl each
func NewProfileCache(repo Repository, size int, ttl time.Duration) (*ProfileCache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("profile cache size must be positive, got %d", size)
	}
	cache, err := lru.New[string, cachedProfile](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile cache: %w", err)
	}
	return &ProfileCache{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

// Resolve returns the public profiles for ids, reading misses from the repository
// in one batch. Ids that do not exist are absent from the result.
func (c *ProfileCache) Resolve(ctx context.Context, ids []string) (map[string]*PublicUser, error) {
	result := make(map[string]*PublicUser, len(ids))
	now := c.now()

	var misses []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		if entry, ok := c.cache.Get(id); ok && now.Before(entry.expiresAt) {
			result[id] = entry.profile
			continue
		}
		misses = append(misses, id)
	}

	if len(misses) == 0 {
		return result, nil
	}

	found, err := c.repo.GetByIDs(ctx, misses)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	expiresAt := now.Add(c.ttl)
	for id, u := range found {
		profile := u.Public()
		result[id] = profile
		c.cache.Add(id, cachedProfile{profile: profile, expiresAt: expiresAt})
	}

	return result, nil
}

// ResolveActors projects Resolve onto the fields shown next to notifications
func (c *ProfileCache) ResolveActors(ctx context.Context, ids []string) (map[string]*notifications.Actor, error) {
	profiles, err := c.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	actors := make(map[string]*notifications.Actor, len(profiles))
	for id, p := range profiles {
		actors[id] = &notifications.Actor{
			ID:         p.ID,
			Username:   p.Username,
			ProfileImg: p.ProfileImg,
		}
	}
	return actors, nil
}

// Invalidate drops the given ids from the cache
func (c *ProfileCache) Invalidate(ids ...string) {
	for _, id := range ids {
		c.cache.Remove(id)
	}
}
