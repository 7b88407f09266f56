package oddsapi

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/GoPolymarket/polymarket-trader/internal/store"
)

// cacheTTL bounds how stale a cached sport's odds can be before Get
// reports them as not fresh (spec §9 odds-cache side-file).
const cacheTTL = 5 * time.Minute

type cacheEntry struct {
	sport    Sport
	fetchedAt time.Time
}

// Cache holds the most recent odds per event, refreshed from the Odds
// API on demand and mirrored to disk so a restart doesn't start cold.
// Mirrors marketcache.Cache's atomic-snapshot idiom, generalized from a
// market-client poll to an odds-client poll with a TTL gate.
type Cache struct {
	client *Client
	dir    string

	ptr atomic.Pointer[map[string]cacheEntry]
}

func NewCache(client *Client, dir string) *Cache {
	c := &Cache{client: client, dir: dir}
	empty := make(map[string]cacheEntry)
	c.ptr.Store(&empty)
	return c
}

// Load restores the cache from the odds-cache side-file, if present.
func (c *Cache) Load() error {
	data, savedAt, ok, err := store.Load[map[string]Sport](c.dir, store.OddsCacheFile)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	entries := make(map[string]cacheEntry, len(data))
	for id, s := range data {
		entries[id] = cacheEntry{sport: s, fetchedAt: savedAt}
	}
	c.ptr.Store(&entries)
	return nil
}

// Persist snapshots the current cache to disk.
func (c *Cache) Persist(now time.Time) error {
	entries := *c.ptr.Load()
	out := make(map[string]Sport, len(entries))
	for id, e := range entries {
		out[id] = e.sport
	}
	return store.Save(c.dir, store.OddsCacheFile, out, now)
}

// Refresh fetches sportKey's odds on every call, merging results into
// the cache keyed by event ID. Freshness against cacheTTL is checked
// per event by Get, not here.
func (c *Cache) Refresh(ctx context.Context, sportKey string, markets []MarketKey, now time.Time) error {
	events, err := c.client.ListEvents(ctx, sportKey, markets)
	if err != nil {
		log.Printf("oddsapi: refresh %s: %v", sportKey, err)
		return err
	}

	prev := *c.ptr.Load()
	next := make(map[string]cacheEntry, len(prev)+len(events))
	for k, v := range prev {
		next[k] = v
	}
	for _, ev := range events {
		next[ev.ID] = cacheEntry{sport: ev, fetchedAt: now}
	}
	c.ptr.Store(&next)
	return nil
}

// Get returns the cached odds for an event, reporting whether the
// cached copy is fresh enough to use (within cacheTTL of now).
func (c *Cache) Get(eventID string, now time.Time) (Sport, bool) {
	entries := *c.ptr.Load()
	e, ok := entries[eventID]
	if !ok {
		return Sport{}, false
	}
	return e.sport, now.Sub(e.fetchedAt) <= cacheTTL
}

// All returns every cached event regardless of freshness.
func (c *Cache) All() []Sport {
	entries := *c.ptr.Load()
	out := make([]Sport, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.sport)
	}
	return out
}
