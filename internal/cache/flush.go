package cache

import (
	"context"
	"encoding/json"
	"time"

	"memberdesk/internal/domain"
	dErrors "memberdesk/pkg/domain-errors"
)

// Per-collection write coalescing. The contract:
//
//  1. At most one persistence request per collection is in flight.
//  2. A write that lands while a request is in flight only marks the
//     entry dirty; when the in-flight request settles, the current cache
//     value is re-snapshotted and a new request is scheduled. The skipped
//     intermediate values are never sent.
//  3. Failures are reported out-of-band and never roll back memory.
//  4. No ordering guarantee between collections.

// scheduleLocked is called with c.mu held after every in-memory mutation.
func (c *Cache) scheduleLocked(name domain.CollectionName) {
	entry := c.flush[name]
	if entry == nil {
		entry = &flushEntry{}
		c.flush[name] = entry
	}
	if entry.inFlight {
		entry.dirty = true
		c.metrics.RecordPersistCoalesced(name.String())
		return
	}
	entry.inFlight = true
	entry.dirty = false
	snapshot := domain.CloneRecords(c.data[name])
	go c.persist(name, snapshot)
}

// persist pushes one snapshot to the store, retrying with capped backoff,
// then re-enters the scheduler to pick up any write that landed meanwhile.
func (c *Cache) persist(name domain.CollectionName, snapshot []json.RawMessage) {
	err := c.putWithRetry(name, snapshot)
	if err != nil {
		c.metrics.RecordPersistFailure(name.String())
		c.logger.Error("persist failed, server copy is stale until next successful persist",
			"collection", name.String(),
			"error", err.Error(),
		)
		if c.onPersistError != nil {
			c.onPersistError(name, dErrors.Wrap(dErrors.CodePersistence, "persist failed", err))
		}
	}

	c.mu.Lock()
	entry := c.flush[name]
	entry.inFlight = false
	if entry.dirty {
		// A write landed while this request was in flight. Re-schedule
		// with the current value, not the one the write observed.
		c.scheduleLocked(name)
	} else {
		c.cond.Broadcast()
	}
	c.mu.Unlock()
}

func (c *Cache) putWithRetry(name domain.CollectionName, snapshot []json.RawMessage) error {
	var err error
	backoff := c.retryBackoff
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		c.metrics.RecordPersistAttempt(name.String())
		ctx, cancel := context.WithTimeout(context.Background(), c.persistTimeout)
		err = c.persister.Put(ctx, name, snapshot)
		cancel()
		if err == nil {
			return nil
		}
		if attempt < c.maxAttempts {
			c.logger.Warn("persist attempt failed, retrying",
				"collection", name.String(),
				"attempt", attempt,
				"error", err.Error(),
			)
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return err
}
