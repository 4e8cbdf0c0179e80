// (c) Copyright 2021 Hewlett Packard Enterprise Development LP

package zonemanager

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/hpe-storage/fc-zone-libs/config"
	log "github.com/hpe-storage/fc-zone-libs/logger"
	"github.com/hpe-storage/fc-zone-libs/model"
	"github.com/hpe-storage/fc-zone-libs/pkg/dbservice"
	"github.com/hpe-storage/fc-zone-libs/pkg/dbservice/etcd"
)

const (
	refCountKeyPrefix = "zonerefcount/"
	refCountLockTTL   = 30 // seconds
)

// RefCounter tracks how many attachments currently rely on a given (initiator, target)
// connection on one fabric.  Only the first reference should zone and only the last
// dereference should unzone; everything in between is bookkeeping.  Counts are per fabric:
// the same pair visible on two fabrics is two independent connections, each needing its own
// zoning.
type RefCounter interface {
	// Increment bumps the pair's count on the fabric and reports whether this was the first
	// reference
	Increment(fabric, initiator, target string) (bool, error)
	// Decrement drops the pair's count on the fabric and reports whether it reached zero
	Decrement(fabric, initiator, target string) (bool, error)
}

// NewRefCounter builds the reference counter selected by the configuration
func NewRefCounter(cfg *config.Config) (RefCounter, error) {
	switch cfg.RefCountStore {
	case config.RefCountStoreMemory:
		return NewMemoryRefCounter(), nil
	case config.RefCountStoreNone:
		return &noopRefCounter{}, nil
	case config.RefCountStoreEtcd:
		endPoints := cfg.EtcdEndpoints
		if len(endPoints) == 0 {
			endPoints = []string{"localhost:" + etcd.DefaultPort}
		}
		dbClient, err := etcd.NewClient(endPoints, etcd.DefaultVersion)
		if err != nil {
			return nil, err
		}
		return &etcdRefCounter{db: dbClient}, nil
	}
	return nil, fmt.Errorf("unknown refcount store %q", cfg.RefCountStore)
}

// MemoryRefCounter counts references in process memory.  Counts do not survive a restart, so a
// restarted service treats every attach as the first; the driver's snapshot diffing keeps that
// safe (re-zoning an existing zone is a no-op), but a detach after restart may unzone a
// connection another attachment still uses.
type MemoryRefCounter struct {
	mutex  sync.Mutex
	counts map[string]int
}

var _ RefCounter = &MemoryRefCounter{}

// NewMemoryRefCounter returns an empty in-memory reference counter
func NewMemoryRefCounter() *MemoryRefCounter {
	return &MemoryRefCounter{counts: make(map[string]int)}
}

func (r *MemoryRefCounter) Increment(fabric, initiator, target string) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	key := refCountKey(fabric, initiator, target)
	r.counts[key]++
	return r.counts[key] == 1, nil
}

func (r *MemoryRefCounter) Decrement(fabric, initiator, target string) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	key := refCountKey(fabric, initiator, target)
	count := r.counts[key] - 1
	if count <= 0 {
		delete(r.counts, key)
		return true, nil
	}
	r.counts[key] = count
	return false, nil
}

// noopRefCounter disables admission filtering: every add zones and every delete unzones.
// Concurrent multi-attach to the same target can then remove a zone prematurely; the store is
// offered for deployments that guarantee single attachment per connection.
type noopRefCounter struct{}

var _ RefCounter = &noopRefCounter{}

func (r *noopRefCounter) Increment(fabric, initiator, target string) (bool, error) {
	return true, nil
}

func (r *noopRefCounter) Decrement(fabric, initiator, target string) (bool, error) {
	return true, nil
}

// etcdRefCounter keeps counts durable in etcd so they survive restarts and are shared between
// service replicas.  Each read-modify-write runs under a per-pair distributed lock.
type etcdRefCounter struct {
	db dbservice.DBService
}

var _ RefCounter = &etcdRefCounter{}

func (r *etcdRefCounter) Increment(fabric, initiator, target string) (bool, error) {
	key := refCountKey(fabric, initiator, target)
	lck, err := r.db.WaitAcquireLock("lock-"+key, refCountLockTTL)
	if err != nil {
		return false, err
	}
	defer r.db.ReleaseLock(lck)

	count, err := r.count(key)
	if err != nil {
		return false, err
	}
	count++
	if err := r.db.Put(key, strconv.Itoa(count)); err != nil {
		return false, err
	}
	log.Debugf("refcount %s incremented to %d", key, count)
	return count == 1, nil
}

func (r *etcdRefCounter) Decrement(fabric, initiator, target string) (bool, error) {
	key := refCountKey(fabric, initiator, target)
	lck, err := r.db.WaitAcquireLock("lock-"+key, refCountLockTTL)
	if err != nil {
		return false, err
	}
	defer r.db.ReleaseLock(lck)

	count, err := r.count(key)
	if err != nil {
		return false, err
	}
	count--
	if count <= 0 {
		if err := r.db.Delete(key); err != nil {
			return false, err
		}
		log.Debugf("refcount %s dropped to zero", key)
		return true, nil
	}
	if err := r.db.Put(key, strconv.Itoa(count)); err != nil {
		return false, err
	}
	log.Debugf("refcount %s decremented to %d", key, count)
	return false, nil
}

func (r *etcdRefCounter) count(key string) (int, error) {
	value, err := r.db.Get(key)
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, nil
	}
	count, err := strconv.Atoi(*value)
	if err != nil {
		return 0, fmt.Errorf("corrupt refcount at %s: %v", key, err)
	}
	return count, nil
}

// Keys carry the fabric so each fabric's connection is counted independently, and use raw WWN
// form so colon and raw spellings of the same port share one count
func refCountKey(fabric, initiator, target string) string {
	return refCountKeyPrefix + fabric + "/" + model.RawWwn(initiator) + "/" + model.RawWwn(target)
}
