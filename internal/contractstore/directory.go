package contractstore

import (
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/contractwatch/internal/contract"
)

// WorkerDirectory resolves worker ids to display names. Entries expire after
// the configured TTL; a missing id degrades to ("", false).
type WorkerDirectory struct {
	cache *cache.Cache
}

// NewWorkerDirectory creates a directory whose entries live for ttl.
// A zero ttl keeps entries until the next Replace.
func NewWorkerDirectory(ttl time.Duration) *WorkerDirectory {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	// Cleanup interval 0: no janitor goroutine, expired entries are
	// ignored on read and dropped on Replace.
	return &WorkerDirectory{cache: cache.New(ttl, 0)}
}

// Replace swaps the directory contents for workers
func (d *WorkerDirectory) Replace(workers []contract.Worker) {
	d.cache.Flush()
	for _, w := range workers {
		d.Put(w)
	}
}

// Put adds or refreshes one worker
func (d *WorkerDirectory) Put(w contract.Worker) {
	if w.ID == "" {
		return
	}
	d.cache.Set(w.ID, w.Name, cache.DefaultExpiration)
}

// Name implements expiry.NameLookup
func (d *WorkerDirectory) Name(workerID string) (string, bool) {
	v, found := d.cache.Get(workerID)
	if !found {
		return "", false
	}
	name, ok := v.(string)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// Len returns the number of cached workers, expired ones included
func (d *WorkerDirectory) Len() int {
	return d.cache.ItemCount()
}
