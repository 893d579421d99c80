// Package store implements the PersistentStore (spec §6): a debounced,
// atomically-written key/value file that survives daemon restarts. It is
// the only durable state the reconciler keeps -- everything else (routes,
// interface status) is rebuilt from publications on cold start.
package store

import (
	"bytes"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/natefinch/atomic"

	log "github.com/golang/glog"
)

// StoreDatabase is the on-disk JSON shape: a flat string/string map, the
// same representation the original store uses so existing persisted files
// stay readable across this rewrite.
type StoreDatabase struct {
	KeyVals map[string]string `json:"keyVals"`
}

// PersistentStore debounces writes behind a timer: STORE/ERASE arm it,
// LOAD never does, and Close flushes synchronously so a clean shutdown
// never loses the last write (spec §6's PersistentStore semantics).
type PersistentStore struct {
	path string

	mu       sync.Mutex
	db       StoreDatabase
	dirty    bool
	timer    *time.Timer
	debounce time.Duration
	maxDelay time.Duration
}

// Open loads path if it exists (a missing or corrupt file starts the store
// empty rather than failing the daemon -- spec §7's persistence-error
// policy), and returns a PersistentStore that saves initialDebounce after
// the first unsaved STORE/ERASE. The delay is fixed: it does not grow
// toward maxDebounce, which is kept but not used for scheduling.
func Open(path string, initialDebounce, maxDebounce time.Duration) (*PersistentStore, error) {
	s := &PersistentStore{
		path:     path,
		db:       StoreDatabase{KeyVals: map[string]string{}},
		debounce: initialDebounce,
		maxDelay: maxDebounce,
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		log.Warningf("store: failed to open %s, starting empty: %v", path, err)
		return s, nil
	}
	defer f.Close()

	var loaded StoreDatabase
	if err := json.NewDecoder(f).Decode(&loaded); err != nil {
		log.Warningf("store: failed to parse %s, starting empty: %v", path, err)
		return s, nil
	}
	if loaded.KeyVals != nil {
		s.db.KeyVals = loaded.KeyVals
	}
	return s, nil
}

// Load returns the value for key and whether it was present. It never
// arms the debounce timer.
func (s *PersistentStore) Load(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.db.KeyVals[key]
	return v, ok
}

// Store sets key to value and arms a debounced save.
func (s *PersistentStore) Store(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db.KeyVals[key] = value
	s.markDirtyLocked()
}

// Erase removes key, if present, and arms a debounced save.
func (s *PersistentStore) Erase(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.db.KeyVals[key]; !ok {
		return
	}
	delete(s.db.KeyVals, key)
	s.markDirtyLocked()
}

func (s *PersistentStore) markDirtyLocked() {
	s.dirty = true
	if s.timer != nil {
		return
	}
	s.timer = time.AfterFunc(s.debounce, s.flush)
}

func (s *PersistentStore) flush() {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	snapshot := StoreDatabase{KeyVals: make(map[string]string, len(s.db.KeyVals))}
	for k, v := range s.db.KeyVals {
		snapshot.KeyVals[k] = v
	}
	s.dirty = false
	s.timer = nil
	s.mu.Unlock()

	if err := writeAtomic(s.path, snapshot); err != nil {
		log.Errorf("store: failed to persist %s: %v", s.path, err)
	}
}

// Close cancels any pending debounce timer and performs one final
// synchronous save, so a graceful shutdown never drops the last write.
func (s *PersistentStore) Close() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	dirty := s.dirty
	snapshot := StoreDatabase{KeyVals: make(map[string]string, len(s.db.KeyVals))}
	for k, v := range s.db.KeyVals {
		snapshot.KeyVals[k] = v
	}
	s.dirty = false
	s.mu.Unlock()

	if !dirty {
		return nil
	}
	return writeAtomic(s.path, snapshot)
}

func writeAtomic(path string, db StoreDatabase) error {
	b, err := json.Marshal(db)
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(b))
}
