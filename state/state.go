// Package state tracks message content hashes within a single conversion
// run so duplicate entries across archive folders can be skipped. Nothing
// is persisted: a conversion run leaves no state behind.
package state

import (
	"crypto/sha256"
	"encoding/base64"
	"sync"
)

// Hash returns the content hash used for duplicate detection.
func Hash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Tracker records which message hashes have already been processed.
type Tracker interface {
	AlreadyProcessed(hash string) bool
	MarkProcessed(hash, entry string)
}

// MemoryTracker is the in-run Tracker implementation.
type MemoryTracker struct {
	mu   sync.Mutex
	seen map[string]string
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{seen: make(map[string]string)}
}

func (m *MemoryTracker) AlreadyProcessed(hash string) bool {
	if hash == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.seen[hash]
	return ok
}

func (m *MemoryTracker) MarkProcessed(hash, entry string) {
	if hash == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[hash]; !ok {
		m.seen[hash] = entry
	}
}

// Snapshot returns the number of distinct hashes seen.
func (m *MemoryTracker) Snapshot() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
