// Package diskio provides an in-memory fs.Disk used by tests, modeling
// block writes as asynchronous completions the way a real AHCI/virtio
// driver would. It uses golang.org/x/sync/errgroup instead of a bespoke
// request-queue goroutine, since this package only needs to fan out a
// batch of simulated completions and wait for all of them.
package diskio

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"sylvos/fs"
)

/// Memory is an in-memory block device: a map of block number to
/// contents, safe for concurrent use by the simulated completions
/// SyncAll fans out.
type Memory struct {
	mu     sync.RWMutex
	blocks map[int][]byte
	synced map[int][]byte
}

/// NewMemory builds an empty in-memory disk.
func NewMemory() *Memory {
	return &Memory{
		blocks: make(map[int][]byte),
		synced: make(map[int][]byte),
	}
}

/// ReadBlock returns a copy of block blockno's most recently written
/// contents (synced or not), or a zeroed block if never written.
func (m *Memory) ReadBlock(blockno int) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.blocks[blockno]; ok {
		out := make([]byte, fs.BlockSize)
		copy(out, b)
		return out
	}
	return make([]byte, fs.BlockSize)
}

/// WriteBlock stages data for block blockno; it is not guaranteed
/// durable until SyncAll completes, mirroring a real disk's write-back
/// cache.
func (m *Memory) WriteBlock(blockno int, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := make([]byte, fs.BlockSize)
	copy(b, data)
	m.blocks[blockno] = b
}

/// SyncAll fans out one simulated completion per dirty block concurrently
/// via an errgroup, waiting for all of them before returning — the same
/// async-completion shape a real driver uses for one block at a time,
/// generalized to a batch.
func (m *Memory) SyncAll() {
	m.mu.Lock()
	dirty := make(map[int][]byte, len(m.blocks))
	for k, v := range m.blocks {
		if existing, ok := m.synced[k]; !ok || string(existing) != string(v) {
			dirty[k] = v
		}
	}
	m.mu.Unlock()

	g, _ := errgroup.WithContext(context.Background())
	var mu sync.Mutex
	for k, v := range dirty {
		k, v := k, v
		g.Go(func() error {
			mu.Lock()
			m.synced[k] = v
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}
