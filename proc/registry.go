// Package proc implements fork/exec/spawn/waitpid/set_priority over the
// sched.Task_t/vm.Vm_t primitives: an embedded-application loader
// (images looked up by name) plus small, orthogonal helper functions
// rather than one monolithic syscall handler.
package proc

import (
	"sync"

	"sylvos/vm"
)

/// Loader resolves an embedded application name to its parsed image.
/// Binary parsing itself is an external collaborator; Loader is the
/// interface boundary exec/spawn call through.
type Loader interface {
	Lookup(name string) (*vm.Image, bool)
}

/// Registry is a static, in-memory Loader built from a name→Image map:
/// a fixed table of embedded application images resolved by name at
/// exec/spawn time.
type Registry struct {
	mu     sync.RWMutex
	images map[string]*vm.Image
}

/// NewRegistry builds an empty registry; call Add to populate it.
func NewRegistry() *Registry {
	return &Registry{images: make(map[string]*vm.Image)}
}

/// Add registers name to resolve to img.
func (r *Registry) Add(name string, img *vm.Image) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images[name] = img
}

/// Lookup satisfies Loader.
func (r *Registry) Lookup(name string) (*vm.Image, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	img, ok := r.images[name]
	return img, ok
}
