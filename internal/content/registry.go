package content

import (
	"fmt"
	"sort"
	"sync"

	"github.com/commonshub/commonshub-web/internal/pathutil"
	"github.com/commonshub/commonshub-web/internal/schema"
)

// Registry is the filename-to-descriptor table. Every loadable document is
// registered exactly once, at startup; after that the table is read-only.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*schema.Descriptor
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*schema.Descriptor)}
}

// Register binds filename to desc. It panics on a duplicate or unsafe
// filename: both are programmer errors in the static content table, not
// runtime conditions.
func (r *Registry) Register(filename string, desc *schema.Descriptor) {
	if !pathutil.SafeRelative(filename) {
		panic(fmt.Sprintf("content: unsafe registry filename %q", filename))
	}
	if desc == nil {
		panic(fmt.Sprintf("content: nil descriptor for %q", filename))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[filename]; ok {
		panic(fmt.Sprintf("content: duplicate registry filename %q", filename))
	}
	r.entries[filename] = desc
}

// Lookup returns the descriptor registered for filename, if any.
func (r *Registry) Lookup(filename string) (*schema.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entries[filename]
	return d, ok
}

// Names returns every registered filename in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered documents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
