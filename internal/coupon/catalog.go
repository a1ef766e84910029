package coupon

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Source yields coupons by id; the dispatcher re-validates bindings against
// it at dispatch time.
type Source interface {
	Get(id string) (Coupon, bool)
}

type catalogFile struct {
	Coupons []Coupon `yaml:"coupons"`
}

// Catalog is a file-backed coupon source that watches its file for changes.
// Rules and coupons evolve independently, so the catalog must stay live
// between deploys.
type Catalog struct {
	path     string
	mu       sync.RWMutex
	byID     map[string]Coupon
	ordered  []Coupon
	onChange []func(int)
	watcher  *fsnotify.Watcher
}

// NewCatalog creates a Catalog and performs the initial load.
func NewCatalog(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the coupon with the given id.
func (c *Catalog) Get(id string) (Coupon, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp, ok := c.byID[id]
	return cp, ok
}

// List returns all coupons in file order.
func (c *Catalog) List() []Coupon {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Coupon, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the number of loaded coupons.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ordered)
}

// OnChange registers a callback invoked with the new coupon count whenever
// the catalog reloads.
func (c *Catalog) OnChange(fn func(count int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// Reload forces an immediate re-read of the catalog file.
func (c *Catalog) Reload() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("read coupon catalog %s: %w", c.path, err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse coupon catalog %s: %w", c.path, err)
	}
	byID := make(map[string]Coupon, len(f.Coupons))
	for _, cp := range f.Coupons {
		if cp.ID == "" {
			return fmt.Errorf("coupon catalog %s: coupon with empty id", c.path)
		}
		if _, dup := byID[cp.ID]; dup {
			return fmt.Errorf("coupon catalog %s: duplicate coupon id %q", c.path, cp.ID)
		}
		byID[cp.ID] = cp
	}

	c.mu.Lock()
	c.byID = byID
	c.ordered = f.Coupons
	callbacks := make([]func(int), len(c.onChange))
	copy(callbacks, c.onChange)
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(len(f.Coupons))
	}
	return nil
}

// Watch starts a background goroutine that hot-reloads the catalog on file
// changes. Call the returned stop function to clean up.
func (c *Catalog) Watch() (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("coupon watcher: %w", err)
	}
	if err := w.Add(c.path); err != nil {
		w.Close()
		return nil, fmt.Errorf("coupon watcher add %s: %w", c.path, err)
	}
	c.watcher = w

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					// Keep serving the old catalog if the new file is broken.
					_ = c.Reload()
				}
			case <-w.Errors:
				// Ignore watcher errors.
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}
