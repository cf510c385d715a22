package role

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/grantd/grantd/internal/logger"
)

// Definition is one entry in the roles file.
type Definition struct {
	Name       string `yaml:"name"`
	Capability string `yaml:"capability,omitempty"`
}

type rolesFile struct {
	Roles []Definition `yaml:"roles"`
}

// Registry maps role names to availability providers. Definitions come
// from a YAML file and can be hot-reloaded while the daemon runs.
type Registry struct {
	caps CapabilitySource

	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry(caps CapabilitySource) *Registry {
	return &Registry{
		caps:      caps,
		providers: make(map[string]Provider),
	}
}

// LoadFile replaces the registry's definitions with those in path.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read roles file: %w", err)
	}
	var f rolesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse roles file: %w", err)
	}

	providers := make(map[string]Provider, len(f.Roles))
	for _, def := range f.Roles {
		if def.Name == "" {
			return fmt.Errorf("roles file: entry with empty name")
		}
		if def.Capability == "" {
			providers[def.Name] = alwaysAvailable{}
		} else {
			providers[def.Name] = NewCapabilityProvider(r.caps, def.Capability)
		}
	}

	r.mu.Lock()
	r.providers = providers
	r.mu.Unlock()
	return nil
}

// Register adds or replaces a single role provider.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	r.providers[name] = p
	r.mu.Unlock()
}

// IsAvailable evaluates the named role's provider. Unknown roles are an
// error, not a silent false.
func (r *Registry) IsAvailable(ctx context.Context, name, user string) (bool, error) {
	r.mu.RLock()
	p, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("unknown role: %q", name)
	}
	return p.IsAvailable(ctx, user)
}

// Names returns the registered role names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Watch reloads the roles file whenever it changes, until ctx is
// cancelled. Reload failures are logged and the previous definitions stay
// in effect.
func (r *Registry) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := r.LoadFile(path); err != nil {
					logger.Warn("roles reload failed", "path", path, "error", err)
					continue
				}
				logger.Info("roles reloaded", "path", path, "count", len(r.Names()))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("roles watcher error", "error", err)
			}
		}
	}()
	return nil
}
