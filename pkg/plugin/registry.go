package plugin

import (
	types "PaletteForge/pkg"
	"fmt"
	"sort"
	"sync"
)

// Registry holds the plugins available to a run, keyed by name
type Registry struct {
	plugins map[string]Plugin
	mu      sync.RWMutex
}

// Binding pairs a registered plugin with the config entry that enabled it
type Binding struct {
	Plugin Plugin
	Config map[string]interface{}
}

func NewRegistry() *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
	}
}

// Register adds a plugin. Names must be unique and non-empty.
func (r *Registry) Register(plugin Plugin) error {
	if plugin == nil {
		return fmt.Errorf("cannot register nil plugin")
	}

	name := plugin.Name()
	if name == "" {
		return fmt.Errorf("plugin name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[name]; exists {
		return fmt.Errorf("plugin %s is already registered", name)
	}

	r.plugins[name] = plugin
	return nil
}

func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugin, exists := r.plugins[name]
	return plugin, exists
}

// List returns the registered plugin names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve maps the enabled entries of configs to registered plugins, in
// config order, validating each entry's settings. Disabled entries are
// skipped; an unknown or invalid enabled entry is an error.
func (r *Registry) Resolve(configs []types.PluginConfig) ([]Binding, error) {
	bindings := make([]Binding, 0, len(configs))
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		p, ok := r.Get(cfg.Name)
		if !ok {
			return nil, fmt.Errorf("plugin %s not found in registry", cfg.Name)
		}
		if err := p.Validate(cfg.Config); err != nil {
			return nil, fmt.Errorf("plugin %s config validation failed: %w", cfg.Name, err)
		}
		bindings = append(bindings, Binding{Plugin: p, Config: cfg.Config})
	}
	return bindings, nil
}
