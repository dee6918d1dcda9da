package main

import "github.com/bawdo/oql/plugins"

// pluginEntry represents an enabled plugin in the registry.
type pluginEntry struct {
	name    string                     // "timerange", "limit", "opa"
	factory func() plugins.Transformer // creates a fresh instance per dispatch
	status  func() string              // human-readable status for display
}

// pluginRegistry holds the currently enabled plugins.
type pluginRegistry struct {
	entries []pluginEntry // ordered, plugins apply in registration order
}

// register adds or replaces a plugin by name.
func (r *pluginRegistry) register(entry pluginEntry) {
	for i, e := range r.entries {
		if e.name == entry.name {
			r.entries[i] = entry
			return
		}
	}
	r.entries = append(r.entries, entry)
}

// deregister removes a plugin by name. Returns false if not found.
func (r *pluginRegistry) deregister(name string) bool {
	for i, e := range r.entries {
		if e.name == name {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return true
		}
	}
	return false
}

// deregisterAll removes all plugins.
func (r *pluginRegistry) deregisterAll() {
	r.entries = nil
}

// get looks up a plugin by name.
func (r *pluginRegistry) get(name string) (pluginEntry, bool) {
	for _, e := range r.entries {
		if e.name == name {
			return e, true
		}
	}
	return pluginEntry{}, false
}

// names returns the names of all enabled plugins.
func (r *pluginRegistry) names() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.name
	}
	return out
}

// chain instantiates every enabled plugin in registration order.
func (r *pluginRegistry) chain() plugins.Chain {
	c := make(plugins.Chain, 0, len(r.entries))
	for _, entry := range r.entries {
		c = append(c, entry.factory())
	}
	return c
}

// pluginConfigurer defines a known plugin that can be enabled via the plugin command.
type pluginConfigurer struct {
	name      string
	configure func(s *Session, args string) error
}
