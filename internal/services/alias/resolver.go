// Package alias tracks the rename history of tasks so execution records
// stored under a task's old name stay attached to its current identity.
package alias

import (
	"log/slog"
	"sort"

	"github.com/riordanpawley/taskband/internal/domain"
)

// Store persists the alias-chain document, a JSON mapping from current
// name to the ordered sequence of former names.
type Store interface {
	Load() (map[string][]string, error)
	Save(chains map[string][]string) error
}

// Resolver owns a session-scoped cache of rename chains.
//
// The cache is the source of truth for the session: if a Save fails the
// error is reported to the caller but the in-memory state stands, so
// lookups stay consistent until the process exits.
type Resolver struct {
	store  Store
	chains map[string][]string
	loaded bool
	logger *slog.Logger
}

// NewResolver creates a resolver backed by the given store
func NewResolver(store Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		chains: make(map[string][]string),
		logger: logger,
	}
}

// Load populates the cache from the store. Safe to call again to reload.
func (r *Resolver) Load() error {
	chains, err := r.store.Load()
	if err != nil {
		return &domain.AliasError{Op: "load", Err: err}
	}
	if chains == nil {
		chains = make(map[string][]string)
	}
	r.chains = chains
	r.loaded = true
	return nil
}

// AddAlias records that the task previously known as oldName is now
// newName. If oldName already carries a chain of its own, that chain is
// spliced in ahead of oldName so the rename carries transitive history.
// Duplicates are suppressed, insertion order preserved.
//
// A persistence failure leaves the cache updated and returns the error
// for the host to surface as a warning.
func (r *Resolver) AddAlias(newName, oldName string) error {
	if newName == "" || oldName == "" || newName == oldName {
		return nil
	}
	r.ensureLoaded()

	merged := append([]string{}, r.chains[newName]...)
	if prior, ok := r.chains[oldName]; ok {
		merged = append(merged, prior...)
		delete(r.chains, oldName)
	}
	merged = append(merged, oldName)

	r.chains[newName] = dedupe(merged, newName)
	r.logger.Debug("alias recorded", "new", newName, "old", oldName, "chain", r.chains[newName])

	if err := r.store.Save(r.chains); err != nil {
		return &domain.AliasError{Op: "save", Name: newName, Err: err}
	}
	return nil
}

// Aliases returns the former names of name, empty when none are known.
func (r *Resolver) Aliases(name string) []string {
	r.ensureLoaded()
	return r.chains[name]
}

// CurrentName resolves a historical name to the name now in use.
//
// The chain graph can contain cycles (renames that eventually point back
// at the name being searched), so the walk keeps a visited set; on
// detecting a cycle it returns the first matching key found rather than
// looping. Returns false when no chain references oldName.
func (r *Resolver) CurrentName(oldName string) (string, bool) {
	r.ensureLoaded()

	first := ""
	current := oldName
	visited := make(map[string]bool)

	for {
		key, ok := r.chainContaining(current)
		if !ok {
			break
		}
		if visited[key] {
			return first, true
		}
		visited[key] = true
		if first == "" {
			first = key
		}
		// The found key may itself appear in a newer chain; keep walking.
		current = key
	}

	if current == oldName {
		return "", false
	}
	return current, true
}

// chainContaining finds the chain whose alias sequence includes name.
// Keys are scanned in sorted order so resolution is deterministic.
func (r *Resolver) chainContaining(name string) (string, bool) {
	keys := make([]string, 0, len(r.chains))
	for key := range r.chains {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, a := range r.chains[key] {
			if a == name {
				return key, true
			}
		}
	}
	return "", false
}

func (r *Resolver) ensureLoaded() {
	if r.loaded {
		return
	}
	if err := r.Load(); err != nil {
		r.logger.Warn("alias chains unavailable, starting empty", "error", err)
		r.chains = make(map[string][]string)
		r.loaded = true
	}
}

// dedupe drops repeated entries and any entry equal to self, preserving
// first-occurrence order.
func dedupe(chain []string, self string) []string {
	seen := make(map[string]bool, len(chain))
	out := chain[:0]
	for _, name := range chain {
		if name == self || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
