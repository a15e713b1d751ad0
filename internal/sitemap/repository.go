package sitemap

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Repository holds the navigation maps known to this deployment, keyed by
// domain. Lookups tolerate a "www." prefix mismatch.
type Repository struct {
	mu      sync.RWMutex
	maps    map[string]*Map
	ordered []string
}

func NewRepository() *Repository {
	return &Repository{maps: make(map[string]*Map)}
}

// LoadDir builds a repository from every .yaml/.yml map file in dir. A missing
// directory yields an empty repository.
func LoadDir(dir string) (*Repository, error) {
	repo := NewRepository()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return repo, nil
		}
		return nil, fmt.Errorf("read maps dir: %w", err)
	}

	// Deterministic registration order so the default domain is stable.
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read map file %s: %w", name, err)
		}
		var m Map
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse map file %s: %w", name, err)
		}
		if m.Domain == "" {
			return nil, fmt.Errorf("map file %s: missing domain", name)
		}
		repo.Register(&m)
	}
	return repo, nil
}

// Register adds or replaces a map. The first registered domain becomes the
// default for queries that do not name a site.
func (r *Repository) Register(m *Map) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := normalizeDomain(m.Domain)
	if _, exists := r.maps[key]; !exists {
		r.ordered = append(r.ordered, key)
	}
	r.maps[key] = m
}

// Get looks up a map by domain, tolerating a "www." prefix mismatch.
func (r *Repository) Get(domain string) (*Map, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := normalizeDomain(domain)
	if m, ok := r.maps[key]; ok {
		return m, true
	}
	if m, ok := r.maps[toggleWWW(key)]; ok {
		return m, true
	}
	return nil, false
}

// All returns every registered map in registration order. The intent parser
// uses this to advertise known sites to the language model.
func (r *Repository) All() []*Map {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Map, 0, len(r.ordered))
	for _, key := range r.ordered {
		out = append(out, r.maps[key])
	}
	return out
}

// DefaultDomain returns the first registered domain, or "" when the
// repository is empty.
func (r *Repository) DefaultDomain() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.ordered) == 0 {
		return ""
	}
	return r.maps[r.ordered[0]].Domain
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

func toggleWWW(domain string) string {
	if strings.HasPrefix(domain, "www.") {
		return strings.TrimPrefix(domain, "www.")
	}
	return "www." + domain
}
