package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Cookie is a captured browser cookie, as stored by the external credential
// capture flow. The core only reads these; it never writes sessions.
type Cookie struct {
	Name     string  `yaml:"name" json:"name"`
	Value    string  `yaml:"value" json:"value"`
	Domain   string  `yaml:"domain" json:"domain"`
	Path     string  `yaml:"path" json:"path"`
	Expires  float64 `yaml:"expires,omitempty" json:"expires,omitempty"`
	HTTPOnly bool    `yaml:"httpOnly,omitempty" json:"httpOnly,omitempty"`
	Secure   bool    `yaml:"secure,omitempty" json:"secure,omitempty"`
	SameSite string  `yaml:"sameSite,omitempty" json:"sameSite,omitempty"`
}

// Session holds the captured authentication state for one domain.
type Session struct {
	Domain  string   `yaml:"domain" json:"domain"`
	Cookies []Cookie `yaml:"cookies" json:"cookies"`
	PageURL string   `yaml:"pageUrl,omitempty" json:"pageUrl,omitempty"`
}

// Vault exposes read-only access to stored sessions, keyed by domain.
// Implementations must tolerate a "www." prefix mismatch between the stored
// key and the requested domain.
type Vault interface {
	Get(domain string) (*Session, bool)
}

// ToggleWWW returns the domain with the "www." prefix added or removed,
// whichever applies.
func ToggleWWW(domain string) string {
	if strings.HasPrefix(domain, "www.") {
		return strings.TrimPrefix(domain, "www.")
	}
	return "www." + domain
}

// MemVault is an in-memory Vault for embedding callers and tests.
type MemVault struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemVault() *MemVault {
	return &MemVault{sessions: make(map[string]*Session)}
}

// Put stores a session under its domain.
func (v *MemVault) Put(s *Session) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sessions[strings.ToLower(s.Domain)] = s
}

func (v *MemVault) Get(domain string) (*Session, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	key := strings.ToLower(strings.TrimSpace(domain))
	if s, ok := v.sessions[key]; ok {
		return s, true
	}
	if s, ok := v.sessions[ToggleWWW(key)]; ok {
		return s, true
	}
	return nil, false
}

// FileVault reads sessions from a directory of <domain>.yaml files written by
// the external capture flow. Files are loaded once at construction.
type FileVault struct {
	mem *MemVault
}

// NewFileVault loads every .yaml/.yml file in dir. A missing directory is not
// an error; it behaves as an empty vault.
func NewFileVault(dir string) (*FileVault, error) {
	vault := &FileVault{mem: NewMemVault()}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return vault, nil
		}
		return nil, fmt.Errorf("read session dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read session file %s: %w", entry.Name(), err)
		}
		var s Session
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("parse session file %s: %w", entry.Name(), err)
		}
		if s.Domain == "" {
			s.Domain = strings.TrimSuffix(entry.Name(), ext)
		}
		vault.mem.Put(&s)
	}
	return vault, nil
}

func (v *FileVault) Get(domain string) (*Session, bool) {
	return v.mem.Get(domain)
}
