package domain

import (
	"slices"
	"sync"
	"time"
)

// Asset is a file in the in-flight asset set of a compilation.
type Asset struct {
	Name         string   `json:"name"`
	SourcePath   string   `json:"sourcePath"`
	Content      []byte   `json:"content"`
	Hash         string   `json:"hash"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Size returns the content length in bytes.
func (a *Asset) Size() int {
	return len(a.Content)
}

// Compilation is the state of one pipeline run of a Build.
type Compilation struct {
	Build     string
	StartedAt time.Time

	mu       sync.Mutex
	order    []string
	assets   map[string]*Asset
	errors   []Message
	warnings []Message
	infos    []Message
}

// NewCompilation creates an empty compilation for the named Build.
func NewCompilation(build string, startedAt time.Time) *Compilation {
	return &Compilation{
		Build:     build,
		StartedAt: startedAt,
		assets:    make(map[string]*Asset),
	}
}

// EmitAsset adds or replaces an asset, keeping first-insertion order.
func (c *Compilation) EmitAsset(a *Asset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.assets[a.Name]; !exists {
		c.order = append(c.order, a.Name)
	}
	c.assets[a.Name] = a
}

// DeleteAsset removes an asset by name.
func (c *Compilation) DeleteAsset(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.assets[name]; !exists {
		return
	}
	delete(c.assets, name)
	c.order = slices.DeleteFunc(c.order, func(n string) bool { return n == name })
}

// Asset returns the named asset.
func (c *Compilation) Asset(name string) (*Asset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.assets[name]
	return a, ok
}

// Assets returns the assets in insertion order.
func (c *Compilation) Assets() []*Asset {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Asset, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.assets[name])
	}
	return out
}

// AddDiagnostic appends a message to the list matching its severity.
// Unknown and reserved severities land in the warning list.
func (c *Compilation) AddDiagnostic(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch m.Severity() {
	case SeverityInfo:
		c.infos = append(c.infos, m)
	case SeverityError:
		c.errors = append(c.errors, m)
	default:
		c.warnings = append(c.warnings, m)
	}
}

// Errors returns a copy of the compilation's error list.
func (c *Compilation) Errors() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.errors)
}

// Warnings returns a copy of the compilation's warning list.
func (c *Compilation) Warnings() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.warnings)
}

// Infos returns a copy of the compilation's info list.
func (c *Compilation) Infos() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.infos)
}

// HasErrors reports whether any error was recorded against the compilation.
func (c *Compilation) HasErrors() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors) > 0
}
