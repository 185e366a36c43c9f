// Package conn keeps the MongoDB connection string that gates the remote
// backend. The string is never dialed; it is only forwarded as a header.
package conn

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/idilsaglam/tada/internal/kv"
)

const (
	// Key is the kv key holding the stored string.
	Key = "MONGODB_URI"
	// EnvVar overrides the stored string when set.
	EnvVar = "TADA_MONGODB_URI"
	// Scheme is the prefix a connection string must start with.
	Scheme = "mongodb"
)

var (
	ErrEmptyURI      = errors.New("connection string is empty")
	ErrInvalidScheme = errors.New("connection string must start with " + Scheme)
)

// State is where the gate sits.
type State int

const (
	Unset State = iota
	Configured
)

func (s State) String() string {
	if s == Configured {
		return "configured"
	}
	return "unset"
}

// Validate trims uri and checks it is non-empty with the right prefix.
func Validate(uri string) (string, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", ErrEmptyURI
	}
	if !strings.HasPrefix(uri, Scheme) {
		return "", ErrInvalidScheme
	}
	return uri, nil
}

// Mask hides everything but the scheme.
func Mask(uri string) string {
	if uri == "" {
		return ""
	}
	return Scheme + "://*****"
}

// Gate owns the connection string: in memory, backed by one kv key.
type Gate struct {
	kv *kv.Dir

	mu      sync.Mutex
	loaded  bool
	uri     string
	source  string // "env" | "file" | ""
	onClear []func()
	getenv  func(string) string
}

// NewGate returns an unset gate over dir. Nothing is read until Get.
func NewGate(dir *kv.Dir) *Gate {
	return &Gate{kv: dir, getenv: os.Getenv}
}

// OnClear registers fn to run after every Clear.
func (g *Gate) OnClear(fn func()) {
	g.mu.Lock()
	g.onClear = append(g.onClear, fn)
	g.mu.Unlock()
}

func (g *Gate) loadLocked() error {
	if g.loaded {
		return nil
	}
	if env := strings.TrimSpace(g.getenv(EnvVar)); env != "" {
		g.uri, g.source, g.loaded = env, "env", true
		return nil
	}
	b, ok, err := g.kv.Get(Key)
	if err != nil {
		return fmt.Errorf("read connection string: %w", err)
	}
	g.loaded = true
	if ok {
		g.uri, g.source = strings.TrimSpace(string(b)), "file"
	}
	return nil
}

// Get returns the configured string, or "" when unset.
func (g *Gate) Get() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.loadLocked(); err != nil {
		return "", err
	}
	return g.uri, nil
}

// State reports unset or configured. A read error counts as unset.
func (g *Gate) State() State {
	uri, err := g.Get()
	if err != nil || uri == "" {
		return Unset
	}
	return Configured
}

// Source tells where the current string came from.
func (g *Gate) Source() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	_ = g.loadLocked()
	return g.source
}

// Set validates and stores uri. On error the gate is left as it was.
func (g *Gate) Set(uri string) error {
	uri, err := Validate(uri)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.kv.Set(Key, []byte(uri)); err != nil {
		return fmt.Errorf("save connection string: %w", err)
	}
	g.uri, g.source, g.loaded = uri, "file", true
	return nil
}

// EnvOverride reports whether EnvVar is set. Clear cannot remove it, so the
// next process starts configured again.
func (g *Gate) EnvOverride() bool {
	return strings.TrimSpace(g.getenv(EnvVar)) != ""
}

// Clear forgets the string and runs the OnClear hooks.
func (g *Gate) Clear() error {
	g.mu.Lock()
	if err := g.kv.Delete(Key); err != nil {
		g.mu.Unlock()
		return fmt.Errorf("clear connection string: %w", err)
	}
	g.uri, g.source, g.loaded = "", "", true
	hooks := append([]func(){}, g.onClear...)
	g.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return nil
}
