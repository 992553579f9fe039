package domain

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrStaleCheckout is returned by Commit when the document changed after
// the copy was checked out.
var ErrStaleCheckout = errors.New("document changed since checkout")

// Document serializes access to one Engine. Readers share the lock;
// Mutate runs against a private copy and swaps it in only when fn
// succeeds, so a failed edit leaves no trace.
type Document struct {
	mu      sync.RWMutex
	eng     *Engine
	version uint64
}

// NewDocument takes ownership of e.
func NewDocument(e *Engine) *Document {
	return &Document{eng: e}
}

// View runs fn with shared access. fn must not retain or mutate e.
func (d *Document) View(fn func(e *Engine) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return fn(d.eng)
}

// Mutate runs fn on a copy of the engine and commits the copy if fn
// returns nil.
func (d *Document) Mutate(fn func(e *Engine) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	next := d.eng.Clone()
	if err := fn(next); err != nil {
		return err
	}
	d.eng = next
	d.version++
	return nil
}

// Checkout returns a private copy of the engine and the document version
// it was taken at. Work on the copy holds no lock; Commit swaps it in.
func (d *Document) Checkout() (*Engine, uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.eng.Clone(), d.version
}

// Commit swaps in e if the document is still at version. Otherwise it
// returns ErrStaleCheckout and leaves the document unchanged.
func (d *Document) Commit(version uint64, e *Engine) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.version != version {
		return ErrStaleCheckout
	}
	d.eng = e
	d.version++
	return nil
}

// Snapshot returns a deep copy of the current engine.
func (d *Document) Snapshot() *Engine {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.eng.Clone()
}

// Replace swaps in a new engine, for example after loading from storage.
func (d *Document) Replace(e *Engine) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.eng = e
	d.version++
}

// Logger returns the engine's logger.
func (d *Document) Logger() *slog.Logger {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.eng.logger
}
