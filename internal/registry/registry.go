// Package registry keeps at most two decoded ELF32 objects resident, keyed by
// path, with load-or-reuse semantics.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/isseis/go-elfcheck/internal/elf32"
	"github.com/isseis/go-elfcheck/internal/safefileio"
)

// Capacity is the number of objects that can be resident at once.
const Capacity = 2

// RawObject is the read-only byte view of a whole file.
type RawObject interface {
	Bytes() []byte
	Close() error
}

// Mapper opens path and returns its contents.
type Mapper func(path string) (RawObject, error)

// Object is a resident, decoded ELF32 file. It owns its RawObject until the
// registry evicts it.
type Object struct {
	*elf32.File

	path string
	raw  RawObject
	slot int
}

// Path returns the registry key of the object.
func (o *Object) Path() string {
	return o.path
}

// Slot returns the registry slot the object occupies.
func (o *Object) Slot() int {
	return o.slot
}

// Options configures a Registry.
type Options struct {
	// Mapper overrides file access. Nil uses safefileio.MapFile with FileOptions.
	Mapper      Mapper
	FileOptions safefileio.Options
	Logger      *slog.Logger
}

// Registry is a fixed two-slot cache of loaded objects. It is not safe for
// concurrent use.
type Registry struct {
	slots  [Capacity]*Object
	mapper Mapper
	logger *slog.Logger
}

// New creates an empty registry.
func New(opts Options) *Registry {
	mapper := opts.Mapper
	if mapper == nil {
		fileOpts := opts.FileOptions
		mapper = func(path string) (RawObject, error) {
			m, err := safefileio.MapFile(path, fileOpts)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{mapper: mapper, logger: logger}
}

// key normalizes path so "a.o" and "./a.o" name the same entry.
func key(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &IOError{Op: "resolve", Path: path, Err: err}
	}
	return abs, nil
}

// Load returns the resident object for path, or maps and decodes the file
// into a free slot. A resident object is returned unchanged without
// re-reading the file. When both slots hold other paths Load fails with
// ErrCapacityExceeded. A failed decode leaves the slot empty.
func (r *Registry) Load(path string) (*Object, error) {
	k, err := key(path)
	if err != nil {
		return nil, err
	}
	if obj := r.find(k); obj != nil {
		r.logger.Debug("reusing resident object", slog.String("path", k), slog.Int("slot", obj.slot))
		return obj, nil
	}

	slot := r.freeSlot()
	if slot < 0 {
		r.logger.Warn("registry full", slog.String("path", k), slog.Int("capacity", Capacity))
		return nil, fmt.Errorf("%w: cannot handle more than %d ELF files", ErrCapacityExceeded, Capacity)
	}

	raw, err := r.mapper(k)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}

	f, err := elf32.Parse(raw.Bytes())
	if err != nil {
		if closeErr := raw.Close(); closeErr != nil {
			r.logger.Warn("error releasing rejected file", slog.String("path", k), slog.Any("error", closeErr))
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	obj := &Object{File: f, path: k, raw: raw, slot: slot}
	r.slots[slot] = obj
	r.logger.Debug("object loaded",
		slog.String("path", k),
		slog.Int("slot", slot),
		slog.Int("size", f.Size()),
		slog.Int("sections", len(f.Sections)))
	return obj, nil
}

// Lookup returns the resident object for path without loading it.
func (r *Registry) Lookup(path string) (*Object, bool) {
	k, err := key(path)
	if err != nil {
		return nil, false
	}
	obj := r.find(k)
	return obj, obj != nil
}

// Unload evicts path and releases its bytes, freeing the slot for another file.
func (r *Registry) Unload(path string) error {
	k, err := key(path)
	if err != nil {
		return err
	}
	obj := r.find(k)
	if obj == nil {
		return fmt.Errorf("%w: %s", ErrNotLoaded, path)
	}
	r.slots[obj.slot] = nil
	r.logger.Debug("object unloaded", slog.String("path", k), slog.Int("slot", obj.slot))
	return obj.raw.Close()
}

// Objects returns the resident objects in slot order.
func (r *Registry) Objects() []*Object {
	objs := make([]*Object, 0, Capacity)
	for _, obj := range r.slots {
		if obj != nil {
			objs = append(objs, obj)
		}
	}
	return objs
}

// Pair returns the objects in slot 0 and slot 1. ok is false unless both
// slots are occupied.
func (r *Registry) Pair() (first, second *Object, ok bool) {
	if r.slots[0] == nil || r.slots[1] == nil {
		return nil, nil, false
	}
	return r.slots[0], r.slots[1], true
}

// Len returns the number of resident objects.
func (r *Registry) Len() int {
	return len(r.Objects())
}

// Close evicts every object and releases all mappings.
func (r *Registry) Close() error {
	var errs []error
	for i, obj := range r.slots {
		if obj == nil {
			continue
		}
		r.slots[i] = nil
		if err := obj.raw.Close(); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", obj.path, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) find(k string) *Object {
	for _, obj := range r.slots {
		if obj != nil && obj.path == k {
			return obj
		}
	}
	return nil
}

func (r *Registry) freeSlot() int {
	for i, obj := range r.slots {
		if obj == nil {
			return i
		}
	}
	return -1
}
