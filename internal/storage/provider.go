// Package storage defines the folder provider abstraction the wipe engine
// works against. The engine never assumes a native path: it lists, opens,
// measures and deletes through a Provider.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
)

// ErrNotFound is returned when a handle no longer resolves to an entry.
var ErrNotFound = errors.New("entry not found")

// ErrOutsideRoot is returned for handles whose path escapes the provider root.
var ErrOutsideRoot = errors.New("path escapes provider root")

// Handle is an opaque reference to an entry of the target tree.
type Handle struct {
	// Name is the base name of the entry.
	Name string
	// Path is the slash-separated path relative to the provider root.
	// The root itself has Path ".".
	Path string
	// Size is the byte length observed when the handle was listed.
	Size int64
	// Dir reports whether the entry is a directory.
	Dir bool
}

// IsRoot reports whether h refers to the provider root.
func (h Handle) IsRoot() bool {
	return h.Path == "" || h.Path == "."
}

// Child builds the handle of a direct child of h.
func (h Handle) Child(name string, size int64, dir bool) Handle {
	return Handle{
		Name: name,
		Path: path.Join(h.Path, name),
		Size: size,
		Dir:  dir,
	}
}

// Channel is a scoped writable byte channel over one file. Close releases
// the file and any lock taken on it.
type Channel interface {
	io.Writer
	io.Seeker
	io.Closer
	// Sync forces previously written bytes to stable storage.
	Sync() error
}

// Provider is the folder capability consumed by the wipe engine.
type Provider interface {
	// Root returns the handle of the tree root.
	Root(ctx context.Context) (Handle, error)
	// ListChildren returns the direct children of dir ordered by name.
	ListChildren(ctx context.Context, dir Handle) ([]Handle, error)
	// OpenReadWrite opens f for exclusive read-write access.
	OpenReadWrite(ctx context.Context, f Handle) (Channel, error)
	// Length returns the current byte length of f.
	Length(ctx context.Context, f Handle) (int64, error)
	// Delete removes a file or an empty directory.
	Delete(ctx context.Context, h Handle) error
}
