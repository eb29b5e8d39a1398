package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrMirrorTooLarge is returned by Mirror when the tree exceeds the byte cap.
var ErrMirrorTooLarge = errors.New("tree too large to mirror in memory")

// Mirror copies the shape of src into a MemoryProvider: directories and
// zero-filled files of the same sizes. Unlistable subdirectories keep their
// listing error as a fault so a run against the mirror reports them the same
// way. Content is never read from src.
func Mirror(ctx context.Context, src Provider, maxBytes int64) (*MemoryProvider, error) {
	root, err := src.Root(ctx)
	if err != nil {
		return nil, err
	}
	m := NewMemoryProvider()
	var total int64
	var walk func(dir Handle) error
	walk = func(dir Handle) error {
		children, err := src.ListChildren(ctx, dir)
		if err != nil {
			if dir.IsRoot() {
				return err
			}
			m.AddDir(dir.Path)
			m.SetFault(dir.Path, Fault{List: err})
			return nil
		}
		if !dir.IsRoot() {
			m.AddDir(dir.Path)
		}
		for _, c := range children {
			if c.Dir {
				if err := walk(c); err != nil {
					return err
				}
				continue
			}
			total += c.Size
			if maxBytes > 0 && total > maxBytes {
				return fmt.Errorf("%w: more than %d bytes", ErrMirrorTooLarge, maxBytes)
			}
			m.AddFile(c.Path, make([]byte, c.Size))
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return m, nil
}
