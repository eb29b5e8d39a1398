package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// LocalProvider exposes a native directory tree. All access goes through an
// os.Root so that no handle can reach outside the chosen folder.
type LocalProvider struct {
	dir  string
	root *os.Root
}

// NewLocalProvider opens dir as the provider root.
func NewLocalProvider(dir string) (*LocalProvider, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("open root %s: %w", abs, err)
	}
	return &LocalProvider{dir: abs, root: root}, nil
}

// Dir returns the absolute path of the provider root.
func (p *LocalProvider) Dir() string {
	return p.dir
}

// Close releases the root directory handle.
func (p *LocalProvider) Close() error {
	return p.root.Close()
}

func (p *LocalProvider) Root(ctx context.Context) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}
	info, err := p.root.Lstat(".")
	if err != nil {
		return Handle{}, fmt.Errorf("stat root %s: %w", p.dir, err)
	}
	if !info.IsDir() {
		return Handle{}, fmt.Errorf("root %s is not a directory", p.dir)
	}
	return Handle{Name: filepath.Base(p.dir), Path: ".", Dir: true}, nil
}

func (p *LocalProvider) ListChildren(ctx context.Context, dir Handle) ([]Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := localName(dir)
	if err != nil {
		return nil, err
	}
	f, err := p.root.Open(name)
	if err != nil {
		return nil, mapNotExist(err)
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir.Path, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	children := make([]Handle, 0, len(entries))
	for _, e := range entries {
		// Симлинки никогда не разыменовываются: это лист нулевой длины.
		if e.Type()&fs.ModeSymlink != 0 {
			children = append(children, dir.Child(e.Name(), 0, false))
			continue
		}
		info, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s/%s: %w", dir.Path, e.Name(), err)
		}
		size := int64(0)
		if !info.IsDir() {
			size = info.Size()
		}
		children = append(children, dir.Child(e.Name(), size, info.IsDir()))
	}
	return children, nil
}

func (p *LocalProvider) OpenReadWrite(ctx context.Context, f Handle) (Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := localName(f)
	if err != nil {
		return nil, err
	}
	info, err := p.root.Lstat(name)
	if err != nil {
		return nil, mapNotExist(err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", f.Path)
	}
	file, err := p.root.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		return nil, mapNotExist(err)
	}
	if err := lockExclusive(file); err != nil {
		file.Close()
		return nil, fmt.Errorf("lock %s: %w", f.Path, err)
	}
	return &localChannel{File: file}, nil
}

func (p *LocalProvider) Length(ctx context.Context, f Handle) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	name, err := localName(f)
	if err != nil {
		return 0, err
	}
	info, err := p.root.Lstat(name)
	if err != nil {
		return 0, mapNotExist(err)
	}
	if !info.Mode().IsRegular() {
		return 0, nil
	}
	return info.Size(), nil
}

func (p *LocalProvider) Delete(ctx context.Context, h Handle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.IsRoot() {
		return fmt.Errorf("refusing to delete provider root")
	}
	name, err := localName(h)
	if err != nil {
		return err
	}
	if err := p.root.Remove(name); err != nil {
		return mapNotExist(err)
	}
	return nil
}

// localChannel releases the advisory lock before closing the descriptor.
type localChannel struct {
	*os.File
	closed bool
}

func (c *localChannel) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	unlockErr := unlock(c.File)
	if err := c.File.Close(); err != nil {
		return err
	}
	return unlockErr
}

func localName(h Handle) (string, error) {
	if h.IsRoot() {
		return ".", nil
	}
	name := filepath.FromSlash(h.Path)
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%s: %w", h.Path, ErrOutsideRoot)
	}
	return name, nil
}

func mapNotExist(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
