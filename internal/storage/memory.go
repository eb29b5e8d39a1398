package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
)

// OpKind names a journaled provider operation.
type OpKind string

const (
	OpOpen   OpKind = "open"
	OpSeek   OpKind = "seek"
	OpWrite  OpKind = "write"
	OpSync   OpKind = "sync"
	OpClose  OpKind = "close"
	OpDelete OpKind = "delete"
	OpList   OpKind = "list"
)

// Op is one journaled operation of a MemoryProvider.
type Op struct {
	Kind   OpKind
	Path   string
	Offset int64
	Data   []byte
}

// Fault injects failures for one path of a MemoryProvider.
type Fault struct {
	Access error // Root / Length
	List   error
	Open   error
	Write  error // returned once WriteAfter bytes were written through one channel
	Sync   error
	Close  error
	Delete error

	WriteAfter int64
}

type memNode struct {
	name     string
	dir      bool
	data     []byte
	children map[string]*memNode
}

// MemoryProvider is a virtual tree with an operation journal and fault
// injection. Safe for concurrent use.
type MemoryProvider struct {
	mu      sync.Mutex
	root    *memNode
	faults  map[string]Fault
	journal []Op
	open    map[string]bool
	maxOpen int
}

// NewMemoryProvider returns an empty tree.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		root:   &memNode{name: "root", dir: true, children: map[string]*memNode{}},
		faults: map[string]Fault{},
		open:   map[string]bool{},
	}
}

// AddDir creates dir and its missing parents.
func (m *MemoryProvider) AddDir(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirAll(cleanPath(p))
}

// AddFile creates a file with the given content and missing parents.
func (m *MemoryProvider) AddFile(p string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p = cleanPath(p)
	parent := m.mkdirAll(path.Dir(p))
	parent.children[path.Base(p)] = &memNode{name: path.Base(p), data: append([]byte(nil), data...)}
}

// SetFault installs f for path p ("." for the root).
func (m *MemoryProvider) SetFault(p string, f Fault) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[cleanPath(p)] = f
}

// ReadFile returns a copy of the file content.
func (m *MemoryProvider) ReadFile(p string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.lookup(cleanPath(p))
	if n == nil || n.dir {
		return nil, false
	}
	return append([]byte(nil), n.data...), true
}

// Exists reports whether p resolves to an entry.
func (m *MemoryProvider) Exists(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookup(cleanPath(p)) != nil
}

// Journal returns a copy of the recorded operations.
func (m *MemoryProvider) Journal() []Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Op(nil), m.journal...)
}

// JournalFor returns the recorded operations of one path.
func (m *MemoryProvider) JournalFor(p string) []Op {
	p = cleanPath(p)
	var ops []Op
	for _, op := range m.Journal() {
		if op.Path == p {
			ops = append(ops, op)
		}
	}
	return ops
}

// MaxOpen returns the highest number of simultaneously open channels seen.
func (m *MemoryProvider) MaxOpen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxOpen
}

func (m *MemoryProvider) Root(ctx context.Context) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faults["."].Access; err != nil {
		return Handle{}, err
	}
	return Handle{Name: m.root.name, Path: ".", Dir: true}, nil
}

func (m *MemoryProvider) ListChildren(ctx context.Context, dir Handle) ([]Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := cleanPath(dir.Path)
	m.journal = append(m.journal, Op{Kind: OpList, Path: p})
	if err := m.faults[p].List; err != nil {
		return nil, err
	}
	n := m.lookup(p)
	if n == nil {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	if !n.dir {
		return nil, fmt.Errorf("%s is not a directory", p)
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	parent := Handle{Name: n.name, Path: p, Dir: true}
	children := make([]Handle, 0, len(names))
	for _, name := range names {
		c := n.children[name]
		children = append(children, parent.Child(name, int64(len(c.data)), c.dir))
	}
	return children, nil
}

func (m *MemoryProvider) OpenReadWrite(ctx context.Context, f Handle) (Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := cleanPath(f.Path)
	if err := m.faults[p].Open; err != nil {
		return nil, err
	}
	n := m.lookup(p)
	if n == nil {
		return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	if n.dir {
		return nil, fmt.Errorf("%s is a directory", p)
	}
	if m.open[p] {
		return nil, ErrLocked
	}
	m.open[p] = true
	if len(m.open) > m.maxOpen {
		m.maxOpen = len(m.open)
	}
	m.journal = append(m.journal, Op{Kind: OpOpen, Path: p})
	return &memChannel{m: m, node: n, path: p}, nil
}

func (m *MemoryProvider) Length(ctx context.Context, f Handle) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := cleanPath(f.Path)
	if err := m.faults[p].Access; err != nil {
		return 0, err
	}
	n := m.lookup(p)
	if n == nil {
		return 0, fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	return int64(len(n.data)), nil
}

func (m *MemoryProvider) Delete(ctx context.Context, h Handle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := cleanPath(h.Path)
	if p == "." {
		return fmt.Errorf("refusing to delete provider root")
	}
	if err := m.faults[p].Delete; err != nil {
		return err
	}
	parent := m.lookup(path.Dir(p))
	if parent == nil {
		return fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	n, ok := parent.children[path.Base(p)]
	if !ok {
		return fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	if n.dir && len(n.children) > 0 {
		return fmt.Errorf("directory %s is not empty", p)
	}
	delete(parent.children, path.Base(p))
	m.journal = append(m.journal, Op{Kind: OpDelete, Path: p})
	return nil
}

func (m *MemoryProvider) lookup(p string) *memNode {
	n := m.root
	if p == "." {
		return n
	}
	for _, part := range strings.Split(p, "/") {
		if !n.dir {
			return nil
		}
		c, ok := n.children[part]
		if !ok {
			return nil
		}
		n = c
	}
	return n
}

func (m *MemoryProvider) mkdirAll(p string) *memNode {
	n := m.root
	if p == "." {
		return n
	}
	for _, part := range strings.Split(p, "/") {
		c, ok := n.children[part]
		if !ok {
			c = &memNode{name: part, dir: true, children: map[string]*memNode{}}
			n.children[part] = c
		}
		n = c
	}
	return n
}

func cleanPath(p string) string {
	p = path.Clean("/" + p)
	if p == "/" {
		return "."
	}
	return strings.TrimPrefix(p, "/")
}

type memChannel struct {
	m       *MemoryProvider
	node    *memNode
	path    string
	pos     int64
	written int64
	closed  bool
}

func (c *memChannel) Write(b []byte) (int, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.closed {
		return 0, io.ErrClosedPipe
	}
	f := c.m.faults[c.path]
	n := len(b)
	if f.Write != nil {
		allowed := f.WriteAfter - c.written
		if allowed <= 0 {
			return 0, f.Write
		}
		if int64(n) > allowed {
			n = int(allowed)
		}
	}
	end := c.pos + int64(n)
	if end > int64(len(c.node.data)) {
		grown := make([]byte, end)
		copy(grown, c.node.data)
		c.node.data = grown
	}
	copy(c.node.data[c.pos:end], b[:n])
	c.m.journal = append(c.m.journal, Op{Kind: OpWrite, Path: c.path, Offset: c.pos, Data: append([]byte(nil), b[:n]...)})
	c.pos = end
	c.written += int64(n)
	if n < len(b) {
		return n, f.Write
	}
	return n, nil
}

func (c *memChannel) Seek(offset int64, whence int) (int64, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.closed {
		return 0, io.ErrClosedPipe
	}
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = c.pos + offset
	case io.SeekEnd:
		abs = int64(len(c.node.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("negative position %d", abs)
	}
	c.pos = abs
	c.m.journal = append(c.m.journal, Op{Kind: OpSeek, Path: c.path, Offset: abs})
	return abs, nil
}

func (c *memChannel) Sync() error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.closed {
		return io.ErrClosedPipe
	}
	if err := c.m.faults[c.path].Sync; err != nil {
		return err
	}
	c.m.journal = append(c.m.journal, Op{Kind: OpSync, Path: c.path})
	return nil
}

func (c *memChannel) Close() error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	delete(c.m.open, c.path)
	c.m.journal = append(c.m.journal, Op{Kind: OpClose, Path: c.path})
	return c.m.faults[c.path].Close
}
