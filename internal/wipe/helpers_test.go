package wipe

import (
	"context"
	"sync"
	"time"

	"securewipe/internal/storage"
)

const testID CertificateID = "CERT-1700000000000-0a1b2c3d"

type recordingSink struct {
	mu       sync.Mutex
	logs     []string
	progress []ProgressInfo
}

func (s *recordingSink) OnProgress(processed, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, ProgressInfo{Processed: processed, Total: total})
}

func (s *recordingSink) OnLog(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, message)
}

func (s *recordingSink) Logs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.logs...)
}

func (s *recordingSink) Progress() []ProgressInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ProgressInfo(nil), s.progress...)
}

func newTestEngine(p storage.Provider) (*WipeEngine, *recordingSink) {
	sink := &recordingSink{}
	e := NewWipeEngine(p, sink, nil, Options{PruneEmptyDirs: true})
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e.now = func() time.Time { return fixed }
	e.newID = func() CertificateID { return testID }
	return e, sink
}

func rootOf(p storage.Provider) storage.Handle {
	h, err := p.Root(context.Background())
	if err != nil {
		panic(err)
	}
	return h
}

func writesFor(p *storage.MemoryProvider, path string) []storage.Op {
	var out []storage.Op
	for _, op := range p.JournalFor(path) {
		if op.Kind == storage.OpWrite {
			out = append(out, op)
		}
	}
	return out
}

func kindsFor(p *storage.MemoryProvider, path string) []storage.OpKind {
	var out []storage.OpKind
	for _, op := range p.JournalFor(path) {
		out = append(out, op.Kind)
	}
	return out
}

// shortProvider отдает каналы, которые пишут не больше limit байт за вызов
type shortProvider struct {
	*storage.MemoryProvider
	limit int
}

func (p *shortProvider) OpenReadWrite(ctx context.Context, f storage.Handle) (storage.Channel, error) {
	ch, err := p.MemoryProvider.OpenReadWrite(ctx, f)
	if err != nil {
		return nil, err
	}
	return &shortChannel{Channel: ch, limit: p.limit}, nil
}

type shortChannel struct {
	storage.Channel
	limit int
}

func (c *shortChannel) Write(b []byte) (int, error) {
	if c.limit == 0 {
		return 0, nil
	}
	if len(b) > c.limit {
		b = b[:c.limit]
	}
	return c.Channel.Write(b)
}
