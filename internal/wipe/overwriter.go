package wipe

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"

	"securewipe/internal/storage"
)

// FileOverwriter применяет последовательность проходов к одному файлу
type FileOverwriter struct {
	provider     storage.Provider
	patterns     *PatternGenerator
	maxSpeedMBps float64
}

// NewFileOverwriter создает overwriter; maxSpeedMBps <= 0 без ограничения скорости
func NewFileOverwriter(provider storage.Provider, patterns *PatternGenerator, maxSpeedMBps float64) *FileOverwriter {
	return &FileOverwriter{
		provider:     provider,
		patterns:     patterns,
		maxSpeedMBps: maxSpeedMBps,
	}
}

// Overwrite перезаписывает f.Size байт четырьмя проходами zero → random → ones → stamp.
// После каждого прохода вызывается Sync. Файл нулевой длины не открывается.
// Канал закрывается на любом пути выхода. Любая ошибка означает, что файл
// не считается затертым.
func (o *FileOverwriter) Overwrite(ctx context.Context, f storage.Handle) (err error) {
	if f.Size == 0 {
		return nil
	}
	if f.Size < 0 {
		return overwriteError(errors.Newf("negative length %d", f.Size), "%s", f.Path)
	}

	patterns, err := o.patterns.Generate(f.Size)
	if err != nil {
		return overwriteError(err, "generate patterns for %s", f.Path)
	}
	defer ReleasePatterns(patterns)

	ch, err := o.provider.OpenReadWrite(ctx, f)
	if err != nil {
		return overwriteError(err, "open %s", f.Path)
	}
	w := NewThrottledWriter(ctx, ch, o.maxSpeedMBps)
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = overwriteError(cerr, "close %s", f.Path)
		}
	}()

	for _, p := range patterns {
		if err := writePass(w, p, f.Size); err != nil {
			return overwriteError(err, "%s pass on %s", p.Tag, f.Path)
		}
	}
	return nil
}

// writePass один проход: позиция 0, тайлы блока до length байт, Sync
func writePass(w storage.Channel, p Pattern, length int64) error {
	if _, err := w.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "seek")
	}

	for written := int64(0); written < length; {
		tile := p.Block
		if rem := length - written; rem < int64(len(tile)) {
			tile = tile[:rem]
		}
		if err := writeFull(w, tile); err != nil {
			return err
		}
		written += int64(len(tile))
	}

	if err := w.Sync(); err != nil {
		return errors.Wrap(err, "sync")
	}
	return nil
}

// writeFull дописывает короткие записи до конца тайла
func writeFull(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		b = b[n:]
		if err != nil {
			return errors.Wrap(err, "write")
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}
