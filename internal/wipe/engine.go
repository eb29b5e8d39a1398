package wipe

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"

	"securewipe/internal/logging"
	"securewipe/internal/storage"
)

// Options параметры движка
type Options struct {
	MaxSpeedMBps   float64
	PruneEmptyDirs bool
}

// WipeEngine выполняет сеансы затирания дерева. Одновременно активен только
// один сеанс; файлы обрабатываются по одному в одной горутине.
type WipeEngine struct {
	provider storage.Provider
	walker   *TreeWalker
	sink     EventSink
	logger   *logging.EnterpriseLogger
	opts     Options
	running  atomic.Bool

	now   func() time.Time
	newID func() CertificateID
}

// NewWipeEngine создает движок. sink и logger могут быть nil.
func NewWipeEngine(provider storage.Provider, sink EventSink, logger *logging.EnterpriseLogger, opts Options) *WipeEngine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &WipeEngine{
		provider: provider,
		walker:   NewTreeWalker(provider),
		sink:     sink,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
		newID:    NewCertificateID,
	}
}

// Running сообщает, идет ли сеанс
func (we *WipeEngine) Running() bool {
	return we.running.Load()
}

// Run затирает все файлы под root, удаляет их и пустые директории.
// Ошибки отдельных файлов попадают в WipeResult.Failures и не прерывают сеанс.
// Ошибка возвращается только при ErrAlreadyRunning или недоступном корне
// (тогда результат имеет статус FAILED). Отмена ctx проверяется между файлами:
// начатый файл всегда доводится до успеха или явной ошибки.
func (we *WipeEngine) Run(ctx context.Context, root storage.Handle) (WipeResult, error) {
	if !we.running.CompareAndSwap(false, true) {
		return WipeResult{}, ErrAlreadyRunning
	}
	defer we.running.Store(false)

	events := NewDispatcher(we.sink)
	defer events.Close()

	id := we.newID()
	s := newSession(id, we.now())
	we.logger.Log("INFO", "Wipe started", "certificate_id", string(id), "root", root.Path)

	// Файловые операции не прерываются отменой: она проверяется только между файлами
	ioCtx := context.WithoutCancel(ctx)

	files, err := we.snapshot(ioCtx, root, s, events)
	if err != nil {
		s.abort(err)
		events.Log(fmt.Sprintf("✗ Root inaccessible: %v", err))
		we.logger.Log("ERROR", "Root inaccessible", "root", root.Path, "error", err)
		result := s.freeze(we.now())
		return result, err
	}

	total := len(files)
	s.found(total)
	events.Log(fmt.Sprintf("Files found: %d", total))
	events.Progress(0, total)

	overwriter := NewFileOverwriter(we.provider, NewPatternGenerator(id), we.opts.MaxSpeedMBps)
	for i, f := range files {
		if ctx.Err() != nil {
			s.cancel()
			events.Log(fmt.Sprintf("Cancelled: %d files not processed", total-i))
			we.logger.Log("WARN", "Wipe cancelled", "remaining", total-i)
			break
		}

		if err := we.wipeFile(ioCtx, overwriter, f, s); err != nil {
			events.Log(fmt.Sprintf("✗ Failed: %s: %v", f.Path, err))
			we.logger.Log("WARN", "File wipe failed", "file", f.Path, "error", err)
		} else {
			events.Log(fmt.Sprintf("✓ Deleted: %s", f.Path))
		}
		events.Progress(i+1, total)
	}

	if we.opts.PruneEmptyDirs {
		n, err := we.walker.PruneEmptyDirectories(ioCtx, root)
		var errs []error
		if err != nil {
			errs = unwrapAll(err)
			for _, e := range errs {
				events.Log(fmt.Sprintf("Prune warning: %v", e))
			}
			we.logger.Log("WARN", "Prune finished with errors", "count", len(errs), "error", err)
		}
		s.pruned(n, errs)
	}

	result := s.freeze(we.now())
	events.Log(fmt.Sprintf("Done: %d files wiped", result.FilesSucceeded))
	events.Log(fmt.Sprintf("Total time: %ds", int64(result.Duration().Seconds())))
	we.logger.Log("INFO", "Wipe finished",
		"certificate_id", string(id),
		"status", string(result.Status),
		"attempted", result.FilesAttempted,
		"succeeded", result.FilesSucceeded,
		"bytes", result.TotalBytesWiped,
	)
	return result, nil
}

// snapshot собирает полный список файлов до первой записи
func (we *WipeEngine) snapshot(ctx context.Context, root storage.Handle, s *session, events *Dispatcher) ([]storage.Handle, error) {
	var files []storage.Handle
	for h, err := range we.walker.CollectFiles(ctx, root) {
		if err != nil {
			if h.Path == root.Path {
				return nil, err
			}
			s.unreadable(h.Path, err)
			events.Log(fmt.Sprintf("✗ Unreadable: %s: %v", h.Path, err))
			continue
		}
		files = append(files, h)
	}
	return files, nil
}

// wipeFile: актуальная длина, перезапись, удаление, запись в журнал
func (we *WipeEngine) wipeFile(ctx context.Context, o *FileOverwriter, f storage.Handle, s *session) error {
	length, err := we.provider.Length(ctx, f)
	if err != nil {
		err = accessError(err, "length of %s", f.Path)
		s.failed(f.Path, err)
		return err
	}
	f.Size = length
	we.logger.Log("DEBUG", fmt.Sprintf("Processing: %s (%d bytes)", f.Path, length))

	if err := o.Overwrite(ctx, f); err != nil {
		s.failed(f.Path, err)
		return err
	}
	if err := we.provider.Delete(ctx, f); err != nil {
		// Содержимое уже уничтожено, но файл остался: это не успех
		err = accessError(err, "delete %s after overwrite", f.Path)
		s.failed(f.Path, err)
		return err
	}
	s.succeeded(f.Path, length)
	return nil
}

func unwrapAll(err error) []error {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		return merr.WrappedErrors()
	}
	return []error{err}
}
