package wipe

import (
	"context"
	"iter"

	"github.com/hashicorp/go-multierror"

	"securewipe/internal/storage"
)

// TreeWalker обходит дерево через Provider
type TreeWalker struct {
	provider storage.Provider
}

// NewTreeWalker создает обходчик
func NewTreeWalker(provider storage.Provider) *TreeWalker {
	return &TreeWalker{provider: provider}
}

// CollectFiles лениво перечисляет файлы (не директории) в глубину, дети в порядке провайдера.
// Ошибка чтения директории выдается парой (директория, ошибка ErrAccess), обход продолжается
// со следующего соседа.
func (w *TreeWalker) CollectFiles(ctx context.Context, root storage.Handle) iter.Seq2[storage.Handle, error] {
	return func(yield func(storage.Handle, error) bool) {
		w.collect(ctx, root, yield)
	}
}

func (w *TreeWalker) collect(ctx context.Context, dir storage.Handle, yield func(storage.Handle, error) bool) bool {
	children, err := w.provider.ListChildren(ctx, dir)
	if err != nil {
		return yield(dir, accessError(err, "list %s", dir.Path))
	}
	for _, c := range children {
		if c.Dir {
			if !w.collect(ctx, c, yield) {
				return false
			}
			continue
		}
		if !yield(c, nil) {
			return false
		}
	}
	return true
}

// PruneEmptyDirectories удаляет пустые директории в обратном порядке (сначала дети).
// Корень не удаляется никогда. Возвращает число удаленных директорий и
// объединенные ошибки ErrPrune; они не фатальны.
func (w *TreeWalker) PruneEmptyDirectories(ctx context.Context, root storage.Handle) (int, error) {
	p := &pruner{provider: w.provider}
	p.prune(ctx, root, true)
	return p.deleted, p.errs.ErrorOrNil()
}

type pruner struct {
	provider storage.Provider
	deleted  int
	errs     *multierror.Error
}

// prune возвращает true, если директория удалена
func (p *pruner) prune(ctx context.Context, dir storage.Handle, root bool) bool {
	children, err := p.provider.ListChildren(ctx, dir)
	if err != nil {
		p.errs = multierror.Append(p.errs, pruneError(err, "list %s", dir.Path))
		return false
	}

	remaining := 0
	for _, c := range children {
		if c.Dir && p.prune(ctx, c, false) {
			continue
		}
		remaining++
	}
	if root || remaining > 0 {
		return false
	}

	if err := p.provider.Delete(ctx, dir); err != nil {
		p.errs = multierror.Append(p.errs, pruneError(err, "delete %s", dir.Path))
		return false
	}
	p.deleted++
	return true
}

// Scan перечисляет файлы под root без изменений. Недоступный корень
// возвращается ошибкой, недоступные поддиректории попадают в unreadable.
func (w *TreeWalker) Scan(ctx context.Context, root storage.Handle) (files []WipeRecord, unreadable []Failure, err error) {
	for h, err := range w.CollectFiles(ctx, root) {
		if err != nil {
			if h.Path == root.Path {
				return nil, nil, err
			}
			unreadable = append(unreadable, Failure{Name: h.Path, Reason: err.Error()})
			continue
		}
		files = append(files, WipeRecord{Name: h.Path, Length: h.Size})
	}
	return files, unreadable, nil
}
