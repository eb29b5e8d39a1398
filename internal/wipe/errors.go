package wipe

import (
	"io/fs"

	"github.com/cockroachdb/errors"

	"securewipe/internal/storage"
)

// Таксономия ошибок движка. Проверка через errors.Is (стандартный или cockroachdb).
var (
	// ErrOverwrite ошибка ввода-вывода во время прохода (open/seek/write/sync)
	ErrOverwrite = errors.New("overwrite failed")
	// ErrAccess корень или файл недоступен
	ErrAccess = errors.New("access error")
	// ErrPrune не удалось удалить пустую директорию; не фатально
	ErrPrune = errors.New("prune failed")
	// ErrAlreadyRunning второй запуск при активном сеансе
	ErrAlreadyRunning = errors.New("wipe already running")
)

// kindError относит ошибку к одному из сентинелов, сохраняя цепочку причин
type kindError struct {
	cause error
	kind  error
}

func (e *kindError) Error() string { return e.cause.Error() }
func (e *kindError) Unwrap() error { return e.cause }
func (e *kindError) Is(target error) bool {
	return target == e.kind
}

func withKind(err, kind error) error {
	return &kindError{cause: err, kind: kind}
}

func overwriteError(err error, format string, args ...interface{}) error {
	wrapped := withKind(errors.Wrapf(err, format, args...), ErrOverwrite)
	if isAccessProblem(err) {
		wrapped = withKind(wrapped, ErrAccess)
	}
	return wrapped
}

func accessError(err error, format string, args ...interface{}) error {
	return withKind(errors.Wrapf(err, format, args...), ErrAccess)
}

func pruneError(err error, format string, args ...interface{}) error {
	return withKind(errors.Wrapf(err, format, args...), ErrPrune)
}

func isAccessProblem(err error) bool {
	return errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, storage.ErrOutsideRoot)
}
