package security

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"securewipe/internal/config"
)

// ErrProtectedTarget цель затирания запрещена политикой безопасности
var ErrProtectedTarget = errors.New("target is protected")

// ErrNotConfirmed пользователь не подтвердил операцию
var ErrNotConfirmed = errors.New("operation not confirmed")

// CheckTarget проверяет, что path можно затирать, и возвращает
// абсолютный путь без симлинков
func CheckTarget(cfg *config.Config, path string) (string, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if strings.TrimSpace(path) == "" {
		return "", errors.New("empty target path")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", path)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", path)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", errors.Wrapf(err, "stat %s", resolved)
	}
	if !info.IsDir() {
		return "", errors.Newf("%s is not a directory", resolved)
	}

	// Корень файловой системы
	if filepath.Dir(resolved) == resolved {
		return "", errors.Wrapf(ErrProtectedTarget, "%s is a filesystem root", resolved)
	}

	// Домашний каталог и текущая папка не должны оказаться внутри цели
	if home, err := os.UserHomeDir(); err == nil {
		if contains(resolved, canonical(home)) {
			return "", errors.Wrapf(ErrProtectedTarget, "%s contains the home directory", resolved)
		}
	}
	if wd, err := os.Getwd(); err == nil {
		if contains(resolved, canonical(wd)) {
			return "", errors.Wrapf(ErrProtectedTarget, "%s contains the working directory", resolved)
		}
	}

	for _, p := range cfg.Security.ProtectedPaths {
		pp := canonical(p)
		if contains(pp, resolved) || contains(resolved, pp) {
			return "", errors.Wrapf(ErrProtectedTarget, "%s overlaps protected path %s", resolved, p)
		}
	}

	// Сертификаты не должны затирать сами себя
	if cfg.Reporting.Enabled && cfg.Reporting.LocalPath != "" {
		if contains(resolved, canonical(cfg.Reporting.LocalPath)) {
			return "", errors.Wrapf(ErrProtectedTarget, "%s contains the certificate directory", resolved)
		}
	}
	if cfg.Reporting.Enabled && cfg.Reporting.ArchiveDB != "" {
		if contains(resolved, canonical(filepath.Dir(cfg.Reporting.ArchiveDB))) {
			return "", errors.Wrapf(ErrProtectedTarget, "%s contains the certificate archive", resolved)
		}
	}

	return resolved, nil
}

// Confirm сравнивает ввод пользователя с кодовым словом
func Confirm(word, input string) bool {
	return word != "" && strings.TrimSpace(input) == word
}

// AskConfirmation печатает предупреждение и читает одну строку ответа
func AskConfirmation(in io.Reader, out io.Writer, word, target string, files int) error {
	fmt.Fprintf(out, "ВНИМАНИЕ: %d файлов в %s будут безвозвратно затерты и удалены.\n", files, target)
	fmt.Fprintf(out, "Введите %s для продолжения: ", word)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(err, "read confirmation")
	}
	if !Confirm(word, line) {
		return ErrNotConfirmed
	}
	return nil
}

// contains сообщает, что child равен parent или лежит внутри него
func contains(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// canonical абсолютный путь с раскрытыми симлинками, если он существует
func canonical(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}
