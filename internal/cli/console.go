package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"securewipe/internal/logging"
	"securewipe/internal/wipe"
)

// ConsoleSink печатает журнал и прогресс затирания в терминал
// и дублирует строки журнала в logger
type ConsoleSink struct {
	mu      sync.Mutex
	out     io.Writer
	logger  *logging.EnterpriseLogger
	pending bool
}

// NewConsoleSink создает приемник событий для консоли
func NewConsoleSink(out io.Writer, logger *logging.EnterpriseLogger) *ConsoleSink {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ConsoleSink{out: out, logger: logger}
}

func (s *ConsoleSink) OnLog(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		fmt.Fprintln(s.out)
		s.pending = false
	}
	fmt.Fprintln(s.out, message)
	s.logger.Log("DEBUG", message)
}

// OnProgress перерисовывает строку прогресса на месте
func (s *ConsoleSink) OnProgress(processed, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := wipe.ProgressInfo{Processed: processed, Total: total}
	fmt.Fprintf(s.out, "\rПрогресс: %d/%d (%.1f%%)", processed, total, p.Percentage())
	s.pending = processed < total
	if !s.pending {
		fmt.Fprintln(s.out)
	}
}

// PrintResult выводит итоги сеанса
func PrintResult(out io.Writer, result wipe.WipeResult, certificates string) {
	status := "✓"
	if result.Status == wipe.StatusPartial || result.Status == wipe.StatusCancelled {
		status = "⚠"
	} else if result.Status != wipe.StatusCompleted {
		status = "✗"
	}

	fmt.Fprintln(out, "\nРезультаты затирания:")
	fmt.Fprintln(out, "==================")
	fmt.Fprintf(out, "%s %s - %s\n", status, result.CertificateID, result.Status)
	fmt.Fprintf(out, "Файлов найдено:   %s\n", humanize.Comma(int64(result.FilesFound)))
	fmt.Fprintf(out, "Файлов затерто:   %s/%s\n",
		humanize.Comma(int64(result.FilesSucceeded)), humanize.Comma(int64(result.FilesAttempted)))
	fmt.Fprintf(out, "Объем:            %s\n", humanize.IBytes(uint64(result.TotalBytesWiped)))
	fmt.Fprintf(out, "Папок удалено:    %d\n", result.DirsPruned)
	fmt.Fprintf(out, "Длительность:     %s\n", result.Duration().Round(time.Millisecond))

	for _, f := range result.Failures {
		fmt.Fprintf(out, "  Ошибка: %s: %s\n", f.Name, f.Reason)
	}
	for _, f := range result.Unreadable {
		fmt.Fprintf(out, "  Недоступно: %s: %s\n", f.Name, f.Reason)
	}
	for _, e := range result.PruneErrors {
		fmt.Fprintf(out, "  Предупреждение: %s\n", e)
	}
	if result.Error != "" {
		fmt.Fprintf(out, "  Ошибка: %s\n", result.Error)
	}
	if certificates != "" {
		fmt.Fprintf(out, "\nСертификат сохранён: %s\n", certificates)
	}
}

// PrintScan выводит список файлов, которые будут затерты
func PrintScan(out io.Writer, root string, records []wipe.WipeRecord, unreadable []wipe.Failure) {
	var total int64
	fmt.Fprintf(out, "Файлы в %s:\n", root)
	fmt.Fprintln(out, strings.Repeat("=", 40))
	for _, r := range records {
		fmt.Fprintf(out, "%10s  %s\n", humanize.IBytes(uint64(r.Length)), r.Name)
		total += r.Length
	}
	for _, f := range unreadable {
		fmt.Fprintf(out, "%10s  %s (%s)\n", "?", f.Name, f.Reason)
	}
	fmt.Fprintln(out, strings.Repeat("-", 40))
	fmt.Fprintf(out, "Всего: %s файлов, %s\n", humanize.Comma(int64(len(records))), humanize.IBytes(uint64(total)))
}
