package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"securewipe/internal/config"
	"securewipe/internal/logging"
)

const (
	Version = "1.0.0"
	AppName = "SecureWipe"

	// Exit codes
	EXIT_SUCCESS   = 0
	EXIT_ERROR     = 1
	EXIT_WARNING   = 2
	EXIT_CANCELLED = 3
)

var (
	cfg        *config.Config
	logger     *logging.EnterpriseLogger
	verbose    bool
	configPath string
	profile    string
)

// exitError несет код выхода до main
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// CLI команды
var rootCmd = &cobra.Command{
	Use:           "securewipe",
	Short:         "SecureWipe - безопасное удаление файлов с сертификатом",
	Long:          "Затирает каждый файл папки в 4 прохода (нули, случайные данные, единицы, метка), удаляет его и выдает сертификат",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Подробный вывод")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Путь к конфигурации")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "Профиль производительности (safe/balanced/fast)")

	rootCmd.AddCommand(newWipeCmd(), newScanCmd(), newCertificatesCmd(), newVerifyCmd(), newConfigCmd())
}

// setup загружает конфигурацию и создает логгер: файл, затем окружение, затем профиль
func setup() error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}
	if profile != "" {
		if err := config.ApplyProfile(cfg, profile); err != nil {
			return fmt.Errorf("ошибка применения профиля %s: %w", profile, err)
		}
	}

	logger, err = logging.NewEnterpriseLogger(cfg, verbose)
	if err != nil {
		return fmt.Errorf("ошибка инициализации логгера: %w", err)
	}
	if profile != "" {
		logger.Log("INFO", "Применён профиль", "profile", profile)
	}
	return nil
}

// signalContext отменяется по SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return cancelOnSignal(sigChan, func() { signal.Stop(sigChan) })
}

// cancelOnSignal отменяет контекст по первому сигналу и сразу вызывает stop:
// повторный Ctrl-C завершает процесс, не дожидаясь текущего файла
func cancelOnSignal(sigChan <-chan os.Signal, stop func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	release := func() { once.Do(stop) }

	go func() {
		select {
		case sig := <-sigChan:
			release()
			if logger != nil {
				logger.Log("WARN", "Получен сигнал, начинаем graceful shutdown", "signal", sig.String())
			}
			fmt.Printf("\n[INFO] Получен сигнал %s, завершаем текущий файл (повторный сигнал прервет немедленно)...\n", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		release()
		cancel()
	}
}

// execute выполняет команду и возвращает код выхода. Логгер закрывается
// здесь: PersistentPostRunE не вызывается, если команда вернула ошибку.
func execute() int {
	err := rootCmd.Execute()
	if logger != nil {
		if cerr := logger.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "[WARN] ошибка закрытия журнала: %v\n", cerr)
		}
		logger = nil
	}
	if err == nil {
		return EXIT_SUCCESS
	}

	fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return EXIT_ERROR
}

func main() {
	os.Exit(execute())
}
