package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"securewipe/internal/archive"
	"securewipe/internal/certificate"
	"securewipe/internal/cli"
	"securewipe/internal/config"
	"securewipe/internal/reporting"
	"securewipe/internal/security"
	"securewipe/internal/storage"
	"securewipe/internal/wipe"
)

// simulateLimit верхняя граница объема дерева для --simulate
const simulateLimit = 256 << 20

func newWipeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wipe <папка>",
		Short: "Затереть и удалить все файлы в папке",
		Args:  cobra.ExactArgs(1),
		RunE:  runWipe,
	}
	cmd.Flags().BoolP("force", "f", false, "Пропустить подтверждение")
	cmd.Flags().StringSlice("format", nil, "Форматы сертификата (json,txt,yaml)")
	cmd.Flags().Bool("no-certificate", false, "Не сохранять сертификат")
	cmd.Flags().Bool("simulate", false, "Прогон на копии дерева в памяти, диск не изменяется")
	return cmd
}

func runWipe(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		return withExitCode(EXIT_ERROR, err)
	}

	force, _ := cmd.Flags().GetBool("force")
	formats, _ := cmd.Flags().GetStringSlice("format")
	noCertificate, _ := cmd.Flags().GetBool("no-certificate")
	simulate, _ := cmd.Flags().GetBool("simulate")

	if len(formats) > 0 {
		cfg.Reporting.Formats = formats
		if err := config.Validate(cfg); err != nil {
			return withExitCode(EXIT_ERROR, fmt.Errorf("невалидная конфигурация: %w", err))
		}
	}

	target, err := security.CheckTarget(cfg, args[0])
	if err != nil {
		logger.Log("ERROR", "Цель отклонена", "path", args[0], "error", err)
		return withExitCode(EXIT_ERROR, err)
	}

	// Сигналы перехватываются только после подтверждения
	prepCtx := cmd.Context()

	local, err := storage.NewLocalProvider(target)
	if err != nil {
		return withExitCode(EXIT_ERROR, err)
	}
	defer local.Close()

	var provider storage.Provider = local
	if simulate {
		mirror, err := storage.Mirror(prepCtx, local, simulateLimit)
		if err != nil {
			return withExitCode(EXIT_ERROR, fmt.Errorf("ошибка подготовки симуляции: %w", err))
		}
		provider = mirror
		fmt.Println("[SIMULATE] Файлы на диске не изменяются")
	}

	root, err := provider.Root(prepCtx)
	if err != nil {
		return withExitCode(EXIT_ERROR, err)
	}

	if !force && !simulate && cfg.Security.RequireConfirmation {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return withExitCode(EXIT_ERROR, fmt.Errorf("подтверждение требует терминала, используйте --force"))
		}
		files, _, err := wipe.NewTreeWalker(provider).Scan(prepCtx, root)
		if err != nil {
			return withExitCode(EXIT_ERROR, err)
		}
		if err := security.AskConfirmation(os.Stdin, os.Stdout, cfg.Security.ConfirmationWord, target, len(files)); err != nil {
			if errors.Is(err, security.ErrNotConfirmed) {
				logger.Log("INFO", "Операция отменена пользователем")
				fmt.Println("Операция отменена")
				return nil
			}
			return withExitCode(EXIT_ERROR, err)
		}
	}

	// Рендереры готовим до затирания: ошибка ключа подписи не должна всплыть после
	var renderers reporting.MultiRenderer
	if cfg.Reporting.Enabled && !noCertificate && !simulate {
		renderers, err = reporting.NewFileRenderers(cfg)
		if err != nil {
			return withExitCode(EXIT_ERROR, fmt.Errorf("ошибка настройки сертификатов: %w", err))
		}
		if cfg.Reporting.ArchiveDB != "" {
			store, err := archive.Open(prepCtx, cfg.Reporting.ArchiveDB)
			if err != nil {
				return withExitCode(EXIT_ERROR, err)
			}
			defer store.Close()
			renderers = append(renderers, store)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger.Log("INFO", "Запуск SecureWipe", "version", Version, "target", target, "simulate", simulate)

	engine := wipe.NewWipeEngine(provider, cli.NewConsoleSink(os.Stdout, logger), logger, wipe.Options{
		MaxSpeedMBps:   cfg.Wipe.MaxSpeedMBps,
		PruneEmptyDirs: cfg.Wipe.PruneEmptyDirs,
	})
	result, err := engine.Run(ctx, root)
	if err != nil {
		cli.PrintResult(os.Stdout, result, "")
		return withExitCode(EXIT_ERROR, err)
	}

	var locations string
	var certErr error
	if len(renderers) > 0 {
		doc := certificate.Build(result)
		// Сертификат сохраняется и после отмены
		locations, certErr = renderers.Render(context.WithoutCancel(ctx), doc)
		if certErr != nil {
			logger.Log("ERROR", "Ошибка сохранения сертификата", "certificate_id", doc.CertificateID, "error", certErr)
		} else {
			logger.Log("INFO", "Сертификат сохранён", "certificate_id", doc.CertificateID, "locations", locations)
		}
	}

	cli.PrintResult(os.Stdout, result, locations)
	return exitForResult(result, certErr)
}

// exitForResult сопоставляет статус сеанса с кодом выхода.
// Ошибка сохранения сертификата добавляется к итогу сеанса, а не заменяет его.
func exitForResult(result wipe.WipeResult, certErr error) error {
	withCert := func(err error) error {
		if certErr == nil {
			return err
		}
		return fmt.Errorf("%w; %w", err, certErr)
	}

	switch result.Status {
	case wipe.StatusFailed:
		return withExitCode(EXIT_ERROR, withCert(fmt.Errorf("затирание не выполнено: %s", failureSummary(result))))
	case wipe.StatusCancelled:
		return withExitCode(EXIT_CANCELLED, withCert(fmt.Errorf("операция отменена")))
	case wipe.StatusPartial:
		return withExitCode(EXIT_WARNING, withCert(fmt.Errorf("некоторые файлы не обработаны: %s", failureSummary(result))))
	}
	if certErr != nil {
		return withExitCode(EXIT_WARNING, certErr)
	}
	return nil
}

func failureSummary(result wipe.WipeResult) string {
	var parts []string
	if n := len(result.Failures); n > 0 {
		parts = append(parts, fmt.Sprintf("%d ошибок", n))
	}
	if n := len(result.Unreadable); n > 0 {
		parts = append(parts, fmt.Sprintf("%d недоступных папок", n))
	}
	if n := len(result.PruneErrors); n > 0 {
		parts = append(parts, fmt.Sprintf("%d папок не удалено", n))
	}
	if len(parts) == 0 {
		return "нет подробностей"
	}
	return strings.Join(parts, ", ")
}

func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <папка>",
		Short: "Показать файлы, которые будут затерты",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setup(); err != nil {
				return withExitCode(EXIT_ERROR, err)
			}
			target, err := security.CheckTarget(cfg, args[0])
			if err != nil {
				return withExitCode(EXIT_ERROR, err)
			}
			provider, err := storage.NewLocalProvider(target)
			if err != nil {
				return withExitCode(EXIT_ERROR, err)
			}
			defer provider.Close()

			ctx := cmd.Context()
			root, err := provider.Root(ctx)
			if err != nil {
				return withExitCode(EXIT_ERROR, err)
			}
			files, unreadable, err := wipe.NewTreeWalker(provider).Scan(ctx, root)
			if err != nil {
				return withExitCode(EXIT_ERROR, err)
			}
			cli.PrintScan(os.Stdout, target, files, unreadable)
			return nil
		},
	}
}
