package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"securewipe/internal/archive"
	"securewipe/internal/certificate"
	"securewipe/internal/config"
	"securewipe/internal/reporting"
)

func newCertificatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certificates",
		Short: "Архив выданных сертификатов",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Список сертификатов",
		Args:  cobra.NoArgs,
		RunE:  runCertificatesList,
	}
	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Показать сертификат",
		Args:  cobra.ExactArgs(1),
		RunE:  runCertificatesShow,
	}
	findCmd := &cobra.Command{
		Use:   "find <файл>",
		Short: "Найти сертификаты, в которых указан файл",
		Args:  cobra.ExactArgs(1),
		RunE:  runCertificatesFind,
	}

	cmd.AddCommand(listCmd, showCmd, findCmd)
	return cmd
}

func openArchive(cmd *cobra.Command) (*archive.Store, error) {
	if err := setup(); err != nil {
		return nil, err
	}
	if cfg.Reporting.ArchiveDB == "" {
		return nil, fmt.Errorf("архив сертификатов не настроен (reporting.archive_db)")
	}
	return archive.Open(cmd.Context(), cfg.Reporting.ArchiveDB)
}

func runCertificatesList(cmd *cobra.Command, args []string) error {
	store, err := openArchive(cmd)
	if err != nil {
		return withExitCode(EXIT_ERROR, err)
	}
	defer store.Close()

	entries, err := store.List(cmd.Context())
	if err != nil {
		return withExitCode(EXIT_ERROR, err)
	}

	fmt.Println("Выданные сертификаты:")
	fmt.Println(strings.Repeat("=", 80))
	if len(entries) == 0 {
		fmt.Println("  (нет)")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%-36s %-10s %6d файлов %10s  %s\n",
			e.ID, e.Status, e.FilesWiped, humanize.IBytes(uint64(e.BytesWiped)), humanize.Time(e.FinishedAt))
		if e.FilesFailed > 0 {
			fmt.Printf("%36s ошибок: %d\n", "", e.FilesFailed)
		}
	}
	return nil
}

func runCertificatesShow(cmd *cobra.Command, args []string) error {
	store, err := openArchive(cmd)
	if err != nil {
		return withExitCode(EXIT_ERROR, err)
	}
	defer store.Close()

	doc, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return withExitCode(EXIT_ERROR, err)
	}
	fmt.Print(reporting.FormatText(doc))

	if err := certificate.Verify(doc); err != nil {
		fmt.Printf("\n✗ Сертификат поврежден: %v\n", err)
		return withExitCode(EXIT_ERROR, err)
	}
	fmt.Println("\n✓ Целостность подтверждена")
	return nil
}

func runCertificatesFind(cmd *cobra.Command, args []string) error {
	store, err := openArchive(cmd)
	if err != nil {
		return withExitCode(EXIT_ERROR, err)
	}
	defer store.Close()

	ids, err := store.FindFile(cmd.Context(), filepath.ToSlash(args[0]))
	if err != nil {
		return withExitCode(EXIT_ERROR, err)
	}
	if len(ids) == 0 {
		fmt.Printf("Файл %s не найден ни в одном сертификате\n", args[0])
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <файл сертификата>",
		Short: "Проверить целостность и подпись сертификата",
		Args:  cobra.ExactArgs(1),
		RunE:  runVerify,
	}
	cmd.Flags().String("key", "", "Публичный ключ PEM для проверки подписи")
	cmd.Flags().String("report", "", "Сохранить отчёт в файл")
	cmd.Flags().String("format", "json", "Формат отчёта (json/csv)")
	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	if err := setup(); err != nil {
		return withExitCode(EXIT_ERROR, err)
	}
	keyPath, _ := cmd.Flags().GetString("key")
	reportPath, _ := cmd.Flags().GetString("report")
	format, _ := cmd.Flags().GetString("format")

	var report *reporting.VerificationReport
	var err error
	if keyPath != "" {
		verifier, kerr := certificate.LoadSignerVerifierFile(keyPath)
		if kerr != nil {
			return withExitCode(EXIT_ERROR, kerr)
		}
		report, err = reporting.VerifyFile(cmd.Context(), args[0], verifier)
	} else {
		report, err = reporting.VerifyFile(cmd.Context(), args[0], nil)
	}
	if err != nil {
		return withExitCode(EXIT_ERROR, err)
	}

	fmt.Println("\nРезультаты проверки:")
	fmt.Println("======================")
	fmt.Printf("Файл: %s\n", report.Path)
	fmt.Printf("Сертификат: %s\n", report.CertificateID)
	fmt.Printf("Статус сеанса: %s\n", report.Status)
	fmt.Printf("Подписан: %t\n", report.Signed)
	if report.KeyID != "" {
		fmt.Printf("Ключ: %s\n", report.KeyID)
	}

	if reportPath != "" {
		f, err := os.Create(reportPath)
		if err != nil {
			return withExitCode(EXIT_ERROR, fmt.Errorf("ошибка сохранения отчёта: %w", err))
		}
		werr := reporting.WriteVerificationReport(f, report, format)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return withExitCode(EXIT_ERROR, fmt.Errorf("ошибка сохранения отчёта: %w", werr))
		}
		fmt.Printf("\nОтчёт сохранён: %s\n", reportPath)
	}

	if !report.Valid {
		fmt.Printf("✗ Проверка не пройдена: %s\n", report.Error)
		return withExitCode(EXIT_ERROR, fmt.Errorf("сертификат не прошел проверку"))
	}
	fmt.Println("✓ Сертификат действителен")
	logger.Log("INFO", "Сертификат проверен", "certificate_id", report.CertificateID, "signed", report.Signed)
	return nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Работа с конфигурацией",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init <путь>",
		Short: "Записать конфигурацию по умолчанию",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(config.Default(), args[0]); err != nil {
				return withExitCode(EXIT_ERROR, err)
			}
			fmt.Printf("Конфигурация сохранена: %s\n", args[0])
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "profiles",
		Short: "Доступные профили производительности",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.Profiles() {
				fmt.Println(p)
			}
		},
	})
	return cmd
}
