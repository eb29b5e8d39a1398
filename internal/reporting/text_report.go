package reporting

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"securewipe/internal/certificate"
)

// TextRenderer пишет человекочитаемый сертификат
type TextRenderer struct {
	Dir string
}

func (r TextRenderer) Render(ctx context.Context, doc certificate.Document) (string, error) {
	return writeAtomic(r.Dir, FileName(doc.CertificateID, "txt"), []byte(FormatText(doc)))
}

// FormatText форматирует сертификат как текст
func FormatText(doc certificate.Document) string {
	var content strings.Builder

	// Header
	content.WriteString("SECURE WIPE CERTIFICATE\n")
	content.WriteString(strings.Repeat("=", 80) + "\n")
	content.WriteString(fmt.Sprintf("Certificate ID: %s\n", doc.CertificateID))
	content.WriteString(fmt.Sprintf("Generated:      %s\n", doc.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	content.WriteString(fmt.Sprintf("Started:        %s\n", doc.StartedAt.Format("2006-01-02 15:04:05 MST")))
	content.WriteString(fmt.Sprintf("Finished:       %s\n", doc.FinishedAt.Format("2006-01-02 15:04:05 MST")))
	content.WriteString(fmt.Sprintf("Duration:       %s\n", doc.FinishedAt.Sub(doc.StartedAt)))
	content.WriteString(fmt.Sprintf("Status:         %s\n", doc.Status))
	content.WriteString(fmt.Sprintf("Method:         %s\n", doc.Summary.Method))
	content.WriteString("\n")

	// Summary
	content.WriteString("SUMMARY\n")
	content.WriteString(strings.Repeat("-", 50) + "\n")
	content.WriteString(fmt.Sprintf("Files attempted: %s\n", humanize.Comma(int64(doc.Summary.FilesAttempted))))
	content.WriteString(fmt.Sprintf("Files wiped:     %s\n", humanize.Comma(int64(doc.Summary.FilesWiped))))
	content.WriteString(fmt.Sprintf("Files failed:    %s\n", humanize.Comma(int64(doc.Summary.FilesFailed))))
	content.WriteString(fmt.Sprintf("Data wiped:      %s (%s bytes)\n",
		humanize.IBytes(uint64(doc.Summary.BytesWiped)), humanize.Comma(doc.Summary.BytesWiped)))
	content.WriteString(fmt.Sprintf("Dirs removed:    %d\n", doc.Summary.DirsPruned))
	content.WriteString("\n")

	// Ledger
	content.WriteString("WIPED FILES\n")
	content.WriteString(strings.Repeat("-", 50) + "\n")
	if len(doc.Ledger) == 0 {
		content.WriteString("  (none)\n")
	}
	for i, rec := range doc.Ledger {
		content.WriteString(fmt.Sprintf("%4d. %s  %s\n", i+1, rec.Name, humanize.IBytes(uint64(rec.Length))))
	}
	content.WriteString("\n")

	if len(doc.Failures) > 0 {
		content.WriteString("FAILED FILES\n")
		content.WriteString(strings.Repeat("-", 50) + "\n")
		for i, f := range doc.Failures {
			content.WriteString(fmt.Sprintf("%4d. %s\n", i+1, f.Name))
			content.WriteString(fmt.Sprintf("      %s\n", f.Reason))
		}
		content.WriteString("\n")
	}

	if len(doc.Unreadable) > 0 {
		content.WriteString("UNREADABLE DIRECTORIES\n")
		content.WriteString(strings.Repeat("-", 50) + "\n")
		for _, f := range doc.Unreadable {
			content.WriteString(fmt.Sprintf("  %s: %s\n", f.Name, f.Reason))
		}
		content.WriteString("\n")
	}

	content.WriteString(strings.Repeat("=", 80) + "\n")
	content.WriteString(fmt.Sprintf("SHA-256: %s\n", doc.Digest))
	return content.String()
}
