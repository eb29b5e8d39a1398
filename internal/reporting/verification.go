package reporting

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/secure-systems-lab/go-securesystemslib/dsse"

	"securewipe/internal/certificate"
)

// VerificationReport результат проверки сохраненного сертификата
type VerificationReport struct {
	Path          string    `json:"path"`
	CertificateID string    `json:"certificate_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	Signed        bool      `json:"signed"`
	KeyID         string    `json:"key_id,omitempty"`
	Valid         bool      `json:"valid"`
	Error         string    `json:"error,omitempty"`
	CheckedAt     time.Time `json:"checked_at"`
}

// VerifyFile проверяет сертификат в path. Файл может быть как JSON
// сертификатом, так и DSSE конвертом; для конверта нужен verifier.
// Если verifier задан, неподписанный сертификат считается недействительным.
// Ошибка возвращается только если файл не удалось прочитать.
func VerifyFile(ctx context.Context, path string, verifier dsse.Verifier) (*VerificationReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения сертификата: %w", err)
	}

	report := &VerificationReport{Path: path, CheckedAt: time.Now().UTC()}

	var env dsse.Envelope
	if err := json.Unmarshal(data, &env); err == nil && env.PayloadType != "" {
		report.Signed = true
		if verifier == nil {
			report.Error = "signed certificate requires a verification key"
			return report, nil
		}
		if id, err := verifier.KeyID(); err == nil {
			report.KeyID = id
		}
		doc, err := certificate.VerifyEnvelope(ctx, &env, verifier)
		report.fill(doc, err)
		return report, nil
	}

	var doc certificate.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		report.Error = fmt.Sprintf("ошибка разбора сертификата: %v", err)
		return report, nil
	}
	report.fill(doc, certificate.Verify(doc))
	// С ключом принимается только подписанный конверт: дайджест может пересчитать кто угодно
	if verifier != nil && report.Valid {
		report.Valid = false
		report.Error = "certificate is not signed"
	}
	return report, nil
}

func (r *VerificationReport) fill(doc certificate.Document, err error) {
	r.CertificateID = doc.CertificateID
	r.Status = doc.Status
	r.Valid = err == nil
	if err != nil {
		r.Error = err.Error()
	}
}

// WriteVerificationReport пишет отчёт в формате json или csv
func WriteVerificationReport(w io.Writer, report *VerificationReport, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "csv":
		cw := csv.NewWriter(w)
		rows := [][]string{
			{"Metric", "Value"},
			{"Path", report.Path},
			{"Certificate ID", report.CertificateID},
			{"Status", report.Status},
			{"Signed", strconv.FormatBool(report.Signed)},
			{"Key ID", report.KeyID},
			{"Valid", strconv.FormatBool(report.Valid)},
			{"Error", report.Error},
			{"Checked At", report.CheckedAt.Format(time.RFC3339)},
		}
		if err := cw.WriteAll(rows); err != nil {
			return fmt.Errorf("ошибка записи CSV: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("неподдерживаемый формат: %s", format)
	}
}
