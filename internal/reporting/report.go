package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"securewipe/internal/certificate"
	"securewipe/internal/config"
)

// ErrCertificateNotSaved означает: затирание выполнено, но сертификат не сохранен
var ErrCertificateNotSaved = errors.New("wipe succeeded, certificate not saved")

// Renderer сохраняет документ сертификата и возвращает его расположение
type Renderer interface {
	Render(ctx context.Context, doc certificate.Document) (string, error)
}

// FileName имя файла сертификата для расширения ext
func FileName(id, ext string) string {
	return fmt.Sprintf("securewipe_certificate_%s.%s", id, ext)
}

// JSONRenderer пишет сертификат в JSON
type JSONRenderer struct {
	Dir string
}

func (r JSONRenderer) Render(ctx context.Context, doc certificate.Document) (string, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации сертификата: %w", err)
	}
	return writeAtomic(r.Dir, FileName(doc.CertificateID, "json"), data)
}

// YAMLRenderer пишет сертификат в YAML
type YAMLRenderer struct {
	Dir string
}

func (r YAMLRenderer) Render(ctx context.Context, doc certificate.Document) (string, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации сертификата: %w", err)
	}
	return writeAtomic(r.Dir, FileName(doc.CertificateID, "yaml"), data)
}

// MultiRenderer сохраняет сертификат всеми рендерерами по очереди.
// Ошибка одного не мешает остальным.
type MultiRenderer []Renderer

func (m MultiRenderer) Render(ctx context.Context, doc certificate.Document) (string, error) {
	var locations []string
	var errs *multierror.Error
	for _, r := range m {
		loc, err := r.Render(ctx, doc)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		locations = append(locations, loc)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return strings.Join(locations, ", "), fmt.Errorf("%w: %w", ErrCertificateNotSaved, err)
	}
	return strings.Join(locations, ", "), nil
}

// NewFileRenderers создает файловые рендереры по reporting.formats
func NewFileRenderers(cfg *config.Config) (MultiRenderer, error) {
	var renderers MultiRenderer
	if cfg.Reporting.LocalPath == "" {
		return renderers, nil
	}
	for _, f := range cfg.Reporting.Formats {
		switch strings.ToLower(f) {
		case "json":
			renderers = append(renderers, JSONRenderer{Dir: cfg.Reporting.LocalPath})
		case "txt":
			renderers = append(renderers, TextRenderer{Dir: cfg.Reporting.LocalPath})
		case "yaml":
			renderers = append(renderers, YAMLRenderer{Dir: cfg.Reporting.LocalPath})
		default:
			return nil, fmt.Errorf("неподдерживаемый формат: %s", f)
		}
	}
	if cfg.Reporting.SigningKey != "" {
		signer, err := certificate.LoadSignerVerifierFile(cfg.Reporting.SigningKey)
		if err != nil {
			return nil, err
		}
		renderers = append(renderers, EnvelopeRenderer{Dir: cfg.Reporting.LocalPath, Signer: signer})
	}
	return renderers, nil
}

// LoadJSON читает сертификат, сохраненный JSONRenderer
func LoadJSON(path string) (certificate.Document, error) {
	var doc certificate.Document
	data, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("ошибка чтения сертификата: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("ошибка разбора сертификата %s: %w", path, err)
	}
	return doc, nil
}

// writeAtomic пишет во временный файл и переименовывает его
func writeAtomic(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("ошибка создания директории для сертификатов: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".securewipe-*.tmp")
	if err != nil {
		return "", fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("ошибка записи сертификата: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("ошибка записи сертификата: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("ошибка записи сертификата: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return "", fmt.Errorf("ошибка установки прав: %w", err)
	}

	target := filepath.Join(dir, name)
	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("ошибка сохранения сертификата: %w", err)
	}
	return target, nil
}
