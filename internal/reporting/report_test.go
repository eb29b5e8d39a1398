package reporting

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"securewipe/internal/certificate"
	"securewipe/internal/config"
	"securewipe/internal/wipe"
)

func sampleDocument() certificate.Document {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return certificate.Build(wipe.WipeResult{
		CertificateID:   "CERT-1772359200000-deadbeef",
		StartTime:       start,
		EndTime:         start.Add(2 * time.Minute),
		Records:         []wipe.WipeRecord{{Name: "docs/a.txt", Length: 2048}, {Name: "b.bin", Length: 1 << 20}},
		FilesFound:      3,
		FilesAttempted:  3,
		FilesSucceeded:  2,
		TotalBytesWiped: 2048 + 1<<20,
		Failures:        []wipe.Failure{{Name: "locked.db", Reason: "open locked.db: permission denied"}},
		Status:          wipe.StatusPartial,
	})
}

type failingRenderer struct{}

func (failingRenderer) Render(context.Context, certificate.Document) (string, error) {
	return "", errors.New("disk full")
}

func writeKeys(t *testing.T, dir string) (privPath, pubPath string) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)

	privPath = filepath.Join(dir, "signing.pem")
	pubPath = filepath.Join(dir, "signing.pub")
	require.NoError(t, os.WriteFile(privPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}), 0600))
	require.NoError(t, os.WriteFile(pubPath, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), 0644))
	return privPath, pubPath
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "securewipe_certificate_CERT-1-abc.json", FileName("CERT-1-abc", "json"))
	assert.Equal(t, "securewipe_certificate_CERT-1-abc.dsse.json", FileName("CERT-1-abc", "dsse.json"))
}

func TestJSONRendererRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "certs")
	doc := sampleDocument()

	loc, err := JSONRenderer{Dir: dir}.Render(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName(doc.CertificateID, "json")), loc)

	back, err := LoadJSON(loc)
	require.NoError(t, err)
	assert.NoError(t, certificate.Verify(back))
	assert.Equal(t, doc.Ledger, back.Ledger)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestYAMLRenderer(t *testing.T) {
	dir := t.TempDir()
	doc := sampleDocument()

	loc, err := YAMLRenderer{Dir: dir}.Render(context.Background(), doc)
	require.NoError(t, err)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	var back certificate.Document
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, doc.CertificateID, back.CertificateID)
	assert.Equal(t, doc.Digest, back.Digest)
	assert.Equal(t, doc.Ledger, back.Ledger)
}

func TestTextRenderer(t *testing.T) {
	dir := t.TempDir()
	doc := sampleDocument()

	loc, err := TextRenderer{Dir: dir}.Render(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(loc, ".txt"))

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Certificate ID: CERT-1772359200000-deadbeef")
	assert.Contains(t, text, "Status:         PARTIAL")
	assert.Contains(t, text, "docs/a.txt  2.0 KiB")
	assert.Contains(t, text, "b.bin  1.0 MiB")
	assert.Contains(t, text, "locked.db")
	assert.Contains(t, text, "SHA-256: "+doc.Digest)
}

func TestFormatTextEmptyLedger(t *testing.T) {
	doc := certificate.Build(wipe.WipeResult{CertificateID: "CERT-1-00000000", Status: wipe.StatusCompleted})
	text := FormatText(doc)
	assert.Contains(t, text, "(none)")
	assert.NotContains(t, text, "FAILED FILES")
}

func TestMultiRendererPartialFailure(t *testing.T) {
	dir := t.TempDir()
	m := MultiRenderer{JSONRenderer{Dir: dir}, failingRenderer{}, TextRenderer{Dir: dir}}

	loc, err := m.Render(context.Background(), sampleDocument())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCertificateNotSaved)
	assert.ErrorContains(t, err, "disk full")

	parts := strings.Split(loc, ", ")
	assert.Len(t, parts, 2, "successful renderers still report their location")
	for _, p := range parts {
		assert.FileExists(t, p)
	}
}

func TestNewFileRenderers(t *testing.T) {
	cfg := config.Default()
	cfg.Reporting.LocalPath = t.TempDir()
	cfg.Reporting.Formats = []string{"json", "TXT", "yaml"}

	renderers, err := NewFileRenderers(cfg)
	require.NoError(t, err)
	require.Len(t, renderers, 3)
	assert.IsType(t, JSONRenderer{}, renderers[0])
	assert.IsType(t, TextRenderer{}, renderers[1])
	assert.IsType(t, YAMLRenderer{}, renderers[2])

	cfg.Reporting.Formats = []string{"pdf"}
	_, err = NewFileRenderers(cfg)
	assert.ErrorContains(t, err, "pdf")

	cfg.Reporting.Formats = []string{"json"}
	cfg.Reporting.SigningKey = filepath.Join(t.TempDir(), "missing.pem")
	_, err = NewFileRenderers(cfg)
	assert.Error(t, err)
}

func TestSignedCertificateVerifies(t *testing.T) {
	ctx := context.Background()
	keys := t.TempDir()
	privPath, pubPath := writeKeys(t, keys)

	cfg := config.Default()
	cfg.Reporting.LocalPath = t.TempDir()
	cfg.Reporting.Formats = []string{"json"}
	cfg.Reporting.SigningKey = privPath

	renderers, err := NewFileRenderers(cfg)
	require.NoError(t, err)
	require.Len(t, renderers, 2)

	doc := sampleDocument()
	_, err = renderers.Render(ctx, doc)
	require.NoError(t, err)

	verifier, err := certificate.LoadSignerVerifierFile(pubPath)
	require.NoError(t, err)

	envPath := filepath.Join(cfg.Reporting.LocalPath, FileName(doc.CertificateID, "dsse.json"))
	report, err := VerifyFile(ctx, envPath, verifier)
	require.NoError(t, err)
	assert.True(t, report.Signed)
	assert.True(t, report.Valid, report.Error)
	assert.NotEmpty(t, report.KeyID)
	assert.Equal(t, doc.CertificateID, report.CertificateID)

	report, err = VerifyFile(ctx, envPath, nil)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Contains(t, report.Error, "verification key")
}

func TestVerifyFilePlainCertificate(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	loc, err := JSONRenderer{Dir: dir}.Render(ctx, sampleDocument())
	require.NoError(t, err)

	report, err := VerifyFile(ctx, loc, nil)
	require.NoError(t, err)
	assert.False(t, report.Signed)
	assert.True(t, report.Valid)
	assert.Equal(t, "PARTIAL", report.Status)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	tampered := bytes.Replace(data, []byte("docs/a.txt"), []byte("docs/z.txt"), 1)
	require.NoError(t, os.WriteFile(loc, tampered, 0644))

	report, err = VerifyFile(ctx, loc, nil)
	require.NoError(t, err)
	assert.False(t, report.Valid)
	assert.Contains(t, report.Error, "digest")

	_, err = VerifyFile(ctx, filepath.Join(dir, "missing.json"), nil)
	assert.Error(t, err)
}

func TestVerifyFileWithKeyRejectsUnsignedCertificate(t *testing.T) {
	ctx := context.Background()
	_, pubPath := writeKeys(t, t.TempDir())
	verifier, err := certificate.LoadSignerVerifierFile(pubPath)
	require.NoError(t, err)

	// Дайджест корректен, но подписи нет
	doc := sampleDocument()
	require.NoError(t, certificate.Verify(doc))
	loc, err := JSONRenderer{Dir: t.TempDir()}.Render(ctx, doc)
	require.NoError(t, err)

	report, err := VerifyFile(ctx, loc, verifier)
	require.NoError(t, err)
	assert.False(t, report.Signed)
	assert.False(t, report.Valid)
	assert.Equal(t, "certificate is not signed", report.Error)
	assert.Equal(t, doc.CertificateID, report.CertificateID)
}

func TestWriteVerificationReport(t *testing.T) {
	report := &VerificationReport{
		Path:          "/tmp/c.json",
		CertificateID: "CERT-1-abc",
		Status:        "COMPLETED",
		Valid:         true,
		CheckedAt:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteVerificationReport(&buf, report, "json"))
	assert.Contains(t, buf.String(), `"valid": true`)

	buf.Reset()
	require.NoError(t, WriteVerificationReport(&buf, report, "csv"))
	assert.Contains(t, buf.String(), "Certificate ID,CERT-1-abc")
	assert.Contains(t, buf.String(), "Valid,true")

	assert.Error(t, WriteVerificationReport(&buf, report, "xml"))
}
