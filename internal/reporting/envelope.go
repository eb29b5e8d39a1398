package reporting

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/secure-systems-lab/go-securesystemslib/dsse"

	"securewipe/internal/certificate"
)

// EnvelopeRenderer пишет подписанный DSSE конверт рядом с остальными форматами
type EnvelopeRenderer struct {
	Dir    string
	Signer dsse.Signer
}

func (r EnvelopeRenderer) Render(ctx context.Context, doc certificate.Document) (string, error) {
	env, err := certificate.Sign(ctx, doc, r.Signer)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации конверта: %w", err)
	}
	return writeAtomic(r.Dir, FileName(doc.CertificateID, "dsse.json"), data)
}
