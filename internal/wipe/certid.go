package wipe

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CertificateID идентификатор сеанса: CERT-<unix millis>-<8 hex>.
// Генерируется один раз на запуск и вписывается в последний проход.
type CertificateID string

// NewCertificateID создает новый идентификатор
func NewCertificateID() CertificateID {
	return newCertificateID(time.Now())
}

func newCertificateID(now time.Time) CertificateID {
	return CertificateID(fmt.Sprintf("CERT-%d-%s", now.UnixMilli(), uuid.NewString()[:8]))
}

func (id CertificateID) String() string {
	return string(id)
}
