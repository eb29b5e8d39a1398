// Package certificate turns a finished wipe session into a tamper-evident
// certificate document. Building is pure; persistence belongs to renderers.
package certificate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/errors"

	"securewipe/internal/wipe"
)

// ErrDigestMismatch is returned by Verify when the document was altered.
var ErrDigestMismatch = errors.New("certificate digest mismatch")

// ErrInconsistent is returned by Verify when the summary disagrees with the ledger.
var ErrInconsistent = errors.New("certificate summary does not match ledger")

// Summary holds the aggregate counts of a wipe session.
type Summary struct {
	FilesAttempted int    `json:"files_attempted" yaml:"files_attempted"`
	FilesWiped     int    `json:"files_wiped" yaml:"files_wiped"`
	FilesFailed    int    `json:"files_failed" yaml:"files_failed"`
	BytesWiped     int64  `json:"bytes_wiped" yaml:"bytes_wiped"`
	DirsPruned     int    `json:"dirs_pruned" yaml:"dirs_pruned"`
	Method         string `json:"method" yaml:"method"`
}

// Document is the structured certificate handed to renderers.
type Document struct {
	CertificateID string            `json:"certificate_id" yaml:"certificate_id"`
	GeneratedAt   time.Time         `json:"generated_at" yaml:"generated_at"`
	StartedAt     time.Time         `json:"started_at" yaml:"started_at"`
	FinishedAt    time.Time         `json:"finished_at" yaml:"finished_at"`
	Status        string            `json:"status" yaml:"status"`
	Summary       Summary           `json:"summary" yaml:"summary"`
	Ledger        []wipe.WipeRecord `json:"ledger" yaml:"ledger"`
	Failures      []wipe.Failure    `json:"failures" yaml:"failures"`
	Unreadable    []wipe.Failure    `json:"unreadable,omitempty" yaml:"unreadable,omitempty"`
	Digest        string            `json:"digest" yaml:"digest"`
}

// Build assembles the certificate for a frozen result. It has no side
// effects: GeneratedAt is the session end time.
func Build(result wipe.WipeResult) Document {
	doc := Document{
		CertificateID: result.CertificateID.String(),
		GeneratedAt:   result.EndTime.UTC(),
		StartedAt:     result.StartTime.UTC(),
		FinishedAt:    result.EndTime.UTC(),
		Status:        string(result.Status),
		Summary: Summary{
			FilesAttempted: result.FilesAttempted,
			FilesWiped:     result.FilesSucceeded,
			FilesFailed:    len(result.Failures),
			BytesWiped:     result.TotalBytesWiped,
			DirsPruned:     result.DirsPruned,
			Method:         wipe.Method,
		},
		Ledger:     append([]wipe.WipeRecord{}, result.Records...),
		Failures:   append([]wipe.Failure{}, result.Failures...),
		Unreadable: append([]wipe.Failure(nil), result.Unreadable...),
	}
	doc.Digest = Digest(doc)
	return doc
}

// Digest returns the hex SHA-256 of the canonical form of doc. The Digest
// field itself is not part of the input.
func Digest(doc Document) string {
	h := sha256.New()
	writeCanonical(h, doc)
	return hex.EncodeToString(h.Sum(nil))
}

// writeCanonical writes one field per line in a fixed order. Names are
// quoted so separators inside file names cannot forge extra entries.
func writeCanonical(w io.Writer, doc Document) {
	fmt.Fprintf(w, "securewipe-certificate-v1\n")
	fmt.Fprintf(w, "id %q\n", doc.CertificateID)
	fmt.Fprintf(w, "generated %s\n", doc.GeneratedAt.UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(w, "started %s\n", doc.StartedAt.UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(w, "finished %s\n", doc.FinishedAt.UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(w, "status %q\n", doc.Status)

	s := doc.Summary
	fmt.Fprintf(w, "summary %d %d %d %d %d %q\n",
		s.FilesAttempted, s.FilesWiped, s.FilesFailed, s.BytesWiped, s.DirsPruned, s.Method)

	fmt.Fprintf(w, "ledger %d\n", len(doc.Ledger))
	for _, r := range doc.Ledger {
		fmt.Fprintf(w, "%q %d\n", r.Name, r.Length)
	}
	fmt.Fprintf(w, "failures %d\n", len(doc.Failures))
	for _, f := range doc.Failures {
		fmt.Fprintf(w, "%q %q\n", f.Name, f.Reason)
	}
	fmt.Fprintf(w, "unreadable %d\n", len(doc.Unreadable))
	for _, f := range doc.Unreadable {
		fmt.Fprintf(w, "%q %q\n", f.Name, f.Reason)
	}
}

// Verify recomputes the digest and checks the summary against the ledger.
func Verify(doc Document) error {
	if doc.Digest == "" {
		return errors.Wrap(ErrDigestMismatch, "certificate has no digest")
	}
	if got := Digest(doc); got != doc.Digest {
		return errors.Wrapf(ErrDigestMismatch, "expected %s, computed %s", doc.Digest, got)
	}

	var bytes int64
	for _, r := range doc.Ledger {
		bytes += r.Length
	}
	switch {
	case doc.Summary.FilesWiped != len(doc.Ledger):
		return errors.Wrapf(ErrInconsistent, "files_wiped %d, ledger has %d entries", doc.Summary.FilesWiped, len(doc.Ledger))
	case doc.Summary.BytesWiped != bytes:
		return errors.Wrapf(ErrInconsistent, "bytes_wiped %d, ledger sums to %d", doc.Summary.BytesWiped, bytes)
	case doc.Summary.FilesFailed != len(doc.Failures):
		return errors.Wrapf(ErrInconsistent, "files_failed %d, %d failure entries", doc.Summary.FilesFailed, len(doc.Failures))
	case doc.Summary.FilesAttempted != doc.Summary.FilesWiped+doc.Summary.FilesFailed:
		return errors.Wrapf(ErrInconsistent, "files_attempted %d != wiped %d + failed %d",
			doc.Summary.FilesAttempted, doc.Summary.FilesWiped, doc.Summary.FilesFailed)
	}
	return nil
}
