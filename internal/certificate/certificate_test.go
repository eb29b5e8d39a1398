package certificate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securewipe/internal/wipe"
)

func sampleResult() wipe.WipeResult {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return wipe.WipeResult{
		CertificateID:   "CERT-1772359200000-deadbeef",
		StartTime:       start,
		EndTime:         start.Add(90 * time.Second),
		Records:         []wipe.WipeRecord{{Name: "a.txt", Length: 10240}, {Name: "b.txt", Length: 0}},
		FilesFound:      3,
		FilesAttempted:  3,
		FilesSucceeded:  2,
		TotalBytesWiped: 10240,
		Failures:        []wipe.Failure{{Name: "c.txt", Reason: "open c.txt: locked"}},
		DirsPruned:      1,
		Status:          wipe.StatusPartial,
	}
}

func TestBuild(t *testing.T) {
	r := sampleResult()
	doc := Build(r)

	assert.Equal(t, "CERT-1772359200000-deadbeef", doc.CertificateID)
	assert.Equal(t, r.EndTime, doc.GeneratedAt)
	assert.Equal(t, r.StartTime, doc.StartedAt)
	assert.Equal(t, "PARTIAL", doc.Status)
	assert.Equal(t, Summary{
		FilesAttempted: 3,
		FilesWiped:     2,
		FilesFailed:    1,
		BytesWiped:     10240,
		DirsPruned:     1,
		Method:         "4-pass: zero/random/ones/stamp",
	}, doc.Summary)
	assert.Equal(t, r.Records, doc.Ledger)
	assert.Equal(t, r.Failures, doc.Failures)
	assert.Len(t, doc.Digest, 64)
	require.NoError(t, Verify(doc))
}

func TestBuildIsPure(t *testing.T) {
	r := sampleResult()
	a := Build(r)
	b := Build(r)
	assert.Equal(t, a, b)

	a.Ledger[0].Name = "changed"
	assert.Equal(t, "a.txt", r.Records[0].Name, "document does not alias the result")
}

func TestBuildEmptyResult(t *testing.T) {
	doc := Build(wipe.WipeResult{CertificateID: "CERT-1-00000000", Status: wipe.StatusCompleted})
	assert.NotNil(t, doc.Ledger)
	assert.NotNil(t, doc.Failures)
	assert.Zero(t, doc.Summary.FilesWiped)
	require.NoError(t, Verify(doc))
}

func TestVerifyDetectsTampering(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Document)
	}{
		{"ledger name", func(d *Document) { d.Ledger[0].Name = "other.txt" }},
		{"ledger length", func(d *Document) { d.Ledger[0].Length++ }},
		{"dropped failure", func(d *Document) { d.Failures = nil }},
		{"status", func(d *Document) { d.Status = "COMPLETED" }},
		{"id", func(d *Document) { d.CertificateID = "CERT-0-00000000" }},
		{"time", func(d *Document) { d.FinishedAt = d.FinishedAt.Add(time.Second) }},
		{"no digest", func(d *Document) { d.Digest = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Build(sampleResult())
			tt.mutate(&doc)
			assert.ErrorIs(t, Verify(doc), ErrDigestMismatch)
		})
	}
}

func TestVerifyDetectsInconsistentSummary(t *testing.T) {
	doc := Build(sampleResult())
	doc.Summary.BytesWiped = 1
	doc.Digest = Digest(doc)
	assert.ErrorIs(t, Verify(doc), ErrInconsistent)
}

func TestDigestSurvivesJSONRoundTrip(t *testing.T) {
	doc := Build(sampleResult())
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var back Document
	require.NoError(t, json.Unmarshal(data, &back))
	assert.NoError(t, Verify(back))
}

func TestDigestQuotesNames(t *testing.T) {
	a := Build(wipe.WipeResult{
		CertificateID:   "CERT-1-00000000",
		Records:         []wipe.WipeRecord{{Name: "x\" 1\n\"y", Length: 2}},
		FilesAttempted:  1,
		FilesSucceeded:  1,
		TotalBytesWiped: 2,
	})
	b := Build(wipe.WipeResult{
		CertificateID:   "CERT-1-00000000",
		Records:         []wipe.WipeRecord{{Name: "x", Length: 1}, {Name: "y", Length: 2}},
		FilesAttempted:  1,
		FilesSucceeded:  1,
		TotalBytesWiped: 2,
	})
	assert.NotEqual(t, a.Digest, b.Digest)
}
