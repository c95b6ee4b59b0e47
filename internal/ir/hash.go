package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainResult  = "partsel/result/v1"
	DomainCatalog = "partsel/catalog/v1"
	DomainAnswers = "partsel/answers/v1"
	DomainRules   = "partsel/rules/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest hashes the canonical JSON form of v under domain.
func Digest(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// ResultDigest computes the identity of an evaluation output.
// Two evaluations with identical BOM rows (in order) and totals produce the
// same digest; the trace is excluded because it is diagnostic only.
func ResultDigest(bom []OutputRow, totals Totals) (string, error) {
	rows := make([]any, len(bom))
	for i, r := range bom {
		rows[i] = r.CanonicalObject()
	}
	if totals == nil {
		totals = Totals{}
	}
	obj := map[string]any{
		"bom":    rows,
		"totals": map[string]int64(totals),
	}
	return Digest(DomainResult, obj)
}

// MustResultDigest is like ResultDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustResultDigest(bom []OutputRow, totals Totals) string {
	d, err := ResultDigest(bom, totals)
	if err != nil {
		panic(err)
	}
	return d
}
