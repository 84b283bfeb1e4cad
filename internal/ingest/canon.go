// Package ingest implements the canonicalize/dedupe/persist/embed pipeline
// shared by every tool that writes content into Mira's structured store
// (spec §4.D).
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Canonicalize applies spec §4.D step 1: Unicode NFC normalization,
// trimming, and collapsing runs of whitespace to a single space, so
// near-duplicate submissions hash identically regardless of incidental
// formatting differences.
func Canonicalize(text string) string {
	normalized := norm.NFC.String(text)
	fields := strings.FieldsFunc(normalized, unicode.IsSpace)
	return strings.Join(fields, " ")
}

// ContentHash returns the hex-encoded sha256 of canonicalized text, used as
// the dedup key within a (project, kind) scope per spec §4.D step 2.
func ContentHash(canonical string) string {
	h := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(h[:])
}
