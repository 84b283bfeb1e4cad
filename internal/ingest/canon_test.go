package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalizeCollapsesWhitespace(t *testing.T) {
	require.Equal(t, "uses bazel for builds", Canonicalize("  uses   bazel\nfor\tbuilds  "))
	require.Equal(t, "", Canonicalize("   \n\t  "))
}

func TestCanonicalizeNormalizesUnicodeForm(t *testing.T) {
	// "caf" + e-acute, built two ways: one precomposed code point (U+00E9)
	// and one base letter plus a combining acute accent (U+0065 U+0301).
	composed := "caf" + string(rune(0x00E9))
	decomposed := "caf" + string(rune(0x0065)) + string(rune(0x0301))
	require.NotEqual(t, composed, decomposed, "the two byte sequences must differ before normalization")
	require.Equal(t, Canonicalize(composed), Canonicalize(decomposed))
}

func TestContentHashStableAndSensitive(t *testing.T) {
	h1 := ContentHash(Canonicalize("uses bazel"))
	h2 := ContentHash(Canonicalize("uses   bazel"))
	require.Equal(t, h1, h2, "equivalent whitespace should hash identically after canonicalization")

	h3 := ContentHash(Canonicalize("uses cmake"))
	require.NotEqual(t, h1, h3)
}
