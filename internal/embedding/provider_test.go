package embedding

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProviderNoneYieldsErrNoProvider(t *testing.T) {
	p, err := NewProvider(Config{Provider: "none"})
	require.Nil(t, p)
	require.ErrorIs(t, err, ErrNoProvider)
}

func TestNewProviderUnknownIsRejected(t *testing.T) {
	_, err := NewProvider(Config{Provider: "bedrock"})
	require.Error(t, err)
}

func TestNewProviderDefaultsToOpenAI(t *testing.T) {
	p, err := NewProvider(Config{Provider: "", APIKey: "k"})
	require.NoError(t, err)
	require.Equal(t, "openai", p.Name())
}

func TestValidateEmbeddingRejectsDimensionMismatch(t *testing.T) {
	err := validateEmbedding([]float32{1, 2}, 3)
	require.Error(t, err)
}

func TestValidateEmbeddingRejectsAllZeroVector(t *testing.T) {
	err := validateEmbedding([]float32{0, 0, 0}, 3)
	require.Error(t, err)
}

func TestValidateEmbeddingAcceptsValidVector(t *testing.T) {
	err := validateEmbedding([]float32{0, 1, 0}, 3)
	require.NoError(t, err)
}
