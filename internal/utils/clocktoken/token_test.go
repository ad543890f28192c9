package clocktoken

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trestleworks/planledger/internal/core/domain"
)

func TestEncodeDecodeToken(t *testing.T) {
	// Vector clock round trip
	clock := domain.Clock{Counters: map[string]uint64{"r1": 5, "r2": 12}}
	token, err := Encode(clock)
	assert.NoError(t, err, "Encoding should not return an error")
	assert.NotEmpty(t, token, "Token should not be empty")

	decoded, err := Decode(token)
	assert.NoError(t, err, "Decoding should not return an error")
	assert.Equal(t, clock, decoded, "Clock should match after decode")

	// Latest marker round trip
	latestToken, err := Encode(domain.LatestClock())
	assert.NoError(t, err)
	decodedLatest, err := Decode(latestToken)
	assert.NoError(t, err)
	assert.True(t, decodedLatest.IsLatest(), "Latest marker should survive the round trip")

	// Empty token decodes to the zero clock
	decodedEmpty, err := Decode("")
	assert.NoError(t, err, "Empty token should not be an error")
	assert.True(t, decodedEmpty.IsZero(), "Empty token should decode to the zero clock")
}

func TestDecodeTokenError(t *testing.T) {
	// Invalid base64
	_, err := Decode("this is not base64!")
	assert.Error(t, err, "Should return an error for invalid base64")
	assert.Contains(t, err.Error(), "base64 decode", "Error should mention base64 decoding")

	// Valid base64 but not a clock document
	_, err = Decode("bm90LWpzb24=")
	assert.Error(t, err, "Should return an error for non-JSON content")
	assert.Contains(t, err.Error(), "json decode", "Error should mention json decoding")
}
