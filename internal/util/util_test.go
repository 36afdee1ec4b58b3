package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimQuotes(t *testing.T) {
	assert.Equal(t, "abc", TrimQuotes(`"abc"`))
	assert.Equal(t, "abc", TrimQuotes(`  "abc" `))
	assert.Equal(t, "", TrimQuotes(`""`))
	assert.Equal(t, "a b", TrimQuotes("a b"))
}

func TestParseFloatArg(t *testing.T) {
	v, err := ParseFloatArg(`"0.75"`)
	require.NoError(t, err)
	assert.Equal(t, 0.75, v)

	_, err = ParseFloatArg("loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"loud"`)
}

func TestParseIntArg(t *testing.T) {
	v, err := ParseIntArg(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = ParseIntArg("4.2")
	assert.Error(t, err)
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 1.0, Clamp01(1.5))
	assert.Equal(t, 0.3, Clamp01(0.3))
}
