package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mqtt-tools/hivemq-tui/internal/resource"
)

func TestMatcherSubstring(t *testing.T) {
	m, err := NewMatcher("Sensor", MatchOptions{})
	require.NoError(t, err)
	assert.True(t, m.Match("temp-sensor-1"))
	assert.False(t, m.Match("actuator"))

	m, err = NewMatcher("Sensor", MatchOptions{CaseSensitive: true})
	require.NoError(t, err)
	assert.False(t, m.Match("temp-sensor-1"))
	assert.True(t, m.Match("tempSensor"))
}

func TestMatcherRegex(t *testing.T) {
	m, err := NewMatcher(`^client-\d+$`, MatchOptions{Mode: MatchRegex})
	require.NoError(t, err)
	assert.True(t, m.Match("CLIENT-12"))
	assert.False(t, m.Match("client-x"))

	m, err = NewMatcher(`^client`, MatchOptions{Mode: MatchRegex, CaseSensitive: true})
	require.NoError(t, err)
	assert.False(t, m.Match("Client-1"))
}

func TestMatcherInvalidRegex(t *testing.T) {
	_, err := NewMatcher(`(`, MatchOptions{Mode: MatchRegex})
	assert.ErrorIs(t, err, resource.ErrInvalidFilter)
}

func TestEmptyPatternMatchesAll(t *testing.T) {
	for _, mode := range []MatchMode{MatchSubstring, MatchRegex} {
		m, err := NewMatcher("", MatchOptions{Mode: mode})
		require.NoError(t, err)
		assert.True(t, m.MatchAll())
		assert.True(t, m.Match(""))
		assert.True(t, m.Match("anything"))
	}
}

func TestParseMatchMode(t *testing.T) {
	mode, err := ParseMatchMode("Regex")
	require.NoError(t, err)
	assert.Equal(t, MatchRegex, mode)

	mode, err = ParseMatchMode("")
	require.NoError(t, err)
	assert.Equal(t, MatchSubstring, mode)
	assert.Equal(t, "substring", mode.String())

	_, err = ParseMatchMode("glob")
	assert.Error(t, err)
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"":               "$",
		"$":              "$",
		"$.name":         "$.name",
		".name":          "$.name",
		"matching.topic": "$.matching.topic",
		"$[0]":           "$[0]",
	}
	for in, want := range cases {
		got, err := normalizePath(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
