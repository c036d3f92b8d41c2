package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", TruncateString("abc", 100))
	assert.Equal(t, strings.Repeat("x", 100), TruncateString(strings.Repeat("x", 150), 100))
	assert.Equal(t, "", TruncateString("", 100))

	// multibyte runes are never split
	assert.Equal(t, "héllo", TruncateString("héllo world", 5))
}

func TestStringOrNil(t *testing.T) {
	assert.Nil(t, StringOrNil(""))
	if s := StringOrNil("x"); assert.NotNil(t, s) {
		assert.Equal(t, "x", *s)
	}
}
