package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvString(t *testing.T) {
	t.Setenv("HELPER_TEST_STR", "  value  ")
	assert.Equal(t, "value", EnvString("HELPER_TEST_STR", "def"))

	t.Setenv("HELPER_TEST_STR", "")
	assert.Equal(t, "def", EnvString("HELPER_TEST_STR", "def"))
}

func TestEnvInt64(t *testing.T) {
	t.Setenv("HELPER_TEST_INT", "42")
	assert.Equal(t, int64(42), EnvInt64("HELPER_TEST_INT", 7))

	t.Setenv("HELPER_TEST_INT", "not-a-number")
	assert.Equal(t, int64(7), EnvInt64("HELPER_TEST_INT", 7))

	// Zero and negatives fall back: every consumer treats the value as a
	// count or an interval.
	t.Setenv("HELPER_TEST_INT", "0")
	assert.Equal(t, int64(7), EnvInt64("HELPER_TEST_INT", 7))
}

func TestEnvBool(t *testing.T) {
	for _, v := range []string{"true", "1", "yes", "on"} {
		t.Setenv("HELPER_TEST_BOOL", v)
		assert.True(t, EnvBool("HELPER_TEST_BOOL", false), v)
	}
	for _, v := range []string{"false", "0", "no", "off"} {
		t.Setenv("HELPER_TEST_BOOL", v)
		assert.False(t, EnvBool("HELPER_TEST_BOOL", true), v)
	}
	t.Setenv("HELPER_TEST_BOOL", "maybe")
	assert.True(t, EnvBool("HELPER_TEST_BOOL", true))
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitAndTrim(" a , b ,, c "))
	assert.Empty(t, SplitAndTrim("  ,  "))
}
