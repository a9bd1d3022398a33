package utils

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateOfflineSessionID(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 589_000_000, time.UTC)
	id := GenerateOfflineSessionID(now)

	require.True(t, strings.HasPrefix(id, "offline-"))

	millis, err := strconv.ParseInt(strings.TrimPrefix(id, "offline-"), 10, 64)
	require.NoError(t, err)
	require.Equal(t, now.UnixMilli(), millis)
}

func TestTruncateString(t *testing.T) {
	require.Equal(t, "short", TruncateString("short", 10))
	require.Equal(t, "abcdefg...", TruncateString("abcdefghijkl", 10))
	require.Equal(t, "", TruncateString("", 5))
}

func TestStringSliceContains(t *testing.T) {
	slice := []string{"a", "b", "c"}
	require.True(t, StringSliceContains(slice, "b"))
	require.False(t, StringSliceContains(slice, "d"))
	require.False(t, StringSliceContains(nil, "a"))
}

func TestRemoveStringFromSlice(t *testing.T) {
	require.Equal(t, []string{"a", "c"}, RemoveStringFromSlice([]string{"a", "b", "c"}, "b"))
	require.Equal(t, []string{"a"}, RemoveStringFromSlice([]string{"a"}, "b"))
}

func TestUniqueStrings(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, UniqueStrings([]string{"a", "b", "a", "c", "b"}))
}

func TestGenerateUUIDIsUnique(t *testing.T) {
	require.NotEqual(t, GenerateUUID(), GenerateUUID())
}
