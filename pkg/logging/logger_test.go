package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestStructuredLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("energy-test", "1.0.0", InfoLevel)
	logger.SetOutput(&buf)

	ctx := context.Background()
	logger.Debug(ctx, "[TEST] hidden", nil)
	logger.Info(ctx, "[TEST] shown", Fields{"points": 4})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "[TEST] shown", entries[0]["message"])
	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "energy-test", entries[0]["service"])
	assert.EqualValues(t, 4, entries[0]["points"])

	buf.Reset()
	logger.SetLevel(DebugLevel)
	logger.Debug(ctx, "[TEST] now visible", nil)
	assert.Len(t, decodeLines(t, &buf), 1)
}

func TestStructuredLogger_ContextAndError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("energy-test", "1.0.0", DebugLevel)
	logger.SetOutput(&buf)

	ctx := WithUserID(WithRequestID(context.Background(), "req-1"), "user-1")
	logger.Error(ctx, "[TEST_ERROR] failed", Fields{"table": "house_load"}, errors.New("boom"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0]["request_id"])
	assert.Equal(t, "user-1", entries[0]["user_id"])
	assert.Equal(t, "boom", entries[0]["error"])
	assert.Contains(t, entries[0], "file")
}

func TestStructuredLogger_FatalUsesExit(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("energy-test", "1.0.0", InfoLevel)
	logger.SetOutput(&buf)

	code := -1
	logger.exit = func(c int) { code = c }
	logger.Fatal(context.Background(), "[TEST_FATAL] stop", nil, errors.New("fatal"))

	assert.Equal(t, 1, code)
	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "stack_trace")
}

func TestContextLogger_MergeFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("energy-test", "1.0.0", InfoLevel)
	logger.SetOutput(&buf)

	logger.WithFields(Fields{"series": "solar", "user": "a"}).Info(context.Background(), "[TEST] merged", Fields{"user": "b"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "solar", entries[0]["series"])
	assert.Equal(t, "b", entries[0]["user"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
	assert.Equal(t, "FATAL", FatalLevel.String())
}
