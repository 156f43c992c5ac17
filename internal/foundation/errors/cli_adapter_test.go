package errors

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation", err: ValidationError("invalid input").Build(), expected: 2},
		{name: "not found", err: NotFoundError("no history").Build(), expected: 4},
		{name: "config", err: ConfigError("bad config").Build(), expected: 7},
		{name: "network", err: NetworkError("nats down").Build(), expected: 8},
		{name: "content", err: ContentError("bad front matter").Build(), expected: 9},
		{name: "template", err: TemplateError("missing template").Build(), expected: 9},
		{name: "internal", err: InternalError("panic").Build(), expected: 10},
		{name: "build", err: BuildError("duplicate slug").Build(), expected: 11},
		{name: "filesystem", err: FileSystemError("write failed").Build(), expected: 11},
		{name: "runtime", err: RuntimeError("bind failed").Build(), expected: 12},
		{name: "unknown category", err: NewError("mystery", "x").Build(), expected: 1},
		{name: "unclassified", err: errors.New("unknown error"), expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	require.Empty(t, adapter.FormatError(nil))
	require.Equal(t, "Error: unknown error", adapter.FormatError(errors.New("unknown error")))
	require.Equal(t, "Error: missing title", adapter.FormatError(ConfigError("missing title").Build()))

	wrapped := WrapError(errors.New("permission denied"), CategoryFileSystem, "write output").Build()
	require.Equal(t, "Error: write output: permission denied", adapter.FormatError(wrapped))
}

func TestCLIErrorAdapter_FormatErrorVerboseIncludesContext(t *testing.T) {
	adapter := NewCLIErrorAdapter(true, slog.Default())

	got := adapter.FormatError(ContentError("parse post").WithContext("path", "posts/a.md").Build())
	require.Contains(t, got, "[content:error] parse post")
	require.Contains(t, got, "posts/a.md")
}

func TestCLIErrorAdapter_Report(t *testing.T) {
	var logs, out bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logs, nil)))

	code := adapter.Report(&out, ConfigError("title is required").Build())
	assert.Equal(t, 7, code)
	assert.Equal(t, "Error: title is required\n", out.String())
	assert.Contains(t, logs.String(), "category=config")

	logs.Reset()
	out.Reset()
	code = adapter.Report(&out, TemplateError("render failed").Build())
	assert.Equal(t, 9, code)
	assert.Empty(t, logs.String(), "non-fatal errors are only printed")

	assert.Equal(t, 0, adapter.Report(&out, nil))
}
