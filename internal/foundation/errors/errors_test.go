package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError_DefaultsFollowCategory(t *testing.T) {
	tests := []struct {
		builder  *ErrorBuilder
		category ErrorCategory
		severity ErrorSeverity
		hint     Hint
	}{
		{ConfigError("x"), CategoryConfig, SeverityFatal, HintNone},
		{ValidationError("x"), CategoryValidation, SeverityFatal, HintNone},
		{NotFoundError("x"), CategoryNotFound, SeverityError, HintFixInput},
		{ContentError("x"), CategoryContent, SeverityError, HintFixInput},
		{TemplateError("x"), CategoryTemplate, SeverityError, HintFixInput},
		{BuildError("x"), CategoryBuild, SeverityFatal, HintNone},
		{FileSystemError("x"), CategoryFileSystem, SeverityError, HintRetry},
		{EventStoreError("x"), CategoryEventStore, SeverityError, HintNone},
		{NetworkError("x"), CategoryNetwork, SeverityError, HintRetry},
		{GitError("x"), CategoryGit, SeverityWarning, HintNone},
		{RuntimeError("x"), CategoryRuntime, SeverityFatal, HintNone},
		{InternalError("x"), CategoryInternal, SeverityFatal, HintNone},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			err := tt.builder.Build()
			assert.Equal(t, tt.category, err.Category())
			assert.Equal(t, tt.severity, err.Severity())
			assert.Equal(t, tt.hint, err.Hint())
			assert.Equal(t, tt.severity == SeverityFatal, err.IsFatal())
		})
	}
}

func TestErrorBuilder_Overrides(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(cause, CategoryNetwork, "publish event").
		Warning().
		UserAction().
		WithContext("subject", "blogbuilder.build.completed").
		WithContext("attempt", 2).
		Build()

	assert.Equal(t, SeverityWarning, err.Severity())
	assert.Equal(t, HintFixInput, err.Hint())
	assert.False(t, err.CanRetry())
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "[network:warning] publish event: connection refused", err.Error())

	subject, ok := err.Context().GetString("subject")
	assert.True(t, ok)
	assert.Equal(t, "blogbuilder.build.completed", subject)
	attempt, ok := err.Context().Get("attempt")
	assert.True(t, ok)
	assert.Equal(t, 2, attempt)
	_, ok = err.Context().GetString("attempt")
	assert.False(t, ok)
}

func TestClassifiedError_WithContextCopies(t *testing.T) {
	base := ContentError("parse post").WithContext("path", "a.md").Build()
	derived := base.WithContext("line", 3)

	_, ok := base.Context().Get("line")
	assert.False(t, ok)
	line, _ := derived.Context().Get("line")
	assert.Equal(t, 3, line)
	path, _ := derived.Context().GetString("path")
	assert.Equal(t, "a.md", path)
}

func TestClassifiedError_IsMatchesCategoryAndMessage(t *testing.T) {
	sentinel := BuildError("duplicate slug").Build()
	err := fmt.Errorf("stage load_content: %w", BuildError("duplicate slug").WithContext("slug", "a").Build())

	assert.ErrorIs(t, err, sentinel)
	assert.NotErrorIs(t, err, BuildError("other").Build())
	assert.NotErrorIs(t, err, ContentError("duplicate slug").Build())
}

func TestAsClassified_FindsWrappedError(t *testing.T) {
	inner := ContentError("bad front matter").WithContext("path", "posts/a.md").Build()
	wrapped := fmt.Errorf("load content: %w", inner)

	got, ok := AsClassified(wrapped)
	require.True(t, ok)
	assert.Equal(t, CategoryContent, got.Category())
	assert.True(t, IsClassified(wrapped))
	assert.True(t, HasCategory(wrapped, CategoryContent))
	assert.Equal(t, CategoryContent, GetCategory(wrapped))

	plain := errors.New("plain")
	assert.False(t, IsClassified(plain))
	assert.False(t, HasCategory(plain, CategoryContent))
	assert.Equal(t, CategoryInternal, GetCategory(plain))
}
