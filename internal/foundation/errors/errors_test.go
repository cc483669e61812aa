package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "bookbuilder.yaml").
			Build()

		require.Equal(t, CategoryConfig, err.Category())
		require.Equal(t, SeverityFatal, err.Severity())
		require.Equal(t, "invalid configuration", err.Message())

		file, ok := err.Context().GetString("file")
		require.True(t, ok)
		require.Equal(t, "bookbuilder.yaml", file)
	})

	t.Run("Detection through wrapping", func(t *testing.T) {
		inner := FileSystemError("cannot create output root").Build()
		wrapped := fmt.Errorf("emit: %w", inner)

		require.True(t, IsClassified(wrapped))
		require.True(t, HasCategory(wrapped, CategoryFileSystem))
		require.Equal(t, SeverityFatal, GetSeverity(wrapped))
	})

	t.Run("Defaults for plain errors", func(t *testing.T) {
		plain := errors.New("boom")
		require.False(t, IsClassified(plain))
		require.Equal(t, CategoryInternal, GetCategory(plain))
		require.Equal(t, SeverityError, GetSeverity(plain))
	})
}

func TestErrorBuilder(t *testing.T) {
	t.Run("Wrap keeps cause", func(t *testing.T) {
		cause := errors.New("permission denied")
		err := WrapError(cause, CategoryContent, "read failed").
			Warning().
			WithContext("path", "docs/a.md").
			Build()

		require.ErrorIs(t, err, cause)
		require.Equal(t, SeverityWarning, err.Severity())
		require.Contains(t, err.Error(), "permission denied")
	})

	t.Run("Convenience constructors", func(t *testing.T) {
		tests := []struct {
			name     string
			builder  *ErrorBuilder
			category ErrorCategory
			severity ErrorSeverity
		}{
			{"ConfigError", ConfigError("x"), CategoryConfig, SeverityFatal},
			{"ValidationError", ValidationError("x"), CategoryValidation, SeverityFatal},
			{"NotFoundError", NotFoundError("x"), CategoryNotFound, SeverityFatal},
			{"ContentError", ContentError("x"), CategoryContent, SeverityError},
			{"ReferenceError", ReferenceError("x"), CategoryReference, SeverityError},
			{"RenderError", RenderError("x"), CategoryRender, SeverityError},
			{"BuildError", BuildError("x"), CategoryBuild, SeverityFatal},
			{"FileSystemError", FileSystemError("x"), CategoryFileSystem, SeverityFatal},
			{"RuntimeError", RuntimeError("x"), CategoryRuntime, SeverityFatal},
			{"InternalError", InternalError("x"), CategoryInternal, SeverityFatal},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.builder.Build()
				require.Equal(t, tt.category, err.Category())
				require.Equal(t, tt.severity, err.Severity())
			})
		}
	})

	t.Run("WithContext copies", func(t *testing.T) {
		base := BuildError("stage failed").Build()
		derived := base.WithContext("stage", "render_pages")

		_, ok := base.Context().Get("stage")
		require.False(t, ok)
		stage, _ := derived.Context().GetString("stage")
		require.Equal(t, "render_pages", stage)
		require.ErrorIs(t, derived, base)
	})
}
