package errors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCLIErrorAdapter_ExitCodes(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain", errors.New("x"), 1},
		{"reference", ReferenceError("broken").Build(), 1},
		{"validation", ValidationError("bad flag").Build(), 2},
		{"not found", NotFoundError("no root").Build(), 4},
		{"config", ConfigError("bad yaml").Build(), 7},
		{"filesystem wrapped", fmt.Errorf("emit: %w", FileSystemError("promote").Build()), 11},
		{"canceled", NewError(CategoryCanceled, "interrupted").Build(), 130},
		{"context canceled", fmt.Errorf("stage: %w", context.Canceled), 130},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	cause := errors.New("no such file or directory")
	err := WrapError(cause, CategoryNotFound, "content root not found").Fatal().Build()

	quiet := NewCLIErrorAdapter(false, nil)
	require.Equal(t, "Error: content root not found: no such file or directory", quiet.FormatError(err))

	verbose := NewCLIErrorAdapter(true, nil)
	require.Contains(t, verbose.FormatError(err), "[not_found:fatal]")

	require.Equal(t, "Error: boom", quiet.FormatError(errors.New("boom")))
}

func TestCLIErrorAdapter_HandleErrorWritesAndReturnsCode(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewCLIErrorAdapter(false, nil)
	adapter.out = &buf

	code := adapter.HandleError(ConfigError("invalid workers").Build())
	require.Equal(t, 7, code)
	require.Equal(t, "Error: invalid workers\n", buf.String())
}
