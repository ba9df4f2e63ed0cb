package exec

import (
	"context"
	"errors"
	osexec "os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealCommandExecutor(t *testing.T) {
	t.Parallel()
	if _, err := LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	tests := []struct {
		name       string
		req        Request
		wantStdout string
		wantStderr string
		wantErr    bool
	}{
		{
			name:       "arguments",
			req:        Request{Name: "sh", Args: []string{"-c", "printf '%s-%s' \"$0\" \"$1\"", "a", "b"}},
			wantStdout: "a-b",
		},
		{
			name:       "stdin is piped",
			req:        Request{Name: "sh", Args: []string{"-c", "cat"}, Stdin: []byte("Salted__...")},
			wantStdout: "Salted__...",
		},
		{
			name:       "env reaches the child only",
			req:        Request{Name: "sh", Args: []string{"-c", `printf %s "$DSVAULT_PASSPHRASE"`}, Env: []string{"DSVAULT_PASSPHRASE=abc"}},
			wantStdout: "abc",
		},
		{
			name:       "stderr kept apart",
			req:        Request{Name: "sh", Args: []string{"-c", "echo out; echo 'bad decrypt' >&2; exit 1"}},
			wantStdout: "out\n",
			wantStderr: "bad decrypt\n",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stdout, stderr, err := DefaultExecutor().Execute(context.Background(), tt.req)
			if tt.wantErr {
				var exitErr *osexec.ExitError
				require.True(t, errors.As(err, &exitErr), "got %v", err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantStdout, string(stdout))
			assert.Equal(t, tt.wantStderr, string(stderr))
		})
	}
}

func TestRealCommandExecutorMissingBinary(t *testing.T) {
	t.Parallel()

	_, _, err := DefaultExecutor().Execute(context.Background(), Request{Name: "dsvault-missing-binary-xyz"})
	assert.ErrorIs(t, err, osexec.ErrNotFound)
}

func TestRealCommandExecutorKilledOnDeadline(t *testing.T) {
	t.Parallel()
	if _, err := LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := DefaultExecutor().Execute(ctx, Request{Name: "sleep", Args: []string{"10"}})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}
