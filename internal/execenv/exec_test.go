package execenv

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dverrors "github.com/systmms/dsvault/internal/errors"
	"github.com/systmms/dsvault/internal/logging"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestMaskValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", "(empty)"},
		{"single_char", "a", "*"},
		{"three_chars", "abc", "***"},
		{"four_chars", "abcd", "a**d"},
		{"eight_chars", "abcdefgh", "a******h"},
		{"nine_chars", "abcdefghi", "abc********hi"},
		{"long_value", "mysupersecretpassword", "mys********rd"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, MaskValue(tt.input))
		})
	}
}

func TestBuildEnvironment(t *testing.T) {
	t.Parallel()

	base := []string{"PATH=/usr/bin", "API_KEY=parent", "EMPTY=", "MALFORMED"}

	tests := []struct {
		name         string
		vars         map[string]string
		keepExisting bool
		want         []string
	}{
		{
			name: "injected wins",
			vars: map[string]string{"API_KEY": "child", "NEW": "x"},
			want: []string{"API_KEY=child", "EMPTY=", "NEW=x", "PATH=/usr/bin"},
		},
		{
			name:         "parent wins with keep existing",
			vars:         map[string]string{"API_KEY": "child", "NEW": "x"},
			keepExisting: true,
			want:         []string{"API_KEY=parent", "EMPTY=", "NEW=x", "PATH=/usr/bin"},
		},
		{
			name: "value containing equals",
			vars: map[string]string{"DSN": "user=a password=b"},
			want: []string{"API_KEY=parent", "DSN=user=a password=b", "EMPTY=", "PATH=/usr/bin"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, BuildEnvironment(base, tt.vars, tt.keepExisting))
		})
	}
}

func TestPrintMasked(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	PrintMasked(&buf, map[string]string{"B_TOKEN": "mysupersecretpassword", "A_KEY": "abcd"})
	assert.Equal(t, "Resolved 2 environment variables:\n  A_KEY=a**d\n  B_TOKEN=mys********rd\n", buf.String())

	buf.Reset()
	PrintMasked(&buf, nil)
	assert.Equal(t, "No environment variables resolved\n", buf.String())
}

func TestRunInjectsEnvironment(t *testing.T) {
	t.Parallel()
	requireShell(t)

	var stdout, stderr bytes.Buffer
	err := New(logging.Discard()).Run(context.Background(), Options{
		Command:     []string{"sh", "-c", `printf '%s' "$DSVAULT_EXEC_TEST"`},
		Environment: map[string]string{"DSVAULT_EXEC_TEST": "injected-value"},
		PrintVars:   true,
		Stdout:      &stdout,
		Stderr:      &stderr,
	})
	require.NoError(t, err)
	assert.Equal(t, "injected-value", stdout.String())
	assert.Contains(t, stderr.String(), "DSVAULT_EXEC_TEST=inj********ue")
	assert.NotContains(t, stderr.String(), "injected-value")
}

func TestRunWorkingDirAndStdin(t *testing.T) {
	t.Parallel()
	requireShell(t)

	dir := t.TempDir()
	var stdout bytes.Buffer
	err := New(nil).Run(context.Background(), Options{
		Command:    []string{"sh", "-c", "pwd; cat"},
		WorkingDir: dir,
		Stdin:      strings.NewReader("from-stdin"),
		Stdout:     &stdout,
		Stderr:     &bytes.Buffer{},
	})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "from-stdin")
}

func TestRunPropagatesExitCode(t *testing.T) {
	t.Parallel()
	requireShell(t)

	err := New(nil).Run(context.Background(), Options{
		Command: []string{"sh", "-c", "exit 3"},
		Stdout:  &bytes.Buffer{},
		Stderr:  &bytes.Buffer{},
	})
	var exitErr ChildExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
}

func TestRunTimeout(t *testing.T) {
	t.Parallel()
	requireShell(t)

	err := New(nil).Run(context.Background(), Options{
		Command: []string{"sh", "-c", "exec sleep 5"},
		Timeout: 50 * time.Millisecond,
		Stdout:  &bytes.Buffer{},
		Stderr:  &bytes.Buffer{},
	})
	var cmdErr dverrors.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Contains(t, cmdErr.Message, "killed after")
}

func TestRunErrors(t *testing.T) {
	t.Parallel()

	e := New(nil)

	err := e.Run(context.Background(), Options{})
	var userErr dverrors.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "No command specified", userErr.Message)

	err = e.Run(context.Background(), Options{Command: []string{"dsvault-no-such-command-xyz"}})
	var cmdErr dverrors.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "command not found", cmdErr.Message)
}
