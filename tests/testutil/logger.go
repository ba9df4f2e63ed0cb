package testutil

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/systmms/dsvault/internal/logging"
)

// LogCapture records the output of a real logging.Logger so tests can
// check what was reported and that secret values never were.
//
// Example usage:
//
//	logs := testutil.NewLogCapture(t, false)
//	store, _ := secretstore.New(dir, secretstore.Options{Logger: logs.Logger, ...})
//	...
//	logs.AssertContains(t, "Failed to list secrets")
//	logs.AssertNotContains(t, "hunter2")
type LogCapture struct {
	Logger *logging.Logger
	buf    *syncBuffer
}

// NewLogCapture creates a capture with colors disabled.
func NewLogCapture(t *testing.T, debug bool) *LogCapture {
	t.Helper()

	buf := &syncBuffer{}
	return &LogCapture{
		Logger: logging.NewWithWriter(buf, debug, true),
		buf:    buf,
	}
}

// Output returns everything logged so far.
func (c *LogCapture) Output() string {
	return c.buf.String()
}

// Lines returns the logged lines without the trailing empty line.
func (c *LogCapture) Lines() []string {
	out := strings.TrimSuffix(c.Output(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// AssertContains fails the test if substr was not logged.
func (c *LogCapture) AssertContains(t *testing.T, substr string) {
	t.Helper()
	assert.Contains(t, c.Output(), substr, "expected log output to contain %q", substr)
}

// AssertNotContains fails the test if substr was logged.
func (c *LogCapture) AssertNotContains(t *testing.T, substr string) {
	t.Helper()
	assert.NotContains(t, c.Output(), substr, "log output must not contain %q", substr)
}

// AssertNoSecrets fails the test if any of values appears in the output.
func (c *LogCapture) AssertNoSecrets(t *testing.T, values ...string) {
	t.Helper()
	for _, v := range values {
		c.AssertNotContains(t, v)
	}
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
