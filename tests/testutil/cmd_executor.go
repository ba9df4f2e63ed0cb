// Package testutil provides testing utilities for dsvault.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	pkgexec "github.com/systmms/dsvault/pkg/exec"
)

// MockCommandExecutor stands in for pkg/exec when testing CLI-backed
// cipher backends.
//
// Example usage:
//
//	mockExec := testutil.NewMockCommandExecutor()
//	mockExec.AddResponse("openssl enc -d", testutil.OpenSSLMockResponses{}.BadDecrypt())
//	backend := cipher.NewOpenSSLWithExecutor("openssl", cipher.Options{}, nil, mockExec)
type MockCommandExecutor struct {
	mu    sync.Mutex
	calls []RecordedCall

	// Responses maps "command arg1 arg2" prefixes to responses. The longest
	// matching prefix wins.
	Responses map[string]MockResponse

	// Handler, when set, answers every call and takes precedence over
	// Responses. It runs without the mock's lock held.
	Handler func(ctx context.Context, req pkgexec.Request) MockResponse

	// DefaultResponse answers calls nothing else matched. When nil such
	// calls fail.
	DefaultResponse *MockResponse
}

// MockResponse is the canned result of one command.
type MockResponse struct {
	Stdout []byte
	Stderr []byte
	Err    error
}

// RecordedCall is one invocation seen by the mock.
type RecordedCall struct {
	Command string
	Args    []string
	Stdin   []byte
	Env     []string
}

// NewMockCommandExecutor creates a mock with no responses.
func NewMockCommandExecutor() *MockCommandExecutor {
	return &MockCommandExecutor{Responses: make(map[string]MockResponse)}
}

// Execute records req and returns the configured response.
func (m *MockCommandExecutor) Execute(ctx context.Context, req pkgexec.Request) ([]byte, []byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, RecordedCall{
		Command: req.Name,
		Args:    append([]string(nil), req.Args...),
		Stdin:   append([]byte(nil), req.Stdin...),
		Env:     append([]string(nil), req.Env...),
	})
	handler := m.Handler
	m.mu.Unlock()

	if handler != nil {
		resp := handler(ctx, req)
		return resp.Stdout, resp.Stderr, resp.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	line := strings.TrimSpace(req.Name + " " + strings.Join(req.Args, " "))
	best, found := "", false
	for prefix := range m.Responses {
		if strings.HasPrefix(line, prefix) && len(prefix) >= len(best) {
			best, found = prefix, true
		}
	}
	if found {
		resp := m.Responses[best]
		return resp.Stdout, resp.Stderr, resp.Err
	}
	if m.DefaultResponse != nil {
		return m.DefaultResponse.Stdout, m.DefaultResponse.Stderr, m.DefaultResponse.Err
	}
	return nil, nil, fmt.Errorf("mock: no response configured for %q", line)
}

// AddResponse registers resp for commands starting with prefix.
func (m *MockCommandExecutor) AddResponse(prefix string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[prefix] = resp
}

// AddOutputResponse registers a successful response printing stdout.
func (m *MockCommandExecutor) AddOutputResponse(prefix, stdout string) {
	m.AddResponse(prefix, MockResponse{Stdout: []byte(stdout)})
}

// Calls returns a copy of every recorded call.
func (m *MockCommandExecutor) Calls() []RecordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RecordedCall(nil), m.calls...)
}

// OpenSSLMockResponses holds canned openssl CLI failures.
type OpenSSLMockResponses struct{}

// BadDecrypt is what openssl prints for a wrong passphrase.
func (OpenSSLMockResponses) BadDecrypt() MockResponse {
	return MockResponse{
		Stderr: []byte("bad decrypt\n40E7A1B8F87F0000:error:1C800064:Provider routines:ossl_cipher_unpadblock:bad decrypt:providers/implementations/ciphers/ciphercommon.c:124:\n"),
		Err:    fmt.Errorf("exit status 1"),
	}
}

// BadMagic is what openssl prints for input without the Salted__ header.
func (OpenSSLMockResponses) BadMagic() MockResponse {
	return MockResponse{
		Stderr: []byte("bad magic number\n"),
		Err:    fmt.Errorf("exit status 1"),
	}
}
