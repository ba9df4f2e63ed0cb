package secure

import (
	"bytes"
	"sync"
	"testing"
)

func TestNewSecureBuffer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "creates enclave from bytes", data: []byte("my-secret-password")},
		{name: "handles empty data", data: []byte{}},
		{name: "handles binary data", data: []byte{0x00, 0xFF, 0x10, 0x20}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			want := len(tt.data)
			buf, err := NewSecureBuffer(tt.data)
			if err != nil {
				t.Fatalf("NewSecureBuffer() error = %v", err)
			}
			if buf == nil {
				t.Fatal("NewSecureBuffer() returned nil buffer")
			}
			if buf.Size() != want {
				t.Errorf("Size() = %d, want %d", buf.Size(), want)
			}
			buf.Destroy()
		})
	}
}

func TestSecureBuffer_Reveal(t *testing.T) {
	t.Parallel()

	buf, err := NewSecureString("super-secret-data")
	if err != nil {
		t.Fatalf("NewSecureString() error = %v", err)
	}
	defer buf.Destroy()

	// Reveal is repeatable
	for i := 0; i < 3; i++ {
		got, err := buf.Reveal()
		if err != nil {
			t.Fatalf("Reveal() iteration %d error = %v", i, err)
		}
		if got != "super-secret-data" {
			t.Errorf("Reveal() iteration %d = %q", i, got)
		}
	}
}

func TestSecureBuffer_RevealEmpty(t *testing.T) {
	t.Parallel()

	buf, err := NewSecureString("")
	if err != nil {
		t.Fatalf("NewSecureString() error = %v", err)
	}
	got, err := buf.Reveal()
	if err != nil {
		t.Fatalf("Reveal() error = %v", err)
	}
	if got != "" {
		t.Errorf("Reveal() = %q, want empty", got)
	}
}

func TestSecureBuffer_SourceIsWiped(t *testing.T) {
	t.Parallel()

	src := []byte("wipe-me-please")
	buf, err := NewSecureBuffer(src)
	if err != nil {
		t.Fatalf("NewSecureBuffer() error = %v", err)
	}
	defer buf.Destroy()

	if !bytes.Equal(src, make([]byte, len(src))) {
		t.Error("source slice should be zeroed after enclave creation")
	}
}

func TestSecureBuffer_Destroy(t *testing.T) {
	t.Parallel()

	buf, err := NewSecureString("secret-to-destroy")
	if err != nil {
		t.Fatalf("NewSecureString() error = %v", err)
	}

	buf.Destroy()
	// Double destroy should also not panic (idempotent)
	buf.Destroy()

	if !buf.Destroyed() {
		t.Error("Destroyed() = false after Destroy()")
	}
	if _, err := buf.Reveal(); err != ErrDestroyed {
		t.Errorf("Reveal() after Destroy error = %v, want ErrDestroyed", err)
	}
}

func TestSecureBuffer_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	buf, err := NewSecureString("concurrent-secret")
	if err != nil {
		t.Fatalf("NewSecureString() error = %v", err)
	}
	defer buf.Destroy()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := buf.Reveal()
			if err != nil {
				t.Errorf("Reveal() error = %v", err)
				return
			}
			if got != "concurrent-secret" {
				t.Error("Data mismatch in concurrent access")
			}
		}()
	}
	wg.Wait()
}

// BenchmarkSecureBuffer measures the overhead of secure buffer operations
func BenchmarkSecureBuffer(b *testing.B) {
	b.Run("NewSecureString", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			buf, _ := NewSecureString("benchmark-secret-data")
			buf.Destroy()
		}
	})

	b.Run("Reveal", func(b *testing.B) {
		buf, _ := NewSecureString("benchmark-secret-data")
		defer buf.Destroy()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = buf.Reveal()
		}
	})
}
