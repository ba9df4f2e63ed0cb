// Package secure provides memory-safe handling of decrypted secrets.
//
// The secret store keeps every cached plaintext in a SecureBuffer, a thin
// wrapper over a memguard enclave. While cached, the value is:
//
//   - Encrypted in memory (XSalsa20Poly1305, key held in a locked region)
//   - Kept out of swap and core dumps where the platform allows mlock
//   - Only decrypted into a guarded, locked buffer for the duration of a read
//
// # Usage
//
//	buf, err := secure.NewSecureString(value)
//	if err != nil {
//	    return err
//	}
//	defer buf.Destroy()
//
//	plain, err := buf.Reveal()
//
// Callers that need the bytes without an intermediate string can use Open
// and must Destroy the returned LockedBuffer.
//
// Call memguard.Purge (or memguard.CatchInterrupt) from main so enclave keys
// are wiped on exit.
//
// It does NOT protect against:
//
//   - Attackers with root access to the running process
//   - Copies of the value the caller makes after Reveal
package secure
