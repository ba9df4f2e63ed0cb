// Package fakes provides test doubles for dsvault's pluggable dependencies:
// the OS keyring, master key providers and cipher backends.
//
// Fakes are manually implemented (not generated) to provide precise control
// over test behavior, including call counting and blocking.
//
// Usage:
//
//	kr := fakes.NewFakeKeyringClient()
//	kr.SetSecret("dsvault", "master-key", "passphrase")
//	provider := keys.NewKeyringProviderWithClient("dsvault", "master-key", kr)
package fakes
