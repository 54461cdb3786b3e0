//go:build windows || freebsd

package osutil

// RaiseOpenFileLimit is a no-op on systems without RLIMIT_NOFILE support.
func RaiseOpenFileLimit(max uint64) error { return nil }
