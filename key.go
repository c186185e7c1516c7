package imagegen

import "fmt"

// DeriveKey builds the cache key for a descriptor at the given (already
// normalized) dimensions. Plain concatenation keeps the key deterministic
// and stable across restarts, so disk entries from a prior run remain
// valid; the disk tier hashes the key before using it as a filename.
func DeriveKey(descriptor string, width, height int) string {
	return fmt.Sprintf("%s|%dx%d", descriptor, width, height)
}
