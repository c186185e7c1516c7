package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Disk is the durable tier. Files are named by the SHA-256 hex digest of
// the cache key, so arbitrary descriptor content (including characters
// unsafe for filenames) maps onto stable paths that survive restarts.
// There is no automatic eviction: files persist until an explicit Clear.
//
// All reads fail soft — a missing, unreadable or corrupt file is a miss,
// never an error the caller has to handle.
type Disk struct {
	dir string
	ext string

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// DiskOption configures a Disk tier.
type DiskOption func(*Disk) error

// WithExtension sets the filename extension for cache files. Default ".png".
func WithExtension(ext string) DiskOption {
	return func(d *Disk) error {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		d.ext = ext
		return nil
	}
}

// WithCompression enables zstd compression of cache files at the given
// level. Compressed files carry an extra ".zst" suffix; existing
// uncompressed entries remain readable. Off by default so files hold the
// provider bytes verbatim.
func WithCompression(level int) DiskOption {
	return func(d *Disk) error {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		if err != nil {
			return fmt.Errorf("create zstd encoder: %w", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return fmt.Errorf("create zstd decoder: %w", err)
		}
		d.enc, d.dec = enc, dec
		return nil
	}
}

// NewDisk creates the durable tier rooted at dir, creating the directory if
// absent.
func NewDisk(dir string, opts ...DiskOption) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	d := &Disk{dir: dir, ext: ".png"}
	for _, o := range opts {
		if err := o(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Get retrieves the bytes stored for key. Any read failure degrades to a
// miss so the caller falls through to regeneration.
func (d *Disk) Get(key string) ([]byte, bool) {
	if d.dec != nil {
		if data, err := os.ReadFile(d.path(key) + ".zst"); err == nil {
			plain, err := d.dec.DecodeAll(data, nil)
			if err == nil {
				return plain, true
			}
			// Corrupt file: drop it and fall through to the plain path.
			os.Remove(d.path(key) + ".zst")
		}
	}

	data, err := os.ReadFile(d.path(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set writes the bytes for key atomically (temp file + rename). Concurrent
// writers under the same key write identical content, so the rename race is
// harmless.
func (d *Disk) Set(key string, val []byte) error {
	path := d.path(key)
	if d.enc != nil {
		val = d.enc.EncodeAll(val, nil)
		path += ".zst"
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, val, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename cache file: %w", err)
	}
	return nil
}

// Clear deletes every cache file in the directory.
func (d *Disk) Clear() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("read cache directory: %w", err)
	}
	var firstErr error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, d.ext) && !strings.HasSuffix(name, d.ext+".zst") {
			continue
		}
		if err := os.Remove(filepath.Join(d.dir, name)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Dir returns the cache directory.
func (d *Disk) Dir() string { return d.dir }

// path maps a cache key onto its file location.
func (d *Disk) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(d.dir, hex.EncodeToString(sum[:])+d.ext)
}
