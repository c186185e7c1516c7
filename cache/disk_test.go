package cache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDisk_RoundTrip(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}

	if err := d.Set("some|key|512x512", []byte("bytes")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	v, ok := d.Get("some|key|512x512")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(v) != "bytes" {
		t.Fatalf("got %q, want %q", v, "bytes")
	}
}

func TestDisk_MissOnAbsentKey(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	if _, ok := d.Get("nope"); ok {
		t.Fatal("expected miss")
	}
}

func TestDisk_FilenamesStableAcrossInstances(t *testing.T) {
	dir := t.TempDir()

	d1, err := NewDisk(dir)
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	if err := d1.Set("key", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A fresh instance over the same directory must resolve the same file.
	d2, err := NewDisk(dir)
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	v, ok := d2.Get("key")
	if !ok || string(v) != "v" {
		t.Fatalf("entry not visible across instances: ok=%v v=%q", ok, v)
	}
}

// Keys with characters that are unsafe for filenames must still map to
// valid paths.
func TestDisk_HandlesHostileKeys(t *testing.T) {
	d, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}

	key := "a/b\\c:d*e?\"<>|\x00\n|9999x9999"
	if err := d.Set(key, []byte("ok")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok := d.Get(key); !ok || string(v) != "ok" {
		t.Fatalf("lookup failed: ok=%v v=%q", ok, v)
	}
}

func TestDisk_Clear(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(dir)
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}

	for _, k := range []string{"a", "b", "c"} {
		if err := d.Set(k, []byte(k)); err != nil {
			t.Fatalf("Set %q: %v", k, err)
		}
	}
	// A foreign file in the directory must survive Clear.
	foreign := filepath.Join(dir, "README.txt")
	if err := os.WriteFile(foreign, []byte("keep"), 0o644); err != nil {
		t.Fatalf("write foreign file: %v", err)
	}

	if err := d.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	for _, k := range []string{"a", "b", "c"} {
		if _, ok := d.Get(k); ok {
			t.Fatalf("key %q survived Clear", k)
		}
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Fatalf("foreign file removed by Clear: %v", err)
	}
}

func TestDisk_CompressionRoundTrip(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDisk(dir, WithCompression(3))
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}

	payload := make([]byte, 4096) // zeros compress well
	if err := d.Set("key", payload); err != nil {
		t.Fatalf("Set: %v", err)
	}

	v, ok := d.Get("key")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(v) != len(payload) {
		t.Fatalf("got %d bytes, want %d", len(v), len(payload))
	}
}

// Entries written before compression was enabled stay readable.
func TestDisk_CompressionReadsPlainFallback(t *testing.T) {
	dir := t.TempDir()

	plain, err := NewDisk(dir)
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	if err := plain.Set("key", []byte("old")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	compressed, err := NewDisk(dir, WithCompression(3))
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	if v, ok := compressed.Get("key"); !ok || string(v) != "old" {
		t.Fatalf("plain fallback failed: ok=%v v=%q", ok, v)
	}
}
