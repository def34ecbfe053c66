package acquire

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
)

// shortID is the directory-name prefix of an identity.
const shortID = 16

func nonEmptyFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

func hashFile(h hash.Hash, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(h, f)
	return err
}

// identity combines a storage id with the content of an optional caption
// file so supplied-caption runs key on both inputs.
func identity(storageID, captionPath string) (string, error) {
	if captionPath == "" {
		return storageID, nil
	}
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%s\x00captions\x00", storageID)
	if err := hashFile(h, captionPath); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func storageDir(dir, id string) string {
	if len(id) > shortID {
		id = id[:shortID]
	}
	return filepath.Join(dir, id)
}
