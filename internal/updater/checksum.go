package updater

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// checksumBufSize is the fixed read size for streaming digests; artifacts can
// be large and must never be loaded whole into memory here.
const checksumBufSize = 32 * 1024

// VerifyChecksum computes a streaming SHA-256 digest of the file at path and
// compares it, case-insensitively, against expectedHex. An empty expectedHex
// means the manifest author opted out of integrity checking, which counts as
// passing. The error return is for I/O failures only.
func VerifyChecksum(path, expectedHex string) (bool, error) {
	if expectedHex == "" {
		return true, nil
	}

	actual, err := hashFile(path)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, expectedHex), nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening artifact: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, checksumBufSize)); err != nil {
		return "", fmt.Errorf("hashing artifact: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
