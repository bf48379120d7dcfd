package updater

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifact")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVerifyChecksum(t *testing.T) {
	content := []byte("artifact payload")
	sum := sha256.Sum256(content)
	correct := hex.EncodeToString(sum[:])

	// Flip one hex character.
	flipped := []byte(correct)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}

	path := writeTestFile(t, content)

	tests := []struct {
		name     string
		expected string
		want     bool
	}{
		{"correct hash", correct, true},
		{"uppercase hash", strings.ToUpper(correct), true},
		{"flipped character", string(flipped), false},
		{"empty expected skips verification", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VerifyChecksum(path, tt.expected)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("VerifyChecksum(_, %q) = %v, want %v", tt.expected, got, tt.want)
			}
		})
	}
}

func TestVerifyChecksum_MissingFile(t *testing.T) {
	_, err := VerifyChecksum(filepath.Join(t.TempDir(), "nope"), "abcd")
	if err == nil {
		t.Fatal("expected error for missing file")
	}

	// Without an expected hash the file is never read.
	ok, err := VerifyChecksum(filepath.Join(t.TempDir(), "nope"), "")
	if err != nil || !ok {
		t.Fatalf("VerifyChecksum with empty expected = %v, %v; want true, nil", ok, err)
	}
}
