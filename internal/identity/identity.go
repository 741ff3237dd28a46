// Package identity computes content fingerprints used as the conversion
// ledger's deduplication key. Fingerprints are derived purely from file bytes,
// so a renamed or moved file keeps its identity.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"lectern/internal/services"
)

const chunkSize = 64 * 1024

// Fingerprint reads the file in fixed-size chunks and folds them through
// SHA-256, returning the lowercase hex digest. The file is opened read-only
// with no exclusive lock, so concurrent readers are unaffected.
func Fingerprint(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrFileRead, "identity", "fingerprint", path, err)
	}
	defer file.Close()

	digest := sha256.New()
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(digest, file, buf); err != nil {
		return "", services.Wrap(services.ErrFileRead, "identity", "fingerprint", path, err)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}
