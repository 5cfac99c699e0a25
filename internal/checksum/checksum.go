// Package checksum fingerprints chunk files so unchanged ones are not
// ingested twice.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Reader streams r into a SHA-256 digest and returns it hex-encoded along
// with the number of bytes read.
func Reader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
