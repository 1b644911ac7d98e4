package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"dva/errs"
	"dva/models"
)

// MD5 is the only algorithm tag the repository is expected to send
const MD5 = "MD5"

// HashFile computes the MD5 digest of the file at path, hex-encoded lowercase.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	buf := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify checks the file at path against the expected checksum. The
// algorithm tag must be exactly MD5; the hex digest is case-insensitive.
func Verify(path string, expected models.Checksum) error {
	if expected.Type != MD5 {
		return &errs.UnsupportedAlgorithmError{Algorithm: expected.Type}
	}

	actual, err := HashFile(path)
	if err != nil {
		return err
	}

	if !strings.EqualFold(actual, expected.Value) {
		return &errs.ChecksumMismatchError{
			Path:     path,
			Expected: expected.Value,
			Actual:   actual,
		}
	}
	return nil
}
