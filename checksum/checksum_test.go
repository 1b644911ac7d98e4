package checksum

import (
	"os"
	"path/filepath"
	"testing"

	"dva/errs"
	"dva/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestHashFile(t *testing.T) {
	h, err := HashFile(writeFile(t, "123"))
	require.NoError(t, err)
	assert.Equal(t, "202cb962ac59075b964b07152d234b70", h)

	empty, err := HashFile(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", empty)
}

func TestHashFileNotExist(t *testing.T) {
	_, err := HashFile("/nonexistent/file")
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	sum := models.Checksum{Type: "MD5", Value: "202cb962ac59075b964b07152d234b70"}

	path := writeFile(t, "123")
	require.NoError(t, Verify(path, sum))
	// Verifying an unchanged file again gives the same answer.
	require.NoError(t, Verify(path, sum))

	bad := writeFile(t, "124")
	err := Verify(bad, sum)
	var mismatch *errs.ChecksumMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, sum.Value, mismatch.Expected)
	assert.Equal(t, "c8ffe9a587b126f152ed3d89a146b445", mismatch.Actual)
	assert.Equal(t, bad, mismatch.Path)
}

func TestVerifyUppercaseDigest(t *testing.T) {
	path := writeFile(t, "123")
	assert.NoError(t, Verify(path, models.Checksum{Type: "MD5", Value: "202CB962AC59075B964B07152D234B70"}))
}

func TestVerifyUnsupportedAlgorithm(t *testing.T) {
	path := writeFile(t, "123")

	err := Verify(path, models.Checksum{Type: "SHA-1", Value: "40bd001563085fc35165329ea1ff5c5ecbdbbeef"})
	var unsupported *errs.UnsupportedAlgorithmError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "SHA-1", unsupported.Algorithm)
}

func TestVerifyMissingFile(t *testing.T) {
	err := Verify("/nonexistent/file", models.Checksum{Type: "MD5", Value: "x"})
	assert.Error(t, err)
	assert.Equal(t, errs.KindUnknown, errs.Classify(err))
}

func TestVerifyAlgorithmTagIsExact(t *testing.T) {
	path := writeFile(t, "123")

	for _, tag := range []string{"md5", "Md5", " MD5", ""} {
		err := Verify(path, models.Checksum{Type: tag, Value: "202cb962ac59075b964b07152d234b70"})
		var unsupported *errs.UnsupportedAlgorithmError
		require.ErrorAs(t, err, &unsupported, "tag %q", tag)
		assert.Equal(t, tag, unsupported.Algorithm)
	}
}
