// Package errs holds the error taxonomy shared by the transfer core, the
// lister and the configuration layer.
package errs

import (
	"errors"
	"fmt"
)

// ConfigError no resolvable base URL, or an unusable configuration
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// RemoteError non-success response from the repository API
type RemoteError struct {
	StatusCode int
	URL        string
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("request to %s failed: status %d: %s", e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request to %s failed: status %d", e.URL, e.StatusCode)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// MalformedResponseError response violates the expected contract
type MalformedResponseError struct {
	What  string
	Value string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %s: %q", e.What, e.Value)
}

// UnsupportedAlgorithmError checksum algorithm not recognized
type UnsupportedAlgorithmError struct {
	Algorithm string
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("unsupported checksum type %s", e.Algorithm)
}

// ChecksumMismatchError computed digest disagrees with the expected one
type ChecksumMismatchError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("hash value mismatch for %s: %s vs %s", e.Path, e.Expected, e.Actual)
}

// DownloadError failed file retrieval. StatusCode is zero when the failure
// happened below HTTP (connection, local write).
type DownloadError struct {
	FileID     int64
	StatusCode int
	Message    string
	Err        error
}

func (e *DownloadError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("download of file %d failed: %v", e.FileID, e.Err)
	case e.Message != "":
		return fmt.Sprintf("download of file %d failed: status %d: %s", e.FileID, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("download of file %d failed: status %d", e.FileID, e.StatusCode)
	}
}

func (e *DownloadError) Unwrap() error { return e.Err }

// UploadError rejected or failed upload. Message is the user-facing text.
type UploadError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UploadError) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *UploadError) Unwrap() error { return e.Err }

// Kind tags the outcome of a single transfer
type Kind string

const (
	KindNone                 Kind = ""
	KindConfig               Kind = "config"
	KindNetwork              Kind = "network"
	KindStatus               Kind = "status"
	KindMalformed            Kind = "malformed-response"
	KindUnsupportedAlgorithm Kind = "unsupported-algorithm"
	KindChecksumMismatch     Kind = "checksum-mismatch"
	KindUnknown              Kind = "unknown"
)

// Classify maps err onto its outcome tag
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	var (
		cfgErr      *ConfigError
		malformed   *MalformedResponseError
		unsupported *UnsupportedAlgorithmError
		mismatch    *ChecksumMismatchError
		remote      *RemoteError
		download    *DownloadError
		upload      *UploadError
	)
	switch {
	case errors.As(err, &cfgErr):
		return KindConfig
	case errors.As(err, &malformed):
		return KindMalformed
	case errors.As(err, &unsupported):
		return KindUnsupportedAlgorithm
	case errors.As(err, &mismatch):
		return KindChecksumMismatch
	case errors.As(err, &remote):
		if remote.StatusCode == 0 {
			return KindNetwork
		}
		return KindStatus
	case errors.As(err, &download):
		if download.StatusCode == 0 {
			return KindNetwork
		}
		return KindStatus
	case errors.As(err, &upload):
		if upload.StatusCode == 0 {
			return KindNetwork
		}
		return KindStatus
	}
	return KindUnknown
}
