package models

import (
	"io"
	"net/http"
)

// FetchRequest asks a transport for one datafile's bytes
type FetchRequest struct {
	FileID int64
	// Original requests the pre-ingest variant of the file
	Original bool
}

// FetchResponse is returned for any HTTP status; callers own Body and must
// close it.
type FetchResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// UploadRequest one file plus the jsonData metadata of the add-file call
type UploadRequest struct {
	DatasetID string
	FilePath  string
	Filename  string
	JSONData  []byte
}

// UploadResponse raw status and body of the add-file call
type UploadResponse struct {
	StatusCode int
	Body       []byte
}
