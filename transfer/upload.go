package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dva/clients"
	"dva/errs"
	"dva/models"
)

// Uploader adds local files to a dataset
type Uploader struct {
	Transport clients.Transport
}

// NewUploader creates a new uploader
func NewUploader(t clients.Transport) *Uploader {
	return &Uploader{Transport: t}
}

type uploadMetadata struct {
	PID            string `json:"pid"`
	Filename       string `json:"filename"`
	DirectoryLabel string `json:"directoryLabel,omitempty"`
}

// Upload sends localPath to the dataset under directoryLabel; an empty
// label places the file at the dataset root. No retry is attempted.
func (u *Uploader) Upload(ctx context.Context, datasetID, localPath, directoryLabel string) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", localPath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", localPath)
	}

	meta := uploadMetadata{
		PID:            datasetID,
		Filename:       filepath.Base(localPath),
		DirectoryLabel: strings.Trim(directoryLabel, "/"),
	}
	jsonData, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode jsonData: %w", err)
	}

	resp, err := u.Transport.PostMultipart(ctx, models.UploadRequest{
		DatasetID: datasetID,
		FilePath:  localPath,
		Filename:  meta.Filename,
		JSONData:  jsonData,
	})
	if err != nil {
		return &errs.UploadError{Message: fmt.Sprintf("Uploading %s failed: %v", localPath, err), Err: err}
	}

	return InterpretUploadResponse(resp.StatusCode, resp.Body)
}

// InterpretUploadResponse turns an add-file response into an error, nil
// meaning the repository accepted the file.
func InterpretUploadResponse(statusCode int, body []byte) error {
	var parsed struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Status != "" {
		if parsed.Status == "OK" {
			return nil
		}
		msg := parsed.Status
		if parsed.Message != "" {
			msg += " " + parsed.Message
		}
		return &errs.UploadError{StatusCode: statusCode, Message: msg}
	}

	if statusCode >= 500 {
		return &errs.UploadError{
			StatusCode: statusCode,
			Message:    fmt.Sprintf("Received %d error.\n\n%s", statusCode, body),
		}
	}

	return &errs.MalformedResponseError{
		What:  fmt.Sprintf("upload response with status %d has no JSON status", statusCode),
		Value: clients.ServerMessage(body),
	}
}
