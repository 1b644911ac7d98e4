package transfer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dva/errs"
	"dva/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInterpretUploadResponse(t *testing.T) {
	assert.NoError(t, InterpretUploadResponse(200, []byte(`{"status":"OK"}`)))

	err := InterpretUploadResponse(400, []byte(`{"status":"ERROR","message":"Failure"}`))
	var upErr *errs.UploadError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "ERROR Failure", upErr.Error())

	err = InterpretUploadResponse(200, []byte(`{"status":"bad"}`))
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "bad", upErr.Error())

	err = InterpretUploadResponse(503, []byte("System Broken"))
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "Received 503 error.\n\nSystem Broken", upErr.Error())
	assert.Equal(t, 503, upErr.StatusCode)

	err = InterpretUploadResponse(404, []byte("<html>Not Found</html>"))
	var malformed *errs.MalformedResponseError
	assert.ErrorAs(t, err, &malformed)
}

func TestUpload(t *testing.T) {
	src := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(src, []byte("123"), 0o644))

	tr := &mockTransport{}
	tr.On("PostMultipart", mock.Anything, models.UploadRequest{
		DatasetID: "doi:10.70122/FK2/WUU4DM",
		FilePath:  src,
		Filename:  "data.txt",
		JSONData:  []byte(`{"pid":"doi:10.70122/FK2/WUU4DM","filename":"data.txt"}`),
	}).Return(&models.UploadResponse{StatusCode: 200, Body: []byte(`{"status":"OK"}`)}, nil).Once()
	tr.On("PostMultipart", mock.Anything, models.UploadRequest{
		DatasetID: "doi:10.70122/FK2/WUU4DM",
		FilePath:  src,
		Filename:  "data.txt",
		JSONData:  []byte(`{"pid":"doi:10.70122/FK2/WUU4DM","filename":"data.txt","directoryLabel":"results"}`),
	}).Return(&models.UploadResponse{StatusCode: 200, Body: []byte(`{"status":"OK"}`)}, nil).Once()

	u := NewUploader(tr)
	require.NoError(t, u.Upload(context.Background(), "doi:10.70122/FK2/WUU4DM", src, ""))
	require.NoError(t, u.Upload(context.Background(), "doi:10.70122/FK2/WUU4DM", src, "results"))
	tr.AssertExpectations(t)
}

func TestUploadRejected(t *testing.T) {
	src := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(src, []byte("123"), 0o644))

	tr := &mockTransport{}
	tr.On("PostMultipart", mock.Anything, mock.Anything).
		Return(&models.UploadResponse{StatusCode: 400, Body: []byte(`{"status":"ERROR","message":"Failure"}`)}, nil)

	err := NewUploader(tr).Upload(context.Background(), "doi:x", src, "")
	assert.EqualError(t, err, "ERROR Failure")
}

func TestUploadTransportError(t *testing.T) {
	src := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(src, []byte("123"), 0o644))

	tr := &mockTransport{}
	cause := errors.New("connection refused")
	tr.On("PostMultipart", mock.Anything, mock.Anything).Return(nil, cause)

	err := NewUploader(tr).Upload(context.Background(), "doi:x", src, "")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, errs.KindNetwork, errs.Classify(err))
}

func TestUploadMissingFile(t *testing.T) {
	tr := &mockTransport{}
	err := NewUploader(tr).Upload(context.Background(), "doi:x", filepath.Join(t.TempDir(), "nope"), "")
	assert.Error(t, err)
	tr.AssertNotCalled(t, "PostMultipart", mock.Anything, mock.Anything)
}
