package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"dva/config"
	"dva/errs"
	"dva/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
)

// DataverseClient client for working with the Dataverse native and data
// access APIs
type DataverseClient struct {
	BaseURL string
	// Buffered reads whole download bodies into memory before returning
	Buffered bool
	client   *resty.Client
}

// NewDataverseClient creates a new Dataverse client
func NewDataverseClient(creds config.Credentials, opts Options) *DataverseClient {
	client := resty.New()
	client.SetDisableWarn(true)
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(dropTokenOffHost))
	if creds.APIToken != "" {
		client.SetHeader(TokenHeader, creds.APIToken)
	}
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	return &DataverseClient{
		BaseURL: creds.BaseURL,
		client:  client,
	}
}

// ListFiles gets the files of the dataset's latest version in server order
func (dc *DataverseClient) ListFiles(ctx context.Context, datasetID string) ([]models.DataFile, error) {
	url := DatasetURL(dc.BaseURL, datasetID)

	resp, err := dc.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(url)
	if err != nil {
		return nil, &errs.RemoteError{URL: url, Err: err}
	}

	if !resp.IsSuccess() {
		return nil, &errs.RemoteError{
			StatusCode: resp.StatusCode(),
			URL:        url,
			Message:    ServerMessage(resp.Body()),
		}
	}

	var dataset struct {
		Data *struct {
			LatestVersion *struct {
				Files *[]models.DataFile `json:"files"`
			} `json:"latestVersion"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &dataset); err != nil {
		return nil, &errs.MalformedResponseError{What: "dataset is not valid JSON", Value: ServerMessage(resp.Body())}
	}

	switch {
	case dataset.Data == nil:
		return nil, &errs.MalformedResponseError{What: "dataset response has no data", Value: url}
	case dataset.Data.LatestVersion == nil:
		return nil, &errs.MalformedResponseError{What: "dataset response has no data.latestVersion", Value: url}
	case dataset.Data.LatestVersion.Files == nil:
		return nil, &errs.MalformedResponseError{What: "dataset response has no data.latestVersion.files", Value: url}
	}

	return *dataset.Data.LatestVersion.Files, nil
}

// Fetch downloads a datafile. Non-2xx responses are returned, not failed.
func (dc *DataverseClient) Fetch(ctx context.Context, req models.FetchRequest) (*models.FetchResponse, error) {
	url := DatafileURL(dc.BaseURL, req.FileID, req.Original)

	if dc.Buffered {
		// whole body is held in memory before Fetch returns
		resp, err := dc.client.R().
			SetContext(ctx).
			Get(url)
		if err != nil {
			return nil, fmt.Errorf("failed to download file: %w", err)
		}

		return &models.FetchResponse{
			StatusCode: resp.StatusCode(),
			Header:     resp.Header(),
			Body:       io.NopCloser(bytes.NewReader(resp.Body())),
		}, nil
	}

	resp, err := dc.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}

	return &models.FetchResponse{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.RawBody(),
	}, nil
}

// PostMultipart uploads a file to the dataset's add-file endpoint
func (dc *DataverseClient) PostMultipart(ctx context.Context, req models.UploadRequest) (*models.UploadResponse, error) {
	url := AddFileURL(dc.BaseURL, req.DatasetID)

	f, err := os.Open(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", req.FilePath, err)
	}
	defer f.Close()

	contentType := "application/octet-stream"
	if mtype, err := mimetype.DetectFile(req.FilePath); err == nil {
		contentType = mtype.String()
	}

	resp, err := dc.client.R().
		SetContext(ctx).
		SetMultipartField("file", req.Filename, contentType, f).
		SetMultipartFormData(map[string]string{"jsonData": string(req.JSONData)}).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	return &models.UploadResponse{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
	}, nil
}
