package clients

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"dva/config"
	"dva/models"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/http2"
)

// NativeClient talks to the repository over net/http with HTTP/2 enabled,
// streaming both directions.
type NativeClient struct {
	BaseURL string
	Token   string
	client  *http.Client
}

// NewNativeClient creates a new native HTTP/2 client
func NewNativeClient(creds config.Credentials, opts Options) (*NativeClient, error) {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, fmt.Errorf("failed to enable HTTP/2: %w", err)
	}

	return &NativeClient{
		BaseURL: creds.BaseURL,
		Token:   creds.APIToken,
		client: &http.Client{
			Transport:     tr,
			Timeout:       opts.Timeout,
			CheckRedirect: dropTokenOffHost,
		},
	}, nil
}

func (nc *NativeClient) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if nc.Token != "" {
		req.Header.Set(TokenHeader, nc.Token)
	}
	return req, nil
}

// Fetch downloads a datafile, the body is streamed from the connection
func (nc *NativeClient) Fetch(ctx context.Context, req models.FetchRequest) (*models.FetchResponse, error) {
	httpReq, err := nc.newRequest(ctx, http.MethodGet, DatafileURL(nc.BaseURL, req.FileID, req.Original), nil)
	if err != nil {
		return nil, err
	}

	resp, err := nc.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}

	return &models.FetchResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// PostMultipart uploads a file without buffering it, the multipart body is
// produced through a pipe while the request is sent.
func (nc *NativeClient) PostMultipart(ctx context.Context, req models.UploadRequest) (*models.UploadResponse, error) {
	f, err := os.Open(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", req.FilePath, err)
	}
	defer f.Close()

	contentType := "application/octet-stream"
	if mtype, err := mimetype.DetectFile(req.FilePath); err == nil {
		contentType = mtype.String()
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeMultipart(mw, f, req, contentType))
	}()

	httpReq, err := nc.newRequest(ctx, http.MethodPost, AddFileURL(nc.BaseURL, req.DatasetID), pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := nc.client.Do(httpReq)
	// unblocks the writer goroutine if the request ended early
	pr.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}

	return &models.UploadResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

func writeMultipart(mw *multipart.Writer, file io.Reader, req models.UploadRequest, contentType string) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(req.Filename)))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	if err := mw.WriteField("jsonData", string(req.JSONData)); err != nil {
		return err
	}
	return mw.Close()
}
