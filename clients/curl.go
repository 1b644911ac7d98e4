package clients

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"dva/config"
	"dva/models"
)

// CurlClient shells out to an external curl process for each transfer.
// Headers and body land in a private temp directory that is removed when
// the response body is closed.
type CurlClient struct {
	BaseURL string
	Token   string
	Path    string
	opts    Options
}

// NewCurlClient creates a client that runs the curl binary found on PATH,
// or opts.CurlPath when set
func NewCurlClient(creds config.Credentials, opts Options) (*CurlClient, error) {
	bin := opts.CurlPath
	if bin == "" {
		bin = "curl"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("curl transport unavailable: %w", err)
	}

	return &CurlClient{
		BaseURL: creds.BaseURL,
		Token:   creds.APIToken,
		Path:    path,
		opts:    opts,
	}, nil
}

// baseArgs common flags. The token is passed through a header file so it
// never shows up in the process list. Redirects are not followed by curl,
// see fetch.
func (cc *CurlClient) baseArgs(dir string, withToken bool) ([]string, error) {
	args := []string{"--silent", "--show-error", "--write-out", "%{http_code}"}

	if withToken && cc.Token != "" {
		headerFile := filepath.Join(dir, "request-headers")
		if err := os.WriteFile(headerFile, []byte(TokenHeader+": "+cc.Token+"\n"), 0o600); err != nil {
			return nil, fmt.Errorf("failed to write curl header file: %w", err)
		}
		args = append(args, "--header", "@"+headerFile)
	}
	if cc.opts.Timeout > 0 {
		args = append(args, "--max-time", strconv.FormatFloat(cc.opts.Timeout.Seconds(), 'f', -1, 64))
	}
	return args, nil
}

func (cc *CurlClient) run(ctx context.Context, args []string) (int, error) {
	cmd := exec.CommandContext(ctx, cc.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("curl failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	code, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil || code == 0 {
		return 0, fmt.Errorf("curl reported no HTTP status (%q): %s", out, strings.TrimSpace(stderr.String()))
	}
	return code, nil
}

// Fetch downloads a datafile into a temp file and hands it back as the body
func (cc *CurlClient) Fetch(ctx context.Context, req models.FetchRequest) (*models.FetchResponse, error) {
	dir, err := os.MkdirTemp("", "dva-curl-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create curl work dir: %w", err)
	}

	resp, err := cc.fetch(ctx, dir, req)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return resp, nil
}

// fetch follows redirects itself so the token header only goes to the
// repository host; curl --location would repeat it to every hop.
func (cc *CurlClient) fetch(ctx context.Context, dir string, req models.FetchRequest) (*models.FetchResponse, error) {
	headerPath := filepath.Join(dir, "headers")
	bodyPath := filepath.Join(dir, "body")

	start, err := url.Parse(DatafileURL(cc.BaseURL, req.FileID, req.Original))
	if err != nil {
		return nil, err
	}

	target := start
	for hops := 0; ; hops++ {
		args, err := cc.baseArgs(dir, sameHost(start, target))
		if err != nil {
			return nil, err
		}
		args = append(args, "--dump-header", headerPath, "--output", bodyPath, target.String())

		code, err := cc.run(ctx, args)
		if err != nil {
			return nil, fmt.Errorf("failed to download file: %w", err)
		}

		header, err := readDumpedHeader(headerPath)
		if err != nil {
			return nil, fmt.Errorf("failed to parse curl headers: %w", err)
		}

		location := header.Get("Location")
		if !isRedirect(code) || location == "" {
			return cc.response(dir, bodyPath, code, header)
		}
		if hops+1 >= maxRedirects {
			return nil, fmt.Errorf("failed to download file: stopped after %d redirects", maxRedirects)
		}

		next, err := target.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("bad redirect location %q: %w", location, err)
		}
		target = next
		_ = os.Remove(bodyPath)
	}
}

func (cc *CurlClient) response(dir, bodyPath string, code int, header http.Header) (*models.FetchResponse, error) {
	// curl does not create the output file for an empty body
	f, err := os.Open(bodyPath)
	if errors.Is(err, os.ErrNotExist) {
		return &models.FetchResponse{
			StatusCode: code,
			Header:     header,
			Body:       &tempBody{Reader: strings.NewReader(""), dir: dir},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return &models.FetchResponse{
		StatusCode: code,
		Header:     header,
		Body:       &tempBody{Reader: f, file: f, dir: dir},
	}, nil
}

// PostMultipart uploads a file with curl --form
func (cc *CurlClient) PostMultipart(ctx context.Context, req models.UploadRequest) (*models.UploadResponse, error) {
	dir, err := os.MkdirTemp("", "dva-curl-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create curl work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	args, err := cc.baseArgs(dir, true)
	if err != nil {
		return nil, err
	}

	bodyPath := filepath.Join(dir, "body")
	args = append(args,
		"--form", fmt.Sprintf(`file=@"%s";filename="%s"`, quoteEscaper.Replace(req.FilePath), quoteEscaper.Replace(req.Filename)),
		"--form-string", "jsonData="+string(req.JSONData),
		"--output", bodyPath,
		AddFileURL(cc.BaseURL, req.DatasetID),
	)

	code, err := cc.run(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	body, err := os.ReadFile(bodyPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}

	return &models.UploadResponse{StatusCode: code, Body: body}, nil
}

// readDumpedHeader parses the last header block of a --dump-header file;
// earlier blocks belong to redirects.
func readDumpedHeader(path string) (http.Header, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	blocks := strings.Split(strings.TrimSpace(text), "\n\n")
	last := blocks[len(blocks)-1]

	tp := textproto.NewReader(bufio.NewReader(strings.NewReader(last + "\n\n")))
	// status line
	if _, err := tp.ReadLine(); err != nil {
		return nil, err
	}
	mh, err := tp.ReadMIMEHeader()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return http.Header(mh), nil
}

type tempBody struct {
	io.Reader
	file *os.File
	dir  string
}

func (b *tempBody) Close() error {
	var err error
	if b.file != nil {
		err = b.file.Close()
	}
	if rmErr := os.RemoveAll(b.dir); err == nil {
		err = rmErr
	}
	return err
}
