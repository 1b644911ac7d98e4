package processor_test

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"dva/checksum"
	"dva/clients"
	"dva/config"
	"dva/processor"
	"dva/transfer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type storedFile struct {
	ID             int64
	Filename       string
	DirectoryLabel string
	Content        []byte
}

// fakeDataverse keeps one dataset in memory
type fakeDataverse struct {
	mu    sync.Mutex
	pid   string
	files []storedFile
}

func (fd *fakeDataverse) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fd.mu.Lock()
	defer fd.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/datasets/:persistentId/":
		if r.URL.Query().Get("persistentId") != fd.pid {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"status":"ERROR","message":"not found"}`)
			return
		}
		fd.writeDataset(w)

	case r.Method == http.MethodPost && r.URL.Path == "/api/datasets/:persistentId/add":
		fd.addFile(w, r)

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/access/datafile/"):
		id := strings.TrimPrefix(r.URL.Path, "/api/access/datafile/")
		for _, f := range fd.files {
			if fmt.Sprint(f.ID) == id {
				_, _ = w.Write(f.Content)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)

	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (fd *fakeDataverse) writeDataset(w http.ResponseWriter) {
	type entry struct {
		Label          string `json:"label"`
		DirectoryLabel string `json:"directoryLabel,omitempty"`
		DataFile       struct {
			ID       int64  `json:"id"`
			Filename string `json:"filename"`
			Filesize int    `json:"filesize"`
			Checksum struct {
				Type  string `json:"type"`
				Value string `json:"value"`
			} `json:"checksum"`
		} `json:"dataFile"`
	}

	entries := make([]entry, 0, len(fd.files))
	for _, f := range fd.files {
		var e entry
		e.Label = f.Filename
		e.DirectoryLabel = f.DirectoryLabel
		e.DataFile.ID = f.ID
		e.DataFile.Filename = f.Filename
		e.DataFile.Filesize = len(f.Content)
		sum := md5.Sum(f.Content)
		e.DataFile.Checksum.Type = "MD5"
		e.DataFile.Checksum.Value = hex.EncodeToString(sum[:])
		entries = append(entries, e)
	}

	var out struct {
		Status string `json:"status"`
		Data   struct {
			LatestVersion struct {
				Files []entry `json:"files"`
			} `json:"latestVersion"`
		} `json:"data"`
	}
	out.Status = "OK"
	out.Data.LatestVersion.Files = entries
	_ = json.NewEncoder(w).Encode(out)
}

func (fd *fakeDataverse) addFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, `{"status":"ERROR","message":%q}`, err.Error())
		return
	}

	var meta struct {
		Filename       string `json:"filename"`
		DirectoryLabel string `json:"directoryLabel"`
	}
	if err := json.Unmarshal([]byte(r.FormValue("jsonData")), &meta); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"status":"ERROR","message":"bad jsonData"}`)
		return
	}

	part, _, err := r.FormFile("file")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"status":"ERROR","message":"no file"}`)
		return
	}
	defer part.Close()
	content, err := io.ReadAll(part)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	fd.files = append(fd.files, storedFile{
		ID:             int64(100 + len(fd.files)),
		Filename:       meta.Filename,
		DirectoryLabel: meta.DirectoryLabel,
		Content:        content,
	})
	fmt.Fprint(w, `{"status":"OK"}`)
}

func TestUploadListDownloadRoundTrip(t *testing.T) {
	kinds := []string{clients.TransportStream, clients.TransportBuffered, clients.TransportNative, clients.TransportCurl}

	for _, kind := range kinds {
		t.Run(kind, func(t *testing.T) {
			if kind == clients.TransportCurl {
				if _, err := exec.LookPath("curl"); err != nil {
					t.Skip("curl not installed")
				}
			}

			const pid = "doi:10.70122/FK2/WUU4DM"
			srv := httptest.NewServer(&fakeDataverse{pid: pid})
			t.Cleanup(srv.Close)
			creds := config.Credentials{BaseURL: srv.URL, APIToken: "secret"}

			tr, err := clients.NewTransport(kind, creds, clients.Options{})
			require.NoError(t, err)

			src := t.TempDir()
			require.NoError(t, os.MkdirAll(filepath.Join(src, "results", "2024"), 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(src, "readme.txt"), []byte("123"), 0o644))
			require.NoError(t, os.WriteFile(filepath.Join(src, "results", "2024", "data.csv"), []byte("a,b\n1,2\n"), 0o644))

			logger := zaptest.NewLogger(t).Sugar()
			downloader := transfer.NewDownloader(tr, nil)
			proc := processor.NewProcessor(&processor.Dependencies{
				Lister:     clients.NewDataverseClient(creds, clients.Options{}),
				Downloader: downloader,
				Uploader:   transfer.NewUploader(tr),
				Verify:     checksum.Verify,
				Logger:     logger,
			})
			ctx := context.Background()

			stats, err := proc.Upload(ctx, src, pid, processor.Config{})
			require.NoError(t, err)
			assert.Equal(t, 2, stats.TransferredFiles)

			files, err := proc.List(ctx, pid)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"readme.txt", "results/2024/data.csv"}, processor.RemotePaths(files))

			dest := t.TempDir()
			stats, err = proc.Download(ctx, pid, dest, processor.Config{})
			require.NoError(t, err)
			assert.Equal(t, processor.Stats{TotalFiles: 2, TransferredFiles: 2}, stats)
			assert.Zero(t, downloader.Temps.Len())

			got, err := os.ReadFile(filepath.Join(dest, "results", "2024", "data.csv"))
			require.NoError(t, err)
			assert.Equal(t, "a,b\n1,2\n", string(got))

			sum, err := checksum.HashFile(filepath.Join(dest, "readme.txt"))
			require.NoError(t, err)
			assert.Equal(t, "202cb962ac59075b964b07152d234b70", sum)
		})
	}
}

func TestDownloadUnknownDataset(t *testing.T) {
	srv := httptest.NewServer(&fakeDataverse{pid: "doi:known"})
	t.Cleanup(srv.Close)
	creds := config.Credentials{BaseURL: srv.URL}

	tr, err := clients.NewTransport(clients.TransportStream, creds, clients.Options{})
	require.NoError(t, err)

	proc := processor.NewProcessor(&processor.Dependencies{
		Lister:     clients.NewDataverseClient(creds, clients.Options{}),
		Downloader: transfer.NewDownloader(tr, nil),
		Verify:     checksum.Verify,
	})

	dest := t.TempDir()
	_, err = proc.Download(context.Background(), "doi:other", dest, processor.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
