package clients

import (
	"context"
	"fmt"
	"time"

	"dva/config"
	"dva/models"
)

// Transport moves datafile bytes between the repository and local storage
type Transport interface {
	Fetch(ctx context.Context, req models.FetchRequest) (*models.FetchResponse, error)
	PostMultipart(ctx context.Context, req models.UploadRequest) (*models.UploadResponse, error)
}

// Transport kinds selectable with --transport
const (
	TransportBuffered = "buffered"
	TransportStream   = "stream"
	TransportNative   = "native"
	TransportCurl     = "curl"
)

// TransportKinds lists the accepted --transport values
var TransportKinds = []string{TransportStream, TransportBuffered, TransportNative, TransportCurl}

// Options tune every client
type Options struct {
	// Timeout per request, zero means none
	Timeout  time.Duration
	CurlPath string
}

// NewTransport creates the Transport named by kind
//
//nolint:ireturn // factory returns interface by design
func NewTransport(kind string, creds config.Credentials, opts Options) (Transport, error) {
	switch kind {
	case "", TransportStream:
		return NewDataverseClient(creds, opts), nil
	case TransportBuffered:
		dc := NewDataverseClient(creds, opts)
		dc.Buffered = true
		return dc, nil
	case TransportNative:
		nc, err := NewNativeClient(creds, opts)
		if err != nil {
			return nil, err
		}
		return nc, nil
	case TransportCurl:
		cc, err := NewCurlClient(creds, opts)
		if err != nil {
			return nil, err
		}
		return cc, nil
	default:
		return nil, fmt.Errorf("unknown transport %q (want one of %v)", kind, TransportKinds)
	}
}
