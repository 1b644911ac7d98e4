package transfer

import (
	"context"
	"io"
	"net/http"
	"strings"

	"dva/models"

	"github.com/stretchr/testify/mock"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Fetch(ctx context.Context, req models.FetchRequest) (*models.FetchResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.FetchResponse)
	return resp, args.Error(1)
}

func (m *mockTransport) PostMultipart(ctx context.Context, req models.UploadRequest) (*models.UploadResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.UploadResponse)
	return resp, args.Error(1)
}

// trackingBody records whether the transfer core closed it
type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func okResponse(body string, header http.Header) (*models.FetchResponse, *trackingBody) {
	if header == nil {
		header = http.Header{}
	}
	tb := &trackingBody{Reader: strings.NewReader(body)}
	return &models.FetchResponse{StatusCode: http.StatusOK, Header: header, Body: tb}, tb
}
