package photos

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	output "github.com/Icestreamm/baseer-backend/internal/core/ports/output"
)

const defaultMaxPhotoBytes = 25 << 20

type httpFetcher struct {
	client   *http.Client
	maxBytes int64
}

var _ output.PhotoFetcher = (*httpFetcher)(nil)

// NewHTTPFetcher creates a PhotoFetcher that downloads over HTTP(S).
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) output.PhotoFetcher {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxPhotoBytes
	}
	return &httpFetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

func (f *httpFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download photo: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("photo exceeds %d bytes", f.maxBytes)
	}
	return data, nil
}
