package extraction

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Extractor defines the interface for pulling raw text out of a receipt
// image. The text comes back exactly as it appears on the receipt, line
// breaks preserved.
type Extractor interface {
	// ExtractText fetches the referenced receipt image and returns its text
	ExtractText(ctx context.Context, imageURL string) (string, error)
	// Close closes the extractor and releases resources
	Close() error
}

// maxImageSize caps fetched receipt images at 50MB, matching what phone
// cameras realistically produce.
const maxImageSize = 50 << 20

// fetchImage downloads a receipt image and reports its content type.
func fetchImage(ctx context.Context, client *http.Client, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetching image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading image body: %w", err)
	}
	if len(data) > maxImageSize {
		return nil, "", fmt.Errorf("image exceeds maximum size of %d bytes", maxImageSize)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("image body is empty")
	}

	return data, resp.Header.Get("Content-Type"), nil
}

func newFetchClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
