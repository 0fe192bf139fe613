package token

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// DocumentFetcher hands back the rendered invoice document for an order.
// Rendering and storage live in an external service.
type DocumentFetcher interface {
	FetchInvoice(ctx context.Context, orderNumber string) (io.ReadCloser, string, error)
}

type HTTPDocumentClient struct {
	Client          *http.Client
	DocumentAddress string
}

func (c *HTTPDocumentClient) FetchInvoice(ctx context.Context, orderNumber string) (io.ReadCloser, string, error) {
	url := fmt.Sprintf("%s/documents/invoice/%s", c.DocumentAddress, orderNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("do request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/pdf"
	}
	return resp.Body, ct, nil
}
