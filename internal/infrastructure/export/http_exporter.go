// Package export calls the external rendering service that turns receipts
// and invoices into deliverable files.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tallybook/backend/internal/application/document"
	"github.com/tallybook/backend/internal/infrastructure/config"
)

// maxResponseSize caps how much of the renderer's response we buffer (16 MiB).
const maxResponseSize = 16 << 20

// HTTPExporter renders documents by POSTing them to the configured
// rendering service and returning the response body verbatim.
type HTTPExporter struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExporter creates an exporter from the export configuration.
func NewHTTPExporter(cfg config.ExportConfig) *HTTPExporter {
	return &HTTPExporter{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Export sends the payload to the rendering service and returns the
// rendered content with its content type.
func (e *HTTPExporter) Export(ctx context.Context, payload document.ExportPayload) ([]byte, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode export payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to build export request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("export request failed: %w", err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read export response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("export service returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return content, contentType, nil
}

// Interface compliance check
var _ document.Exporter = (*HTTPExporter)(nil)
