package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// download fetches a winning artifact URL to a local file. Nothing is
// written unless the fetch succeeds, so a stage never leaves an empty
// output behind.
func (g *Generator) download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download artifact failed: HTTP %d", resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write artifact file: %w", err)
	}
	return nil
}
