package surface

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Prober stands in for the embedded surface's own load signal when the
// consumer is not a browser: it fetches the surface URL once and treats a
// successful response as the load event.
type Prober struct {
	httpClient *http.Client
}

func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Prober{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Probe fetches the URL and reports whether the surface answered with a
// renderable response.
func (p *Prober) Probe(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("probe surface: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe surface: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("probe surface: %s", resp.Status)
	}
	return nil
}
