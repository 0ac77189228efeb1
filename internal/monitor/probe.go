package monitor

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// RunProbe issues a GET to url through the monitored client every interval
// until ctx is done. It exists to generate traffic when no other code in the
// process does.
func (s *Service) RunProbe(ctx context.Context, url string, interval time.Duration) {
	client := s.Client()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.probeOnce(ctx, client, url)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) probeOnce(ctx context.Context, client *http.Client, url string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		slog.Warn("Probe request invalid", "url", url, "error", err)
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			slog.Debug("Probe failed", "url", url, "error", err)
		}
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	slog.Debug("Probe done", "url", url, "status", resp.StatusCode)
}
