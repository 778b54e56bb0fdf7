package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edgesentinel/edge-sentinel/internal/models"
)

// Poller fetches raw telemetry samples from a collector endpoint on a
// fixed interval and hands them to the gateway through a channel. It
// never touches shared state directly. Implements suture.Service so a
// crash is restarted by the supervisor; individual poll failures are
// logged and retried at the next tick.
type Poller struct {
	url      string
	interval time.Duration
	client   *http.Client
	out      chan<- models.RawSample
}

// New creates a poller delivering samples into out.
func New(url string, interval time.Duration, out chan<- models.RawSample) *Poller {
	return &Poller{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: 10 * time.Second},
		out:      out,
	}
}

// Serve polls until the context is canceled.
func (p *Poller) Serve(ctx context.Context) error {
	log.Info().Str("url", p.url).Dur("interval", p.interval).Msg("collector poller started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.poll(ctx); err != nil {
				log.Error().Err(err).Str("url", p.url).Msg("collector poll failed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (p *Poller) String() string {
	return "collector-poller"
}

func (p *Poller) poll(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("collector returned status %d", resp.StatusCode)
	}

	var sample models.RawSample
	if err := json.NewDecoder(resp.Body).Decode(&sample); err != nil {
		return fmt.Errorf("decoding collector response: %w", err)
	}

	select {
	case p.out <- sample:
	default:
		log.Warn().Msg("sample queue full, dropping sample")
	}
	return nil
}
