package offchain

// client.go — optional user-status indexer client.
//
// The indexer is best-effort by contract: whatever goes wrong here —
// service not configured, network failure, non-2xx, undecodable body —
// the answer is "no off-chain data" (nil snapshot), logged at debug and
// never surfaced. The refresh pipeline falls back to on-chain figures.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"github.com/emberfi/burndeck/internal/domain"
)

const (
	requestTimeout = 8 * time.Second
	// Polling hits this once per cycle; the limiter only matters when a
	// refresh and a post-transaction refresh land together.
	statusRatePerSec = 2

	maxRetries    = 2
	baseRetryWait = 300 * time.Millisecond
)

// Client implements ports.StatusProvider against the user-status endpoint.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewClient builds a status client. An empty baseURL means the service is
// disabled; the client then answers "absent" without touching the network.
func NewClient(baseURL string) *Client {
	return &Client{
		http:    &http.Client{Timeout: requestTimeout},
		baseURL: baseURL,
		limiter: rate.NewLimiter(statusRatePerSec, 2),
	}
}

// UserStatus fetches GET {base}/user-status/{address}. A nil snapshot
// with a nil error is the "no data" answer; the only returned errors are
// context cancellations.
func (c *Client) UserStatus(ctx context.Context, addr common.Address) (*domain.OffchainSnapshot, error) {
	if c.baseURL == "" {
		return nil, nil
	}

	url := fmt.Sprintf("%s/user-status/%s", c.baseURL, addr.Hex())

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := baseRetryWait * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		snap, retryable, err := c.fetch(ctx, url)
		if err == nil {
			return snap, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}

	slog.Debug("offchain: user status unavailable", "url", url, "err", lastErr)
	return nil, nil
}

// fetch performs one request. retryable distinguishes transient transport
// or 5xx failures from definitive answers.
func (c *Client) fetch(ctx context.Context, url string) (snap *domain.OffchainSnapshot, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fall through to decode
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("status %d", resp.StatusCode)
	default:
		// 404 and friends: the service answered, there is no data.
		return nil, false, fmt.Errorf("status %d", resp.StatusCode)
	}

	var decoded domain.OffchainSnapshot
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, false, fmt.Errorf("decode body: %w", err)
	}
	return &decoded, false, nil
}
