package blockchair

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"cointracker/internal/core/ports"
	"cointracker/pkg/apperror"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "https://api.blockchair.com/bitcoin"
	defaultPageSize  = 100 // Blockchair's maximum per request
	defaultRetries   = 3
	defaultBaseDelay = time.Second
	maxBackoff       = 10 * time.Second
	userAgent        = "cointracker/1.0"
)

// timeLayouts Blockchair has been observed to use for transaction times.
var timeLayouts = []string{"2006-01-02 15:04:05", time.RFC3339}

// Config holds Client construction parameters.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int           // attempts per request, including the first
	PageSize   int           // records per page, capped at 100
	BaseDelay  time.Duration // initial retry backoff (shortened in tests)
}

// Client implements ports.Provider against the Blockchair Bitcoin API.
// All outbound requests pass through a shared rate limiter: once the
// budget is spent, callers suspend on Wait rather than erroring, which
// keeps the aggregate rate across all sync workers under the provider
// ceiling.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
	pageSize   int
	baseDelay  time.Duration
	log        zerolog.Logger
}

// New creates a Blockchair client. The limiter must be the process-wide
// instance shared by every call site.
func New(cfg Config, limiter *rate.Limiter, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultRetries
	}
	if cfg.PageSize <= 0 || cfg.PageSize > defaultPageSize {
		cfg.PageSize = defaultPageSize
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		limiter:    limiter,
		maxRetries: cfg.MaxRetries,
		pageSize:   cfg.PageSize,
		baseDelay:  cfg.BaseDelay,
		log:        log,
	}
}

// FetchAddressInfo returns the provider's balance and transaction count
// for an address.
func (c *Client) FetchAddressInfo(ctx context.Context, address string) (*ports.AddressInfo, error) {
	endpoint := fmt.Sprintf("%s/dashboards/address/%s?limit=0", c.baseURL, url.PathEscape(address))

	data, err := c.fetchAddressData(ctx, endpoint, address)
	if err != nil {
		return nil, err
	}
	return &ports.AddressInfo{
		Balance:          data.Address.Balance,
		TransactionCount: data.Address.TransactionCount,
	}, nil
}

// FetchPage returns one page of the address's transaction history.
// A nil cursor starts from the newest transactions; the returned
// NextCursor is nil once the listing is exhausted. The page is built
// from a single bounded response; the full history is never held in
// one buffer.
func (c *Client) FetchPage(ctx context.Context, address string, cursor *ports.Cursor) (*ports.TxPage, error) {
	var offset int64
	if cursor != nil {
		offset = cursor.Offset
	}
	endpoint := fmt.Sprintf("%s/dashboards/address/%s?limit=%d&offset=%d&transaction_details=true",
		c.baseURL, url.PathEscape(address), c.pageSize, offset)

	data, err := c.fetchAddressData(ctx, endpoint, address)
	if err != nil {
		return nil, err
	}

	page := &ports.TxPage{
		Transactions: make([]ports.TxRecord, 0, len(data.Transactions)),
	}
	for _, raw := range data.Transactions {
		rec, ok := parseTransaction(raw)
		if !ok {
			continue
		}
		page.Transactions = append(page.Transactions, rec)
	}

	// A full page means there may be more; a short page is the end.
	if len(data.Transactions) == c.pageSize {
		page.NextCursor = &ports.Cursor{Offset: offset + int64(c.pageSize)}
	}
	return page, nil
}

// fetchAddressData performs the request with retry and unwraps the
// per-address payload.
func (c *Client) fetchAddressData(ctx context.Context, endpoint, address string) (*addressData, error) {
	body, err := c.doRequest(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperror.ErrProviderUnavailable(fmt.Errorf("decoding provider response: %w", err))
	}
	if resp.Error != "" {
		return nil, apperror.ErrProviderRequest(fmt.Errorf("provider error: %s", resp.Error))
	}
	data, ok := resp.Data[address]
	if !ok {
		return nil, apperror.ErrProviderRequest(fmt.Errorf("no data for address %s", address))
	}
	return &data, nil
}

// doRequest performs a GET with the shared rate limiter and bounded
// retry. Transient failures (timeouts, 5xx, 429) retry with exponential
// backoff plus jitter; other 4xx responses fail immediately.
func (c *Client) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff(attempt-1)); err != nil {
				return nil, apperror.ErrProviderUnavailable(err)
			}
		}

		// Every attempt spends rate budget, retries included.
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperror.ErrProviderUnavailable(fmt.Errorf("rate limiter wait: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, apperror.ErrProviderRequest(fmt.Errorf("building request: %w", err))
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, apperror.ErrProviderUnavailable(ctx.Err())
			}
			lastErr = err
			c.log.Warn().Err(err).Int("attempt", attempt+1).Msg("provider request failed")
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if readErr != nil {
				lastErr = readErr
				continue
			}
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("provider returned %d", resp.StatusCode)
			c.log.Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Msg("transient provider error")
		default:
			// Non-retryable rejection (malformed address and friends).
			return nil, apperror.ErrProviderRequest(fmt.Errorf("provider returned %d", resp.StatusCode))
		}
	}

	return nil, apperror.ErrProviderUnavailable(
		fmt.Errorf("provider unavailable after %d attempts: %w", c.maxRetries, lastErr))
}

// backoff computes the exponential delay for a retry, capped and with
// ±25% jitter so concurrent workers do not retry in lockstep.
func (c *Client) backoff(retry int) time.Duration {
	d := c.baseDelay << retry
	if d > maxBackoff {
		d = maxBackoff
	}
	jitter := time.Duration((rand.Float64()*0.5 - 0.25) * float64(d))
	return d + jitter
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// parseTransaction maps a wire record to a TxRecord. Records with no
// balance change for the address carry no information and are skipped.
func parseTransaction(raw rawTransaction) (ports.TxRecord, bool) {
	if raw.Hash == "" || raw.BalanceChange == 0 {
		return ports.TxRecord{}, false
	}

	rec := ports.TxRecord{
		TxID:  raw.Hash,
		Value: raw.BalanceChange,
	}
	if raw.BlockID > 0 {
		height := raw.BlockID
		rec.BlockHeight = &height
	}
	if raw.Time != "" {
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, raw.Time); err == nil {
				utc := ts.UTC()
				rec.Timestamp = &utc
				break
			}
		}
	}
	return rec, true
}
