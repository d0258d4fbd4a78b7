package randomuser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	appErr "github.com/userhub/engine/pkg/errors"
	"github.com/userhub/engine/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentBatches = 4

// Options configures the upstream client. Zero values take the defaults.
type Options struct {
	BaseURL       string
	BatchSize     int
	MaxAttempts   int
	Timeout       time.Duration
	RetryInterval time.Duration
	HTTPClient    *http.Client
}

type Client struct {
	baseURL       *url.URL
	http          *http.Client
	batchSize     int
	maxAttempts   int
	retryInterval time.Duration
}

func New(opts Options) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream url %q", opts.BaseURL)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 500 * time.Millisecond
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		baseURL:       u,
		http:          hc,
		batchSize:     opts.BatchSize,
		maxAttempts:   opts.MaxAttempts,
		retryInterval: opts.RetryInterval,
	}, nil
}

// FetchBatch retrieves count records, splitting the work into requests of at
// most BatchSize. A failed attempt is retried as a whole.
func (c *Client) FetchBatch(ctx context.Context, count int) ([]RawUser, error) {
	if count <= 0 {
		return nil, nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInterval
	eb.MaxInterval = 10 * c.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.maxAttempts-1)), ctx)

	var out []RawUser
	attempt := 0
	op := func() error {
		attempt++
		users, err := c.fetchAll(ctx, count)
		if err != nil {
			return err
		}
		out = users
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.L().Warn("upstream fetch failed, retrying",
			zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, appErr.Wrap(err, appErr.CodeDeadline, "upstream fetch timed out")
		}
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "random user service unavailable")
	}
	return out, nil
}

func (c *Client) fetchAll(ctx context.Context, count int) ([]RawUser, error) {
	sizes := make([]int, 0, count/c.batchSize+1)
	for left := count; left > 0; left -= c.batchSize {
		sizes = append(sizes, min(left, c.batchSize))
	}

	parts := make([][]RawUser, len(sizes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBatches)
	for i, n := range sizes {
		g.Go(func() error {
			users, err := c.fetchOne(gctx, n)
			if err != nil {
				return err
			}
			parts[i] = users
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]RawUser, 0, count)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

func (c *Client) fetchOne(ctx context.Context, n int) ([]RawUser, error) {
	u := *c.baseURL
	q := u.Query()
	q.Set("results", strconv.Itoa(n))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	return DecodeResults(resp.Body)
}
