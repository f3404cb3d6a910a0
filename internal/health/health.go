// Package health waits for the remote inference server's HTTP health
// endpoint to start answering after a deployment.
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voxlane/asrctl/internal/poll"
)

// httpDoer is the minimal HTTP client surface; tests inject a fake.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Checker polls one health URL.
type Checker struct {
	client httpDoer
	url    string
}

// NewChecker returns a checker with a per-request timeout; the overall
// wait is bounded by the poll ceiling, not the HTTP client.
func NewChecker(url string, requestTimeout time.Duration) *Checker {
	return &Checker{
		client: &http.Client{Timeout: requestTimeout},
		url:    url,
	}
}

// NewCheckerWithClient returns a checker using the supplied HTTP client.
func NewCheckerWithClient(url string, client httpDoer) *Checker {
	return &Checker{client: client, url: url}
}

// Check performs one probe: true on HTTP 200.
func (c *Checker) Check(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusOK {
		return true, nil
	}
	return false, fmt.Errorf("health endpoint returned %s", resp.Status)
}

// Wait polls the endpoint at the given interval until it answers 200 or
// the attempt ceiling is reached.
func (c *Checker) Wait(ctx context.Context, interval time.Duration, attempts int) error {
	if err := poll.Until(ctx, interval, attempts, c.Check); err != nil {
		return fmt.Errorf("inference server at %s never became healthy: %w", c.url, err)
	}
	return nil
}
