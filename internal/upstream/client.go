package upstream

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/zmirror/zmirror/internal/config"
	mirrorerrors "github.com/zmirror/zmirror/internal/errors"
)

// Response is the raw upstream response plus the timing the pipeline needs
// to compute X-Header-Req-Time / X-Body-Req-Time (spec.md §4.D).
type Response struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
	ReqStart   time.Time
	HeaderTime time.Duration
}

// Client is the process-wide upstream sender: one per-host connection pool
// shared by every request.
type Client struct {
	pool *Pool
}

// New returns a Client backed by a fresh per-host pool.
func New() *Client {
	return &Client{pool: NewPool()}
}

// Send issues method against remoteURL with headers and an optional body,
// enforcing the SSRF gate first (spec.md §4.D).
//
// An empty body is sent as wholly absent — no manufactured
// "Content-Length: 0" — per spec.md §4.D.
func (c *Client) Send(ctx context.Context, cfg *config.Config, method, remoteURL string, headers http.Header, body io.Reader) (*Response, error) {
	target, err := url.Parse(remoteURL)
	if err != nil {
		return nil, mirrorerrors.New(mirrorerrors.UpstreamFailure, "upstream", "invalid upstream URL", err).WithURL(remoteURL)
	}

	if err := ssrfGate(cfg, target.Hostname()); err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = body
	}

	req, err := http.NewRequestWithContext(ctx, method, remoteURL, reqBody)
	if err != nil {
		return nil, mirrorerrors.NewUpstreamFailure(remoteURL, err)
	}
	req.Header = headers

	client := c.pool.ClientFor(cfg, target.Hostname(), target.Scheme+"://")

	reqStart := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, mirrorerrors.NewUpstreamFailure(remoteURL, err).WithDomain(target.Hostname())
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
		ReqStart:   reqStart,
		HeaderTime: time.Since(reqStart),
	}, nil
}

// ssrfGate rejects requests whose destination host is outside
// allowed_domains, unless developer_disable_ssrf_check is set
// (spec.md §4.D, "SSRF gate (layer 2)").
func ssrfGate(cfg *config.Config, hostname string) error {
	if cfg.DeveloperDisableSSRFCheck {
		return nil
	}
	if cfg.IsAllowedDomain(hostname) {
		return nil
	}
	return mirrorerrors.NewSSRFBlocked(hostname, nil).WithDomain(hostname)
}

// Shutdown releases idle connections across every pooled client.
func (c *Client) Shutdown() {
	c.pool.CloseIdle()
}
