package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/reductstore/reductstore-operator/internal/constants"
)

const (
	maxInfoBodyBytes = 1 << 20
	defaultTimeout   = 4 * time.Second
)

// Prober performs health checks against a ReductStore instance.
type Prober interface {
	CheckStartup(ctx context.Context) error
	CheckLiveness(ctx context.Context) error
	CheckReadiness(ctx context.Context) error
}

// ServerInfo is the subset of the /api/v1/info response the prober validates.
type ServerInfo struct {
	Version string `json:"version"`
	Uptime  uint64 `json:"uptime,omitempty"`
}

// HTTPProber implements Prober using HTTP requests.
type HTTPProber struct {
	client   *http.Client
	infoURL  string
	token    string
	hostPort string
	timeout  time.Duration
}

// ProberConfig holds configuration for creating a Prober.
type ProberConfig struct {
	// Addr is the scheme://host:port of the ReductStore listener.
	Addr string
	// BasePath is the configured RS_API_BASE_PATH; empty means "/".
	BasePath string
	// CAFile verifies https listeners. Empty uses the system roots.
	CAFile string
	// Token is sent as a bearer token when the server requires authentication.
	Token   string
	Timeout time.Duration
}

// NewProber creates a new HTTPProber with the given configuration.
func NewProber(cfg ProberConfig) (*HTTPProber, error) {
	hostPort, secure, err := parseAddr(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("invalid addr %q: %w", cfg.Addr, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client, err := newHTTPClient(cfg.CAFile, secure, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &HTTPProber{
		client:   client,
		infoURL:  InfoURL(cfg.Addr, cfg.BasePath),
		token:    cfg.Token,
		hostPort: hostPort,
		timeout:  timeout,
	}, nil
}

// InfoURL joins the listener address, the API base path and the info endpoint.
func InfoURL(addr, basePath string) string {
	base := strings.TrimRight(addr, "/") + "/" + strings.Trim(basePath, "/")
	return strings.TrimRight(base, "/") + constants.APIPathInfo
}

// CheckStartup performs a TCP dial check to verify the service is listening.
func (p *HTTPProber) CheckStartup(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return tcpDial(ctx, p.hostPort)
}

// CheckLiveness succeeds when the server answers the info endpoint with anything
// other than a server error. A 401 from a token-protected instance still proves
// the process is serving requests.
func (p *HTTPProber) CheckLiveness(ctx context.Context) error {
	resp, err := p.get(ctx)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode >= 500 {
		return fmt.Errorf("liveness check failed with status %d", resp.StatusCode)
	}
	return nil
}

// CheckReadiness requires a 200 response carrying a server version. Connection
// resets while the server is starting are retried with exponential backoff.
func (p *HTTPProber) CheckReadiness(ctx context.Context) error {
	_, err := p.Info(ctx)
	return err
}

// Info fetches and decodes the server info document.
func (p *HTTPProber) Info(ctx context.Context) (*ServerInfo, error) {
	maxRetries := 3
	var resp *http.Response
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			// 100ms, 200ms
			backoff := time.Duration(100*(1<<uint(attempt-1))) * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err = p.get(ctx)
		if err == nil {
			break
		}

		errStr := err.Error()
		isConnectionReset := strings.Contains(errStr, "connection reset") ||
			strings.Contains(errStr, "EOF") ||
			strings.Contains(errStr, "broken pipe")
		if !isConnectionReset {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("readiness check failed with status %d", resp.StatusCode)
	}

	var info ServerInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxInfoBodyBytes)).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode server info: %w", err)
	}
	if info.Version == "" {
		return nil, fmt.Errorf("server info has no version")
	}
	return &info, nil
}

func (p *HTTPProber) get(ctx context.Context) (*http.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, p.infoURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxInfoBodyBytes))
	_ = resp.Body.Close()
}

func newHTTPClient(caFile string, secure bool, timeout time.Duration) (*http.Client, error) {
	transport := &http.Transport{
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		DisableKeepAlives:     true,
	}

	if secure {
		tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
		if caFile != "" {
			cleanCAFile := filepath.Clean(caFile)
			if strings.Contains(cleanCAFile, "..") {
				return nil, fmt.Errorf("CA file path %q contains path traversal", caFile)
			}
			caPEM, err := os.ReadFile(cleanCAFile) // #nosec G304 -- Path is validated and cleaned to prevent traversal
			if err != nil {
				return nil, fmt.Errorf("failed to read CA file %q: %w", caFile, err)
			}
			roots := x509.NewCertPool()
			if !roots.AppendCertsFromPEM(caPEM) {
				return nil, fmt.Errorf("failed to parse CA PEM from %q", caFile)
			}
			tlsConfig.RootCAs = roots
		}
		transport.TLSClientConfig = tlsConfig
	}

	return &http.Client{Transport: transport}, nil
}

func tcpDial(ctx context.Context, address string) error {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return err
	}
	_ = conn.Close()
	return nil
}

func parseAddr(rawAddr string) (hostPort string, secure bool, err error) {
	parsed, err := url.Parse(rawAddr)
	if err != nil {
		return "", false, fmt.Errorf("parse url: %w", err)
	}

	switch parsed.Scheme {
	case "http":
	case "https":
		secure = true
	case "":
		return "", false, fmt.Errorf("missing scheme (expected http or https)")
	default:
		return "", false, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	host := parsed.Hostname()
	port := parsed.Port()
	if host == "" || port == "" {
		return "", false, fmt.Errorf("expected host:port in url")
	}

	return net.JoinHostPort(host, port), secure, nil
}
