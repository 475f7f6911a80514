package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"miyuki-dl/pkg/logger"
	"miyuki-dl/pkg/models"
)

const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	segmentBase    = "https://surrit.com/"
	coverBase      = "https://fourhoi.com/"
	siteBase       = "https://missav.ai/"
	playlistSuffix = "/playlist.m3u8"
	requestTimeout = 30 * time.Second
)

// Options configures the transport of a Client
type Options struct {
	Proxy    string        // host:port or full URL; empty uses the environment
	Insecure bool          // skip TLS verification
	Timeout  time.Duration // default bound on one request; per-call timeouts override it
}

// Client talks to the video host, the cover host and the site pages
type Client struct {
	SegmentBaseURL string
	CoverBaseURL   string
	SiteBaseURL    string

	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a new API client
func NewClient(opts Options) (*Client, error) {
	proxy := http.ProxyFromEnvironment
	if opts.Proxy != "" {
		proxyURL, err := parseProxy(opts.Proxy)
		if err != nil {
			return nil, err
		}
		proxy = http.ProxyURL(proxyURL)
		logger.GetLogger().WithField("proxy", proxyURL.String()).Info("Network proxy enabled")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = requestTimeout
	}

	transport := &http.Transport{
		Proxy:                 proxy,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: opts.Insecure},
	}

	return &Client{
		SegmentBaseURL: segmentBase,
		CoverBaseURL:   coverBase,
		SiteBaseURL:    siteBase,
		httpClient:     &http.Client{Transport: transport},
		timeout:        timeout,
	}, nil
}

// GetHTTPClient returns the underlying HTTP client
func (c *Client) GetHTTPClient() *http.Client {
	return c.httpClient
}

// Timeout returns the default bound on one request
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// GetText performs a GET bounded by the client timeout and returns the body as text
func (c *Client) GetText(ctx context.Context, rawURL string) (string, error) {
	body, err := c.GetBytes(ctx, rawURL, 0)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetBytes performs a GET bounded by timeout and returns the raw body.
// A non-positive timeout falls back to the client timeout.
func (c *Client) GetBytes(ctx context.Context, rawURL string, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.get(ctx, rawURL)
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.NetworkError{URL: rawURL, Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	return io.ReadAll(resp.Body)
}

// PlaylistURL returns the master playlist location for a video id
func (c *Client) PlaylistURL(videoID string) string {
	return c.SegmentBaseURL + videoID + playlistSuffix
}

// VariantURL returns the location of a sub-manifest referenced by the master playlist
func (c *Client) VariantURL(videoID, ref string) string {
	return c.SegmentBaseURL + videoID + "/" + strings.TrimPrefix(ref, "/")
}

// SegmentURL returns the location of one image-disguised segment
func (c *Client) SegmentURL(videoID, resolution string, index int) string {
	return fmt.Sprintf("%s%s/%s/video%d.jpeg", c.SegmentBaseURL, videoID, resolution, index)
}

// CoverURL returns the predictable cover location for a movie
func (c *Client) CoverURL(movieName string) string {
	return c.CoverBaseURL + movieName + "/cover-n.jpg"
}

// SearchURL returns the site search page for a serial number
func (c *Client) SearchURL(key string) string {
	return c.SiteBaseURL + "search/" + url.PathEscape(key)
}

func parseProxy(proxy string) (*url.URL, error) {
	if !strings.Contains(proxy, "://") {
		proxy = "http://" + proxy
	}
	u, err := url.Parse(proxy)
	if err != nil {
		return nil, models.ConfigError{Field: "proxy", Value: proxy, Message: err.Error()}
	}
	if u.Host == "" {
		return nil, models.ConfigError{Field: "proxy", Value: proxy, Message: "missing host"}
	}
	return u, nil
}
