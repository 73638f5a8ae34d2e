package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Options configures a Client.
type Options struct {
	// UserAgent is sent with every request.
	UserAgent string

	// MetadataTimeout bounds a whole metadata request (listing, descriptor).
	MetadataTimeout time.Duration

	// DownloadTimeout bounds dialing and waiting for response headers of a
	// streaming download. The body itself may take longer.
	DownloadTimeout time.Duration
}

// DefaultOptions returns the options used by the mirror client.
func DefaultOptions() Options {
	return Options{
		UserAgent:       "TMCL Launcher",
		MetadataTimeout: 10 * time.Second,
		DownloadTimeout: 30 * time.Second,
	}
}

// Client wraps HTTP operations with mirror-specific configuration.
//
// Client provides:
//   - Configured User-Agent header on every request
//   - A short total timeout for metadata requests
//   - Streaming responses for file downloads
//   - File size retrieval via HEAD requests
//
// Example usage:
//
//	client := NewClient(DefaultOptions())
//
//	var listing manifestJSON
//	err := client.GetJSON(ctx, "https://mirror/mc/game/version_manifest.json", &listing)
//
//	resp, err := client.Open(ctx, jarURL)
//	defer resp.Body.Close()
type Client struct {
	metaClient   *http.Client
	streamClient *http.Client
	userAgent    string
}

// NewClient creates a new HTTP client. Zero fields of opts take their defaults.
func NewClient(opts Options) *Client {
	def := DefaultOptions()
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.MetadataTimeout <= 0 {
		opts.MetadataTimeout = def.MetadataTimeout
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = def.DownloadTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   opts.DownloadTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.ResponseHeaderTimeout = opts.DownloadTimeout

	return &Client{
		metaClient: &http.Client{
			Timeout: opts.MetadataTimeout,
		},
		streamClient: &http.Client{
			Transport: transport,
		},
		userAgent: opts.UserAgent,
	}
}

// ProgressWriter wraps a writer to track download progress.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: file,
//	    Total:  contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes, 0 when unknown.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// Response is an open streaming download.
type Response struct {
	// Body must be closed by the caller.
	Body io.ReadCloser

	// Total is the Content-Length, or 0 when the server did not send one.
	Total int64
}

// Get performs a metadata GET request and returns the response body.
//
// Returns *TransportError when the request or body read fails and
// *StatusError for any non-2xx status.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.metaClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(url, resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	return body, nil
}

// GetJSON performs Get and decodes the body into v.
//
// Returns *DecodeError when the body is not valid JSON for v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &DecodeError{URL: url, Err: err}
	}
	return nil
}

// Open starts a streaming GET request.
//
// Cancelling ctx aborts the request, including a body read in progress.
func (c *Client) Open(ctx context.Context, url string) (*Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	if err := checkStatus(url, resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	return &Response{Body: resp.Body, Total: total}, nil
}

// GetFileSize returns the size of a file at the given URL via HEAD request.
//
// Returns an error if the server doesn't return a Content-Length header.
func (c *Client) GetFileSize(ctx context.Context, url string) (int64, error) {
	req, err := c.newRequest(ctx, http.MethodHead, url)
	if err != nil {
		return 0, err
	}

	resp, err := c.metaClient.Do(req)
	if err != nil {
		return 0, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if err := checkStatus(url, resp); err != nil {
		return 0, err
	}
	if resp.ContentLength < 0 {
		return 0, fmt.Errorf("no Content-Length header for %s", url)
	}

	return resp.ContentLength, nil
}

func (c *Client) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

func checkStatus(url string, resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{URL: url, Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}
	return nil
}
