// Package http provides the HTTP client used to talk to the download mirror.
//
// The Client in this package handles:
//   - User-Agent headers on every request
//   - A total timeout for metadata requests (10s by default)
//   - Streaming downloads with a dial/response-header timeout (30s by default)
//   - File size retrieval via HEAD requests
//
// Failures are reported as *TransportError, *StatusError or *DecodeError so
// callers can tell them apart with errors.As.
//
// # Basic Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	var v versionJSON
//	err := client.GetJSON(ctx, descriptorURL, &v)
//
//	resp, err := client.Open(ctx, jarURL)
//	if err == nil {
//	    defer resp.Body.Close()
//	    // resp.Total is 0 when the server omits Content-Length
//	}
//
// # Progress Tracking
//
// The ProgressWriter type can be used to wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    Total:    resp.Total,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
package http
