package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 << 20

// newRequest builds the HTTP request for a call. POST bodies are only
// attached when there is something to send; GET parameters, if any, go
// into the query string.
func (c *Client) newRequest(ctx context.Context, verb, target string, params Params, async bool) (*http.Request, error) {
	var body io.Reader

	if verb == http.MethodGet {
		if len(params) > 0 {
			query, err := encodeQuery(params)
			if err != nil {
				return nil, err
			}
			target += "?" + query
		}
	} else if len(params) > 0 {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode params: %w", err)
		}
		// NewRequest sets ContentLength from the bytes.Reader.
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, verb, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	if async {
		req.Close = true
	}
	return req, nil
}

// encodeQuery renders params as a URL query. Strings are sent verbatim,
// everything else as its JSON encoding, which is what the Bot API expects
// for nested values.
func encodeQuery(params Params) (string, error) {
	q := make(url.Values, len(params))
	for k, v := range params {
		if s, ok := v.(string); ok {
			q.Set(k, s)
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("encode param %q: %w", k, err)
		}
		q.Set(k, string(data))
	}
	return q.Encode(), nil
}

// httpClient returns a client for a single call. Keep-alives are off, so
// every call dials its own connection and nothing is pooled between calls.
func (c *Client) httpClient(async bool) *http.Client {
	timeout := c.timeout
	if async {
		timeout = c.asyncTimeout
	}

	rt := c.transport
	if rt == nil {
		rt = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DisableKeepAlives:   true,
			DisableCompression:  true,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}
	return &http.Client{Transport: rt, Timeout: timeout}
}

// execute performs the request and folds the outcome into a Result.
func (c *Client) execute(req *http.Request, target string, async bool) *Result {
	hc := c.httpClient(async)
	defer hc.CloseIdleConnections()

	resp, err := hc.Do(req)
	if err != nil {
		if async {
			return asyncResult(0)
		}
		return transportFailure(err, target)
	}
	defer resp.Body.Close()

	if async {
		return asyncResult(resp.StatusCode)
	}

	raw, err := readBody(resp)
	if err != nil {
		return transportFailure(err, target)
	}
	return decodeResult(resp.StatusCode, raw)
}

// readBody reads a response body, decoding gzip when the server used it.
func readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	return io.ReadAll(io.LimitReader(r, maxResponseBytes))
}

// transportFailure builds the Result for a request that produced no usable
// response. net/http wraps errors in *url.Error ("Post \"...\": msg"); the
// wrapper is dropped because the URL is appended explicitly.
func transportFailure(err error, target string) *Result {
	msg := err.Error()
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		msg = urlErr.Err.Error()
	}
	return &Result{
		status: http.StatusInternalServerError,
		body:   msg + " - " + target,
		failed: true,
	}
}
