package httpkit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/httpclient"
)

// newHTTPExecutor builds the default net/http-backed executor. The
// per-request context carries attempt timeouts, so the underlying client
// has no timeout of its own.
func newHTTPExecutor(timeout time.Duration) httpclient.Executor {
	hc := &http.Client{Timeout: timeout}

	return func(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
		httpReq, err := buildHTTPRequest(ctx, req)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := hc.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Timeout("request", err)
			}
			return nil, errors.Connection(err)
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Connection(err)
		}

		result := &httpclient.Response{
			StatusCode: resp.StatusCode,
			Headers:    flattenHeaders(resp.Header),
			Body:       body,
			Duration:   time.Since(start),
		}
		if cerr := httpclient.ClassifyStatusCode(resp.StatusCode); cerr != nil {
			return result, cerr
		}
		return result, nil
	}
}

func buildHTTPRequest(ctx context.Context, req *httpclient.Request) (*http.Request, error) {
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, errors.InvalidConfig("request", "encode body").WithCause(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, errors.InvalidConfig("request", "create request").WithCause(err)
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if body != nil && contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	return httpReq, nil
}

// encodeBody converts a body value into an io.Reader and content type.
func encodeBody(body any) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}
	switch v := body.(type) {
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
