package httpclient

import (
	"testing"

	"github.com/kbukum/httpkit/errors"
)

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		code      errors.ErrorCode
		retryable bool
	}{
		{408, errors.ErrCodeTimeout, true},
		{429, errors.ErrCodeRateLimited, true},
		{404, errors.ErrCodeHTTPClient, false},
		{400, errors.ErrCodeHTTPClient, false},
		{500, errors.ErrCodeHTTPServer, true},
		{503, errors.ErrCodeHTTPServer, true},
	}
	for _, tt := range tests {
		err := ClassifyStatusCode(tt.status)
		if err == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		if err.Code != tt.code {
			t.Errorf("status %d: expected code %s, got %s", tt.status, tt.code, err.Code)
		}
		if err.Retryable != tt.retryable {
			t.Errorf("status %d: expected retryable=%v", tt.status, tt.retryable)
		}
		if err.HTTPStatus != tt.status {
			t.Errorf("status %d: expected HTTPStatus carried, got %d", tt.status, err.HTTPStatus)
		}
	}
}

func TestClassifyStatusCode_SuccessRange(t *testing.T) {
	for _, status := range []int{200, 201, 204, 299} {
		if err := ClassifyStatusCode(status); err != nil {
			t.Errorf("status %d: expected nil, got %v", status, err)
		}
	}
}

func TestRequest_Clone(t *testing.T) {
	req := &Request{
		Method:   "POST",
		URL:      "https://api.example.com/users",
		Headers:  map[string]string{"X-Trace": "abc"},
		Metadata: map[string]any{"tenant": "a"},
	}

	clone := req.Clone()
	clone.Headers["X-Trace"] = "changed"
	clone.Metadata["tenant"] = "b"

	if req.Headers["X-Trace"] != "abc" {
		t.Error("clone must not share the headers map")
	}
	if req.Metadata["tenant"] != "a" {
		t.Error("clone must not share the metadata map")
	}
}

func TestResponse_Predicates(t *testing.T) {
	if !(&Response{StatusCode: 204}).IsSuccess() {
		t.Error("204 should be success")
	}
	if (&Response{StatusCode: 500}).IsSuccess() {
		t.Error("500 should not be success")
	}
	if !(&Response{StatusCode: 404}).IsError() {
		t.Error("404 should be an error")
	}
}
