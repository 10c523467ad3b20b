package httpclient

import (
	"fmt"

	"github.com/kbukum/httpkit/errors"
)

// ClassifyStatusCode converts an HTTP status code into a typed error.
// Returns nil for 2xx status codes.
func ClassifyStatusCode(statusCode int) *errors.Error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == 408:
		return statusError(errors.ErrCodeTimeout, statusCode, true)
	case statusCode == 429:
		return statusError(errors.ErrCodeRateLimited, statusCode, true)
	case statusCode >= 400 && statusCode < 500:
		return statusError(errors.ErrCodeHTTPClient, statusCode, false)
	case statusCode >= 500:
		return statusError(errors.ErrCodeHTTPServer, statusCode, true)
	default:
		return statusError(errors.ErrCodeHTTPClient, statusCode, false)
	}
}

func statusError(code errors.ErrorCode, status int, retryable bool) *errors.Error {
	return &errors.Error{
		Code:       code,
		Message:    fmt.Sprintf("HTTP %d", status),
		HTTPStatus: status,
		Retryable:  retryable,
	}
}
