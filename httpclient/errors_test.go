package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	apperrors "github.com/kbukum/mobilekit/errors"
)

func TestErrorCode_String(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeTimeout, "timeout"},
		{ErrCodeConnection, "connection"},
		{ErrCodeAuth, "auth"},
		{ErrCodeNotFound, "not_found"},
		{ErrCodeValidation, "validation"},
		{ErrCodeServer, "server"},
		{ErrorCode(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("ErrorCode(%d).String() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestError_Error(t *testing.T) {
	e := &Error{StatusCode: 404, Code: ErrCodeNotFound, Message: "HTTP 404"}
	want := "httpclient: not_found (HTTP 404): HTTP 404"
	if got := e.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	e2 := &Error{Code: ErrCodeConnection, Message: "connection refused"}
	want2 := "httpclient: connection: connection refused"
	if got := e2.Error(); got != want2 {
		t.Errorf("got %q, want %q", got, want2)
	}
}

func TestError_Unwrap(t *testing.T) {
	inner := NewValidationError("bad input")
	outer := &Error{Code: ErrCodeServer, Message: "wrapped", Err: inner}
	if outer.Unwrap() != inner {
		t.Error("Unwrap did not return inner error")
	}
}

func TestClassifyStatusCode(t *testing.T) {
	tests := []struct {
		code    int
		wantNil bool
		errCode ErrorCode
		retry   bool
	}{
		{200, true, 0, false},
		{201, true, 0, false},
		{204, true, 0, false},
		{400, false, ErrCodeValidation, false},
		{401, false, ErrCodeAuth, false},
		{403, false, ErrCodeAuth, false},
		{404, false, ErrCodeNotFound, false},
		{429, false, ErrCodeServer, true},
		{500, false, ErrCodeServer, false},
		{502, false, ErrCodeServer, true},
		{503, false, ErrCodeServer, true},
		{504, false, ErrCodeServer, true},
	}
	for _, tt := range tests {
		e := ClassifyStatusCode(tt.code, []byte("body"))
		if tt.wantNil {
			if e != nil {
				t.Errorf("ClassifyStatusCode(%d): expected nil, got %v", tt.code, e)
			}
			continue
		}
		if e == nil {
			t.Errorf("ClassifyStatusCode(%d): expected error, got nil", tt.code)
			continue
		}
		if e.Code != tt.errCode {
			t.Errorf("ClassifyStatusCode(%d): code = %v, want %v", tt.code, e.Code, tt.errCode)
		}
		if e.Retryable != tt.retry {
			t.Errorf("ClassifyStatusCode(%d): retryable = %v, want %v", tt.code, e.Retryable, tt.retry)
		}
		if string(e.Body) != "body" {
			t.Errorf("ClassifyStatusCode(%d): body not kept", tt.code)
		}
	}
}

func TestIsHelpers(t *testing.T) {
	timeout := NewTimeoutError(fmt.Errorf("timed out"))
	conn := NewConnectionError(fmt.Errorf("connection refused"))
	auth := ClassifyStatusCode(401, nil)
	notFound := ClassifyStatusCode(404, nil)
	unavailable := ClassifyStatusCode(503, nil)
	validation := NewValidationError("bad")

	if !IsTimeout(timeout) {
		t.Error("IsTimeout should match timeout error")
	}
	if !IsConnection(conn) {
		t.Error("IsConnection should match connection error")
	}
	if !IsAuth(auth) {
		t.Error("IsAuth should match auth error")
	}
	if !IsNotFound(notFound) {
		t.Error("IsNotFound should match not-found error")
	}
	if !IsServerError(unavailable) {
		t.Error("IsServerError should match server error")
	}
	if !IsRetryable(timeout) {
		t.Error("timeout should be retryable")
	}
	if !IsRetryable(conn) {
		t.Error("connection should be retryable")
	}
	if !IsRetryable(unavailable) {
		t.Error("503 should be retryable")
	}
	if IsRetryable(auth) {
		t.Error("auth should not be retryable")
	}
	if IsRetryable(validation) {
		t.Error("validation should not be retryable")
	}
	if IsTimeout(errors.New("plain")) {
		t.Error("plain errors are not classified")
	}
}

func TestIsHelpers_Wrapped(t *testing.T) {
	err := fmt.Errorf("create session: %w", ClassifyStatusCode(404, nil))
	if !IsNotFound(err) {
		t.Error("IsNotFound should see through wrapping")
	}
}

func TestIsTimeout_NetError(t *testing.T) {
	err := &net.OpError{Op: "dial", Err: timeoutErr{}}
	if !isTimeout(err) {
		t.Error("expected net timeout to be detected")
	}
	if isTimeout(errors.New("refused")) {
		t.Error("plain error is not a timeout")
	}
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      apperrors.ErrorCode
		retryable bool
	}{
		{"timeout", NewTimeoutError(context.DeadlineExceeded), apperrors.ErrCodeTimeout, true},
		{"connection", NewConnectionError(errors.New("refused")), apperrors.ErrCodeConnectionFailed, true},
		{"unavailable", ClassifyStatusCode(503, nil), apperrors.ErrCodeServiceUnavailable, true},
		{"server", ClassifyStatusCode(500, nil), apperrors.ErrCodeInternal, false},
		{"plain", errors.New("boom"), apperrors.ErrCodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := ToAppError(tt.err, "appium")
			if appErr.Code != tt.code {
				t.Errorf("code = %s, want %s", appErr.Code, tt.code)
			}
			if appErr.Retryable != tt.retryable {
				t.Errorf("retryable = %v, want %v", appErr.Retryable, tt.retryable)
			}
		})
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }
