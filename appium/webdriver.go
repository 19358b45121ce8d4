package appium

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/kbukum/mobilekit/errors"
	"github.com/kbukum/mobilekit/httpclient"
)

// W3C WebDriver error codes returned in {"value":{"error":...}}.
const (
	ErrNoSuchElement      = "no such element"
	ErrInvalidSessionID   = "invalid session id"
	ErrSessionNotCreated  = "session not created"
	ErrStaleElement       = "stale element reference"
	ErrUnknownError       = "unknown error"
	ErrUnknownCommand     = "unknown command"
	ErrInvalidArgument    = "invalid argument"
	ErrElementNotInteract = "element not interactable"
)

// elementKey is the W3C web element identifier key.
const elementKey = "element-6066-11e4-a52e-4f735466cecf"

// WebDriverError is an error payload returned by the Appium server.
type WebDriverError struct {
	// Command is the command that failed, e.g. "findElement".
	Command string
	// StatusCode is the HTTP status of the response.
	StatusCode int
	// Code is the W3C error code, e.g. "no such element".
	Code string
	// Message is the server's description.
	Message string
}

func (e *WebDriverError) Error() string {
	return fmt.Sprintf("%s: %s (HTTP %d): %s", e.Command, e.Code, e.StatusCode, e.Message)
}

// response is the W3C response envelope.
type response struct {
	Value json.RawMessage `json:"value"`
}

type errorValue struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// parseWebDriverError extracts the WebDriver error from an error response,
// or returns nil when the body carries none.
func parseWebDriverError(command string, status int, body []byte) *WebDriverError {
	var env struct {
		Value errorValue `json:"value"`
	}
	if err := json.Unmarshal(body, &env); err != nil || env.Value.Error == "" {
		return nil
	}
	return &WebDriverError{
		Command:    command,
		StatusCode: status,
		Code:       env.Value.Error,
		Message:    env.Value.Message,
	}
}

// commandError converts a failed HTTP exchange into an AppError.
func commandError(command string, resp *httpclient.Response, err error) *errors.AppError {
	var wdErr *WebDriverError
	if resp != nil {
		wdErr = parseWebDriverError(command, resp.StatusCode, resp.Body)
	}
	if wdErr == nil {
		var httpErr *httpclient.Error
		if stderrors.As(err, &httpErr) && httpErr.StatusCode == 0 {
			return httpclient.ToAppError(err, "appium")
		}
		return errors.AppControl(command, err)
	}
	if wdErr.Code == ErrSessionNotCreated {
		return errors.SessionFailed(wdErr)
	}
	return errors.AppControl(command, wdErr).WithDetail("webdriver_error", wdErr.Code)
}

// IsWebDriverError reports whether err carries the given W3C error code.
func IsWebDriverError(err error, code string) bool {
	var wdErr *WebDriverError
	return stderrors.As(err, &wdErr) && wdErr.Code == code
}
