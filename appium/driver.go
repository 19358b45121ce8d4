package appium

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kbukum/mobilekit/errors"
	"github.com/kbukum/mobilekit/httpclient"
	"github.com/kbukum/mobilekit/logger"
	"github.com/kbukum/mobilekit/observability"
)

// Command names used in logs, spans and metrics.
const (
	CommandNewSession    = "newSession"
	CommandDeleteSession = "deleteSession"
	CommandExecute       = "executeScript"
	CommandFindElement   = "findElement"
	CommandClick         = "elementClick"
	CommandSendKeys      = "elementSendKeys"
	CommandText          = "getElementText"

	ScriptTerminateApp = "mobile: terminateApp"
	ScriptActivateApp  = "mobile: activateApp"
)

// Locator strategies.
const (
	ByID              = "id"
	ByAccessibilityID = "accessibility id"
	ByXPath           = "xpath"
	ByClassName       = "class name"
)

// DriverConfig configures a WebDriver session.
type DriverConfig struct {
	// ServerURL is the Appium server base URL. User info becomes basic auth.
	ServerURL string
	// CommandTimeout bounds each command.
	CommandTimeout time.Duration
	// SessionTimeout bounds session creation.
	SessionTimeout time.Duration
	// Metrics records command counts and durations. May be nil.
	Metrics *observability.Metrics
}

// Driver is a W3C WebDriver session on an Appium server.
type Driver struct {
	client         *httpclient.Client
	commandTimeout time.Duration
	metrics        *observability.Metrics
	log            *logger.Logger

	mu           sync.Mutex
	sessionID    string
	capabilities map[string]any
}

// NewSession creates a session with the given alwaysMatch capabilities.
func NewSession(ctx context.Context, cfg DriverConfig, capabilities map[string]any) (*Driver, error) {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 60 * time.Second
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = cfg.CommandTimeout
	}
	client, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.ServerURL,
		Timeout: max(cfg.CommandTimeout, cfg.SessionTimeout),
	})
	if err != nil {
		return nil, errors.InvalidConfig(err.Error())
	}

	d := &Driver{
		client:         client,
		commandTimeout: cfg.CommandTimeout,
		metrics:        cfg.Metrics,
		log:            logger.Get(logger.ComponentAppium),
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.SessionTimeout)
	defer cancel()

	ctx, span := observability.StartSpan(ctx, observability.SpanSessionCreate)
	defer span.End()

	body := map[string]any{
		"capabilities": map[string]any{
			"alwaysMatch": capabilities,
			"firstMatch":  []any{map[string]any{}},
		},
	}
	var session struct {
		SessionID    string         `json:"sessionId"`
		Capabilities map[string]any `json:"capabilities"`
	}
	if err := d.send(ctx, CommandNewSession, http.MethodPost, "/session", body, &session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if appErr, ok := errors.AsAppError(err); ok && appErr.Code == errors.ErrCodeSessionFailed {
			return nil, appErr
		}
		return nil, errors.SessionFailed(err)
	}
	if session.SessionID == "" {
		return nil, errors.SessionFailed(fmt.Errorf("server returned no session id"))
	}

	d.sessionID = session.SessionID
	d.capabilities = session.Capabilities
	span.SetAttributes(attribute.String(observability.AttrSessionID, session.SessionID))
	d.log.Info("session created", logger.Fields(
		logger.FieldSessionID, session.SessionID,
		logger.FieldURL, client.BaseURL(),
	))
	return d, nil
}

// SessionID returns the session id, or "" once the session is deleted.
func (d *Driver) SessionID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessionID
}

// Capabilities returns the capabilities the server reported for the session.
func (d *Driver) Capabilities() map[string]any {
	return d.capabilities
}

// Execute runs an Appium script such as "mobile: terminateApp" and decodes
// its value into out, which may be nil.
func (d *Driver) Execute(ctx context.Context, script string, args []any, out any) error {
	if args == nil {
		args = []any{}
	}
	body := map[string]any{"script": script, "args": args}
	return d.sessionCommand(ctx, script, http.MethodPost, "/execute/sync", body, out)
}

// TerminateApp stops the application without ending the session. It
// reports whether the application was running.
func (d *Driver) TerminateApp(ctx context.Context, platform Platform, appID string) (bool, error) {
	var terminated bool
	args := []any{map[string]any{platform.appIDArg(): appID}}
	if err := d.Execute(ctx, ScriptTerminateApp, args, &terminated); err != nil {
		return false, err
	}
	return terminated, nil
}

// ActivateApp brings the application to the foreground, launching it if needed.
func (d *Driver) ActivateApp(ctx context.Context, platform Platform, appID string) error {
	args := []any{map[string]any{platform.appIDArg(): appID}}
	return d.Execute(ctx, ScriptActivateApp, args, nil)
}

// FindElement finds the first element matching the locator.
func (d *Driver) FindElement(ctx context.Context, by, value string) (*Element, error) {
	var ref map[string]string
	body := map[string]string{"using": by, "value": value}
	err := d.sessionCommand(ctx, CommandFindElement, http.MethodPost, "/element", body, &ref)
	if err != nil {
		if IsWebDriverError(err, ErrNoSuchElement) {
			return nil, errors.NoSuchElement(by, value).WithCause(err)
		}
		return nil, err
	}
	id := ref[elementKey]
	if id == "" {
		return nil, errors.AppControl(CommandFindElement, fmt.Errorf("response has no element reference"))
	}
	return &Element{driver: d, id: id}, nil
}

// Quit deletes the session. Calling Quit on a deleted session is a no-op.
func (d *Driver) Quit(ctx context.Context) error {
	id := d.SessionID()
	if id == "" {
		return nil
	}
	if err := d.send(ctx, CommandDeleteSession, http.MethodDelete, "/session/"+url.PathEscape(id), nil, nil); err != nil {
		return err
	}

	d.mu.Lock()
	d.sessionID = ""
	d.mu.Unlock()
	d.log.Info("session deleted", logger.Fields(logger.FieldSessionID, id))
	return nil
}

// sessionCommand sends a command scoped to the current session.
func (d *Driver) sessionCommand(ctx context.Context, command, method, path string, body, out any) error {
	id := d.SessionID()
	if id == "" {
		return errors.AppControl(command, fmt.Errorf("session is closed"))
	}
	ctx, cancel := context.WithTimeout(ctx, d.commandTimeout)
	defer cancel()
	return d.send(ctx, command, method, "/session/"+url.PathEscape(id)+path, body, out)
}

// send performs one WebDriver command, records it and decodes the value.
func (d *Driver) send(ctx context.Context, command, method, path string, body, out any) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanCommand)
	defer span.End()
	span.SetAttributes(attribute.String(observability.AttrCommand, command))

	start := time.Now()
	resp, err := d.client.Do(ctx, httpclient.Request{Method: method, Path: path, Body: body})
	duration := time.Since(start)

	status := observability.StatusOK
	if err != nil {
		status = observability.StatusError
	}
	if d.metrics != nil {
		d.metrics.RecordCommand(ctx, command, status, duration)
	}

	if err != nil {
		appErr := commandError(command, resp, err)
		span.RecordError(appErr)
		span.SetStatus(codes.Error, appErr.Error())
		if d.metrics != nil {
			d.metrics.RecordError(ctx, string(appErr.Code), "appium")
		}
		d.log.Debug("command failed", logger.MergeWithError(logger.Fields(
			logger.FieldCommand, command,
			logger.FieldDuration, duration.Milliseconds(),
		), appErr))
		return appErr
	}

	d.log.Debug("command", logger.Fields(
		logger.FieldCommand, command,
		logger.FieldDuration, duration.Milliseconds(),
	))
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	var env response
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return errors.AppControl(command, fmt.Errorf("decode response: %w", err))
	}
	if len(env.Value) == 0 || string(env.Value) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Value, out); err != nil {
		return errors.AppControl(command, fmt.Errorf("decode value: %w", err))
	}
	return nil
}

// Element is a reference to a UI element in the session.
type Element struct {
	driver *Driver
	id     string
}

// ID returns the WebDriver element id.
func (e *Element) ID() string { return e.id }

// Click taps the element.
func (e *Element) Click(ctx context.Context) error {
	return e.driver.sessionCommand(ctx, CommandClick, http.MethodPost, e.path("/click"), map[string]any{}, nil)
}

// SendKeys types text into the element.
func (e *Element) SendKeys(ctx context.Context, text string) error {
	return e.driver.sessionCommand(ctx, CommandSendKeys, http.MethodPost, e.path("/value"), map[string]any{"text": text}, nil)
}

// Text returns the visible text of the element.
func (e *Element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.driver.sessionCommand(ctx, CommandText, http.MethodGet, e.path("/text"), nil, &text); err != nil {
		return "", err
	}
	return text, nil
}

func (e *Element) path(suffix string) string {
	return "/element/" + url.PathEscape(e.id) + suffix
}
