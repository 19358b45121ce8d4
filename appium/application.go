package appium

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/mobilekit/errors"
	"github.com/kbukum/mobilekit/logger"
)

// Application is the handle of the application under test.
type Application interface {
	// Driver returns the WebDriver session driving the application.
	Driver() *Driver
	// Platform returns the platform the application runs on.
	Platform() Platform
	// Terminate stops the application. The session stays open.
	Terminate(ctx context.Context) error
	// Quit ends the session.
	Quit(ctx context.Context) error
}

// MobileApplication is an Application backed by an Appium session.
type MobileApplication struct {
	driver   *Driver
	platform Platform
	appID    string
	log      *logger.Logger

	mu       sync.Mutex
	quit     bool
	onQuitFn func()
}

// NewApplication wraps a session. appID is the Android package or iOS
// bundle id used by Terminate.
func NewApplication(driver *Driver, platform Platform, appID string) *MobileApplication {
	return &MobileApplication{
		driver:   driver,
		platform: platform,
		appID:    appID,
		log:      logger.Get(logger.ComponentApplication),
	}
}

// Driver returns the session driver.
func (a *MobileApplication) Driver() *Driver { return a.driver }

// Platform returns the application platform.
func (a *MobileApplication) Platform() Platform { return a.platform }

// AppID returns the id Terminate and Activate address.
func (a *MobileApplication) AppID() string { return a.appID }

// OnQuit registers fn to run after a successful Quit.
func (a *MobileApplication) OnQuit(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onQuitFn = fn
}

// Terminate stops the application under test.
func (a *MobileApplication) Terminate(ctx context.Context) error {
	if a.appID == "" {
		return errors.AppControl(ScriptTerminateApp, fmt.Errorf("no app id configured for %s", a.platform))
	}
	running, err := a.driver.TerminateApp(ctx, a.platform, a.appID)
	if err != nil {
		return err
	}
	a.log.Info("application terminated", logger.Fields(
		logger.FieldSessionID, a.driver.SessionID(),
		"app_id", a.appID,
		"was_running", running,
	))
	return nil
}

// Activate launches the application or brings it to the foreground.
func (a *MobileApplication) Activate(ctx context.Context) error {
	if a.appID == "" {
		return errors.AppControl(ScriptActivateApp, fmt.Errorf("no app id configured for %s", a.platform))
	}
	return a.driver.ActivateApp(ctx, a.platform, a.appID)
}

// Quit ends the session.
func (a *MobileApplication) Quit(ctx context.Context) error {
	if err := a.driver.Quit(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	a.quit = true
	fn := a.onQuitFn
	a.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// Closed reports whether Quit succeeded.
func (a *MobileApplication) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.quit
}

// appIDFrom returns the configured app id, falling back to the capability
// that names the application.
func appIDFrom(platform Platform, appID string, capabilities map[string]any) string {
	if appID != "" {
		return appID
	}
	if v, ok := capabilities[platform.appIDCapability()].(string); ok {
		return v
	}
	return ""
}
