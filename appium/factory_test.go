package appium

import (
	"context"
	stderrors "errors"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/kbukum/mobilekit/appium/appiumtest"
	"github.com/kbukum/mobilekit/component"
	"github.com/kbukum/mobilekit/config"
	apperrors "github.com/kbukum/mobilekit/errors"
)

func remoteSettings(serverURL string) *config.Settings {
	s := &config.Settings{
		Application: config.ApplicationSettings{
			Platform:            config.PlatformAndroid,
			IsRemote:            true,
			RemoteConnectionURL: serverURL,
		},
		Driver: config.DriverSettings{
			Android: config.PlatformSettings{
				AppID:        "com.example.app",
				Capabilities: map[string]any{"appium:automationName": "UiAutomator2"},
			},
		},
		Retry: config.RetrySettings{Number: 1, PollingInterval: 10 * time.Millisecond},
	}
	s.ApplyDefaults()
	return s
}

// localSettings points the local service at srv and uses a script that
// stands in for the appium binary.
func localSettings(t *testing.T, srv *appiumtest.Server, script string) *config.Settings {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	host, portStr, _ := net.SplitHostPort(u.Host)
	port, _ := strconv.Atoi(portStr)

	s := remoteSettings("")
	s.Application.IsRemote = false
	s.Appium = config.LocalServiceSettings{
		Binary:       fakeAppium(t, script),
		Host:         host,
		Port:         port,
		StartTimeout: 5 * time.Second,
	}
	s.ApplyDefaults()
	return s
}

const runningAppium = `#!/bin/sh
if [ "$1" = "--version" ]; then echo 2.11.0; exit 0; fi
echo "[Appium] Welcome to Appium"
exec sleep 30
`

func fakeAppium(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "appium")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRemoteApplicationFactory(t *testing.T) {
	srv := appiumtest.NewServer(t)
	f := NewRemoteApplicationFactory(remoteSettings(srv.URL))

	app, err := f.Application(context.Background())
	if err != nil {
		t.Fatalf("Application: %v", err)
	}
	if app.Platform() != Android {
		t.Errorf("expected android, got %s", app.Platform())
	}
	caps := srv.Capabilities()
	if caps["platformName"] != "Android" || caps["appium:automationName"] != "UiAutomator2" {
		t.Errorf("unexpected capabilities %v", caps)
	}
	if f.ServerURL() != srv.URL {
		t.Errorf("expected server url %s, got %s", srv.URL, f.ServerURL())
	}
}

func TestRemoteApplicationFactory_RetriesSession(t *testing.T) {
	srv := appiumtest.NewServer(t)
	srv.Fail(appiumtest.NewSession, appiumtest.Failure{Error: ErrSessionNotCreated, Times: 1})

	app, err := NewRemoteApplicationFactory(remoteSettings(srv.URL)).Application(context.Background())
	if err != nil {
		t.Fatalf("Application: %v", err)
	}
	if app.Driver().SessionID() == "" {
		t.Error("expected a session")
	}
	if n := srv.Count(appiumtest.NewSession); n != 2 {
		t.Errorf("expected 2 session attempts, got %d", n)
	}
}

func TestRemoteApplicationFactory_RetryExhausted(t *testing.T) {
	srv := appiumtest.NewServer(t)
	srv.Fail(appiumtest.NewSession, appiumtest.Failure{Error: ErrSessionNotCreated})

	settings := remoteSettings(srv.URL)
	settings.Retry.Number = 2
	_, err := NewRemoteApplicationFactory(settings).Application(context.Background())
	if !stderrors.Is(err, apperrors.Code(apperrors.ErrCodeSessionFailed)) {
		t.Fatalf("expected SESSION_FAILED, got %v", err)
	}
	if n := srv.Count(appiumtest.NewSession); n != 3 {
		t.Errorf("expected 3 session attempts, got %d", n)
	}
}

func TestSessionRetryConfig(t *testing.T) {
	cfg := sessionRetryConfig(config.RetrySettings{Number: 2, PollingInterval: 250 * time.Millisecond})

	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.InitialBackoff != 250*time.Millisecond || cfg.MaxBackoff != cfg.InitialBackoff || cfg.BackoffFactor != 1 {
		t.Errorf("expected a fixed 250ms pause, got %+v", cfg)
	}
	if !cfg.RetryIf(apperrors.SessionFailed(stderrors.New(ErrSessionNotCreated))) {
		t.Error("a failed session should be retried")
	}
	if cfg.RetryIf(apperrors.InvalidConfig("no app id")) {
		t.Error("invalid settings should not be retried")
	}
}

func TestRemoteApplicationFactory_BadPlatform(t *testing.T) {
	settings := remoteSettings("http://127.0.0.1:1")
	settings.Application.Platform = "windows"
	_, err := NewRemoteApplicationFactory(settings).Application(context.Background())
	if !stderrors.Is(err, apperrors.Code(apperrors.ErrCodeInvalidConfig)) {
		t.Fatalf("expected INVALID_CONFIG, got %v", err)
	}
}

func TestNewApplicationFactory(t *testing.T) {
	srv := appiumtest.NewServer(t)
	registry := component.NewRegistry()

	f, err := NewApplicationFactory(remoteSettings(srv.URL), registry)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f.(*RemoteApplicationFactory); !ok {
		t.Errorf("expected remote factory, got %T", f)
	}
	if len(registry.All()) != 0 {
		t.Error("remote factory must not register a local service")
	}

	f, err = NewApplicationFactory(localSettings(t, srv, runningAppium), registry)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f.(*LocalApplicationFactory); !ok {
		t.Errorf("expected local factory, got %T", f)
	}
	if registry.Get(LocalServiceName) == nil {
		t.Error("expected local service to be registered")
	}
}

func TestLocalApplicationFactory(t *testing.T) {
	srv := appiumtest.NewServer(t)
	registry := component.NewRegistry()
	f, err := NewLocalApplicationFactory(localSettings(t, srv, runningAppium), registry)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = registry.StopAll(context.Background()) })

	ctx := context.Background()
	app, err := f.Application(ctx)
	if err != nil {
		t.Fatalf("Application: %v", err)
	}
	if !registry.Started(LocalServiceName) {
		t.Error("expected local service to be started")
	}
	if srv.Count(appiumtest.Status) == 0 {
		t.Error("expected readiness polling")
	}
	if err := app.Quit(ctx); err != nil {
		t.Fatalf("Quit: %v", err)
	}

	// a second application reuses the running server
	if _, err := f.Application(ctx); err != nil {
		t.Fatalf("second Application: %v", err)
	}
	if f.Service().Health(ctx).Status != component.StatusHealthy {
		t.Error("expected healthy service")
	}

	if err := registry.StopAll(ctx); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	if f.Service().Health(ctx).Status != component.StatusUnhealthy {
		t.Error("expected stopped service to be unhealthy")
	}
}

func TestLocalApplicationFactory_SharesRegisteredService(t *testing.T) {
	srv := appiumtest.NewServer(t)
	registry := component.NewRegistry()
	settings := localSettings(t, srv, runningAppium)

	first, err := NewLocalApplicationFactory(settings, registry)
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewLocalApplicationFactory(settings, registry)
	if err != nil {
		t.Fatal(err)
	}
	if first.Service() != second.Service() {
		t.Error("factories should share the registered service")
	}
}
