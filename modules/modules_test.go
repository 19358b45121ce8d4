package modules

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/kbukum/mobilekit/appium"
	"github.com/kbukum/mobilekit/appium/appiumtest"
	"github.com/kbukum/mobilekit/config"
	"github.com/kbukum/mobilekit/di"
	apperrors "github.com/kbukum/mobilekit/errors"
	"github.com/kbukum/mobilekit/logger"
	"github.com/kbukum/mobilekit/services"
)

func testSettings(serverURL string, remote bool) *config.Settings {
	s := &config.Settings{
		Name: "modules-test",
		Application: config.ApplicationSettings{
			Platform:            config.PlatformIOS,
			IsRemote:            remote,
			RemoteConnectionURL: serverURL,
		},
		Driver: config.DriverSettings{IOS: config.PlatformSettings{AppID: "com.example.ios"}},
	}
	s.ApplyDefaults()
	return s
}

func scopeModule(scope *di.ScenarioScope) di.Module {
	return di.NewModule("scope", func(b *di.Binder) error {
		di.BindScope(b, scope)
		return nil
	})
}

func TestMobileModule_Bindings(t *testing.T) {
	tests := []struct {
		name   string
		remote bool
		want   string
	}{
		{"remote", true, "*appium.RemoteApplicationFactory"},
		{"local", false, "*appium.LocalApplicationFactory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMobileModule(testSettings("http://127.0.0.1:4723", tt.remote))
			c, err := di.New(di.Production, m)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer c.Close()

			if s := di.MustResolve[*config.Settings](c); s != m.Settings() {
				t.Error("settings should be the module instance")
			}
			if l := di.MustResolve[*logger.Logger](c); l == nil {
				t.Error("expected a logger")
			}
			f := di.MustResolve[appium.ApplicationFactory](c)
			if got := fmt.Sprintf("%T", f); got != tt.want {
				t.Errorf("factory = %s, want %s", got, tt.want)
			}
			if _, ok := di.TryResolve[appium.ApplicationProvider](c); !ok {
				t.Error("expected an application provider")
			}
		})
	}
}

func TestMobileModule_SharedAcrossContainers(t *testing.T) {
	m := NewMobileModule(testSettings("", false))
	first, err := di.New(di.Production, m)
	if err != nil {
		t.Fatal(err)
	}
	second, err := di.New(di.Production, m)
	if err != nil {
		t.Fatal(err)
	}

	a := di.MustResolve[appium.ApplicationFactory](first).(*appium.LocalApplicationFactory)
	b := di.MustResolve[appium.ApplicationFactory](second).(*appium.LocalApplicationFactory)
	if a.Service() != b.Service() {
		t.Error("containers of one module must share the local Appium service")
	}
	if len(m.Registry().All()) != 1 {
		t.Errorf("expected one registered component, got %d", len(m.Registry().All()))
	}
}

func TestMobileModule_NoSettings(t *testing.T) {
	_, err := di.New(di.Production, NewMobileModule(nil))
	if !stderrors.Is(err, apperrors.Code(apperrors.ErrCodeInvalidConfig)) {
		t.Fatalf("expected INVALID_CONFIG, got %v", err)
	}
}

func TestMobileModule_ProviderUsesLocator(t *testing.T) {
	srv := appiumtest.NewServer(t)
	m := NewMobileModule(testSettings(srv.URL, true))
	if err := services.InitInjector(m); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(services.Reset)

	c, err := di.New(di.Production, m)
	if err != nil {
		t.Fatal(err)
	}
	provider := di.MustResolve[appium.ApplicationProvider](c)
	if provider.IsStarted() {
		t.Fatal("application must start lazily")
	}
	app, err := provider.Application(context.Background())
	if err != nil {
		t.Fatalf("Application: %v", err)
	}
	if app.Platform() != appium.IOS || !services.IsApplicationStarted() {
		t.Error("provider should start the locator's application")
	}
	if caps := srv.Capabilities(); caps["platformName"] != "iOS" {
		t.Errorf("unexpected capabilities %v", caps)
	}
}

func TestLoadMobileModule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	data := []byte("application:\n  platform: android\n  is_remote: true\n  remote_connection_url: http://farm:4723\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	m, err := LoadMobileModule([]config.LoaderOption{config.WithSettingsFile(path)})
	if err != nil {
		t.Fatalf("LoadMobileModule: %v", err)
	}
	if m.Settings().ServerURL() != "http://farm:4723" {
		t.Errorf("unexpected server url %s", m.Settings().ServerURL())
	}

	if _, err := LoadMobileModule([]config.LoaderOption{config.WithSettingsFile(filepath.Join(t.TempDir(), "missing.yml"))}); err == nil {
		t.Fatal("expected error for missing settings file")
	}
}

func TestServiceModule_ScenarioContext(t *testing.T) {
	scope := di.NewScenarioScope()
	c, err := di.New(di.Production, scopeModule(scope), NewServiceModule())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := di.Resolve[*ScenarioContext](c); !stderrors.Is(err, apperrors.Code(apperrors.ErrCodeOutOfScope)) {
		t.Fatalf("expected OUT_OF_SCOPE, got %v", err)
	}

	if err := scope.Enter(); err != nil {
		t.Fatal(err)
	}
	first := di.MustResolve[*ScenarioContext](c)
	first.Set("user", "alice")
	first.Set("attempts", 2)
	if again := di.MustResolve[*ScenarioContext](c); again != first {
		t.Error("expected one store per scenario")
	}
	if first.ID() != scope.ID() {
		t.Errorf("store id %q, scope id %q", first.ID(), scope.ID())
	}
	if user, ok := Value[string](first, "user"); !ok || user != "alice" {
		t.Errorf("Value = %q, %v", user, ok)
	}
	if _, ok := Value[string](first, "attempts"); ok {
		t.Error("Value must fail on type mismatch")
	}
	if keys := first.Keys(); len(keys) != 2 || keys[0] != "attempts" {
		t.Errorf("unexpected keys %v", keys)
	}
	if err := scope.Exit(); err != nil {
		t.Fatal(err)
	}
	if len(first.Keys()) != 0 {
		t.Error("store should be cleared when the scenario ends")
	}

	if err := scope.Enter(); err != nil {
		t.Fatal(err)
	}
	defer scope.Exit()
	if next := di.MustResolve[*ScenarioContext](c); next == first {
		t.Error("a new scenario must get a new store")
	}
}

func TestServiceModule_RequiresScope(t *testing.T) {
	_, err := di.New(di.Production, NewServiceModule())
	if !stderrors.Is(err, apperrors.Code(apperrors.ErrCodeBinding)) {
		t.Fatalf("expected BINDING_FAILED, got %v", err)
	}
}
