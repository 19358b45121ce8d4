// Package steps holds the step definitions of the bundled feature files.
//
// Step types are bound as di.Scenario so each scenario works with fresh
// instances; glue resolves them at step time through the object factory.
package steps

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
	"github.com/stretchr/testify/assert"

	"github.com/kbukum/mobilekit/appium"
	"github.com/kbukum/mobilekit/cucumber"
	"github.com/kbukum/mobilekit/di"
	"github.com/kbukum/mobilekit/modules"
)

// Scenario context keys written by the steps.
const (
	KeySession  = "session"
	KeyPlatform = "platform"
)

// Module binds the step definition types.
func Module() di.Module {
	return di.NewModule("steps", func(b *di.Binder) error {
		di.Provide[*ApplicationSteps](b, di.Scenario, NewApplicationSteps)
		di.Provide[*ContextSteps](b, di.Scenario, NewContextSteps)
		return nil
	})
}

// Register is the glue of the step definitions.
func Register(sc *godog.ScenarioContext, f cucumber.ObjectFactory) {
	app := func() (*ApplicationSteps, error) { return cucumber.Instance[*ApplicationSteps](f) }
	state := func() (*ContextSteps, error) { return cucumber.Instance[*ContextSteps](f) }

	sc.Step(`^the application is started$`, func(ctx context.Context) error {
		s, err := app()
		if err != nil {
			return err
		}
		return s.TheApplicationIsStarted(ctx)
	})
	sc.Step(`^no application is started$`, func() error {
		s, err := app()
		if err != nil {
			return err
		}
		return s.NoApplicationIsStarted()
	})
	sc.Step(`^the application runs on "([^"]*)"$`, func(platform string) error {
		s, err := app()
		if err != nil {
			return err
		}
		return s.TheApplicationRunsOn(platform)
	})
	sc.Step(`^I enter "([^"]*)" into the "([^"]*)" field$`, func(ctx context.Context, text, field string) error {
		s, err := app()
		if err != nil {
			return err
		}
		return s.IEnterIntoTheField(ctx, text, field)
	})
	sc.Step(`^I tap "([^"]*)"$`, func(ctx context.Context, name string) error {
		s, err := app()
		if err != nil {
			return err
		}
		return s.ITap(ctx, name)
	})
	sc.Step(`^the "([^"]*)" field shows "([^"]*)"$`, func(ctx context.Context, field, want string) error {
		s, err := app()
		if err != nil {
			return err
		}
		return s.TheFieldShows(ctx, field, want)
	})

	sc.Step(`^I remember "([^"]*)" as "([^"]*)"$`, func(value, key string) error {
		s, err := state()
		if err != nil {
			return err
		}
		return s.IRemember(value, key)
	})
	sc.Step(`^"([^"]*)" is remembered as "([^"]*)"$`, func(key, want string) error {
		s, err := state()
		if err != nil {
			return err
		}
		return s.IsRemembered(key, want)
	})
	sc.Step(`^nothing is remembered$`, func() error {
		s, err := state()
		if err != nil {
			return err
		}
		return s.NothingIsRemembered()
	})
}

// ApplicationSteps drive the application under test.
type ApplicationSteps struct {
	provider appium.ApplicationProvider
	scenario *modules.ScenarioContext
}

// NewApplicationSteps creates the application steps of a scenario.
func NewApplicationSteps(provider appium.ApplicationProvider, scenario *modules.ScenarioContext) *ApplicationSteps {
	return &ApplicationSteps{provider: provider, scenario: scenario}
}

// TheApplicationIsStarted starts the application if no scenario did yet.
func (s *ApplicationSteps) TheApplicationIsStarted(ctx context.Context) error {
	app, err := s.provider.Application(ctx)
	if err != nil {
		return err
	}
	s.scenario.Set(KeySession, app.Driver().SessionID())
	s.scenario.Set(KeyPlatform, app.Platform().String())
	return nil
}

// NoApplicationIsStarted asserts the previous scenario released the application.
func (s *ApplicationSteps) NoApplicationIsStarted() error {
	var a asserter
	assert.False(&a, s.provider.IsStarted(), "an application is still running")
	return a.err
}

// TheApplicationRunsOn asserts the platform of the started application.
func (s *ApplicationSteps) TheApplicationRunsOn(platform string) error {
	got, ok := modules.Value[string](s.scenario, KeyPlatform)
	if !ok {
		return fmt.Errorf("the application was not started in this scenario")
	}
	var a asserter
	assert.Equal(&a, platform, got)
	return a.err
}

// IEnterIntoTheField types text into the element with the accessibility id field.
func (s *ApplicationSteps) IEnterIntoTheField(ctx context.Context, text, field string) error {
	el, err := s.element(ctx, field)
	if err != nil {
		return err
	}
	return el.SendKeys(ctx, text)
}

// ITap clicks the element with the accessibility id name.
func (s *ApplicationSteps) ITap(ctx context.Context, name string) error {
	el, err := s.element(ctx, name)
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

// TheFieldShows asserts the text of the element with the accessibility id field.
func (s *ApplicationSteps) TheFieldShows(ctx context.Context, field, want string) error {
	el, err := s.element(ctx, field)
	if err != nil {
		return err
	}
	text, err := el.Text(ctx)
	if err != nil {
		return err
	}
	var a asserter
	assert.Equal(&a, want, text, "text of %q", field)
	return a.err
}

func (s *ApplicationSteps) element(ctx context.Context, id string) (*appium.Element, error) {
	app, err := s.provider.Application(ctx)
	if err != nil {
		return nil, err
	}
	return app.Driver().FindElement(ctx, appium.ByAccessibilityID, id)
}

// ContextSteps share values between the steps of one scenario.
type ContextSteps struct {
	scenario *modules.ScenarioContext
}

// NewContextSteps creates the context steps of a scenario.
func NewContextSteps(scenario *modules.ScenarioContext) *ContextSteps {
	return &ContextSteps{scenario: scenario}
}

// IRemember stores value under key.
func (s *ContextSteps) IRemember(value, key string) error {
	s.scenario.Set(key, value)
	return nil
}

// IsRemembered asserts the value stored under key.
func (s *ContextSteps) IsRemembered(key, want string) error {
	got, ok := modules.Value[string](s.scenario, key)
	var a asserter
	if assert.True(&a, ok, "nothing remembered as %q", key) {
		assert.Equal(&a, want, got)
	}
	return a.err
}

// NothingIsRemembered asserts the scenario started with an empty context.
func (s *ContextSteps) NothingIsRemembered() error {
	var a asserter
	assert.Empty(&a, s.scenario.Keys())
	return a.err
}

// asserter collects the first failed assertion as a step error.
type asserter struct {
	err error
}

func (a *asserter) Errorf(format string, args ...interface{}) {
	if a.err == nil {
		a.err = fmt.Errorf(format, args...)
	}
}
