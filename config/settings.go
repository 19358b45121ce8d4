package config

import (
	"fmt"
	"maps"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/mobilekit/logger"
	"github.com/kbukum/mobilekit/observability"
	"github.com/kbukum/mobilekit/util"
	"github.com/kbukum/mobilekit/validation"
)

// Supported platforms.
const (
	PlatformAndroid = "android"
	PlatformIOS     = "ios"
)

// Settings is the complete configuration of a test run.
//
// Example settings.yml:
//
//	application:
//	  platform: android
//	  is_remote: true
//	  remote_connection_url: http://127.0.0.1:4723
//	driver:
//	  android:
//	    app_id: com.example.app
//	    capabilities:
//	      appium:automationName: UiAutomator2
//	      appium:app: ./apps/app.apk
type Settings struct {
	Name          string               `yaml:"name" mapstructure:"name"`
	Application   ApplicationSettings  `yaml:"application" mapstructure:"application"`
	Appium        LocalServiceSettings `yaml:"appium" mapstructure:"appium"`
	Driver        DriverSettings       `yaml:"driver" mapstructure:"driver"`
	Timeouts      TimeoutSettings      `yaml:"timeouts" mapstructure:"timeouts"`
	Retry         RetrySettings        `yaml:"retry" mapstructure:"retry"`
	Logging       logger.Config        `yaml:"logging" mapstructure:"logging"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplicationSettings selects the application under test and where its
// Appium session runs.
type ApplicationSettings struct {
	Platform            string `yaml:"platform" mapstructure:"platform" validate:"required,oneof=android ios"`
	IsRemote            bool   `yaml:"is_remote" mapstructure:"is_remote"`
	RemoteConnectionURL string `yaml:"remote_connection_url" mapstructure:"remote_connection_url" validate:"required_if=IsRemote true"`
}

// LocalServiceSettings configures the Appium server started for local runs.
type LocalServiceSettings struct {
	Binary       string            `yaml:"binary" mapstructure:"binary"`
	Host         string            `yaml:"host" mapstructure:"host"`
	Port         int               `yaml:"port" mapstructure:"port" validate:"min=0,max=65535"`
	BasePath     string            `yaml:"base_path" mapstructure:"base_path"`
	Arguments    []string          `yaml:"arguments" mapstructure:"arguments"`
	Env          map[string]string `yaml:"env" mapstructure:"env"`
	StartTimeout time.Duration     `yaml:"start_timeout" mapstructure:"start_timeout"`
}

// Address returns host:port of the local Appium server.
func (s LocalServiceSettings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// URL returns the base URL of the local Appium server.
func (s LocalServiceSettings) URL() string {
	return "http://" + s.Address() + s.BasePath
}

// PlatformSettings holds the session settings of one platform.
type PlatformSettings struct {
	// AppID is the Android package or the iOS bundle id, used to terminate
	// and activate the application.
	AppID string `yaml:"app_id" mapstructure:"app_id"`
	// Capabilities are sent as alwaysMatch capabilities on session creation.
	// Keys keep the case written in the settings file.
	Capabilities map[string]any `yaml:"capabilities" mapstructure:"capabilities"`
}

// DriverSettings holds per-platform session settings.
type DriverSettings struct {
	Android PlatformSettings `yaml:"android" mapstructure:"android"`
	IOS     PlatformSettings `yaml:"ios" mapstructure:"ios"`
}

// TimeoutSettings bounds the blocking operations of a run.
type TimeoutSettings struct {
	// Command bounds a single HTTP command sent to Appium.
	Command time.Duration `yaml:"command" mapstructure:"command"`
	// Condition bounds waits for a condition, such as an element to appear.
	Condition time.Duration `yaml:"condition" mapstructure:"condition"`
	// PollingInterval is the pause between condition checks.
	PollingInterval time.Duration `yaml:"polling_interval" mapstructure:"polling_interval"`
	// SessionCreation bounds a new session, which installs and launches the app.
	SessionCreation time.Duration `yaml:"session_creation" mapstructure:"session_creation"`
}

// RetrySettings configures retries of session creation.
type RetrySettings struct {
	// Number is how many times a failed attempt is retried.
	Number          int           `yaml:"number" mapstructure:"number" validate:"min=0,max=10"`
	PollingInterval time.Duration `yaml:"polling_interval" mapstructure:"polling_interval"`
}

// Defaults.
const (
	DefaultName                   = "mobilekit"
	DefaultAppiumBinary           = "appium"
	DefaultAppiumHost             = "127.0.0.1"
	DefaultAppiumPort             = 4723
	DefaultAppiumStartTimeout     = 60 * time.Second
	DefaultCommandTimeout         = 60 * time.Second
	DefaultConditionTimeout       = 30 * time.Second
	DefaultPollingInterval        = 300 * time.Millisecond
	DefaultSessionCreationTimeout = 5 * time.Minute
	DefaultRetryNumber            = 2
	DefaultRetryPollingInterval   = 300 * time.Millisecond
)

// ApplyDefaults fills unset settings and lower-cases the platform, so
// "iOS" and "Android" are accepted as written in capabilities.
func (s *Settings) ApplyDefaults() {
	s.Application.Platform = strings.ToLower(strings.TrimSpace(s.Application.Platform))
	if s.Name == "" {
		s.Name = DefaultName
	}

	if s.Appium.Binary == "" {
		s.Appium.Binary = DefaultAppiumBinary
	}
	if s.Appium.Host == "" {
		s.Appium.Host = DefaultAppiumHost
	}
	if s.Appium.Port == 0 {
		s.Appium.Port = DefaultAppiumPort
	}
	if s.Appium.StartTimeout <= 0 {
		s.Appium.StartTimeout = DefaultAppiumStartTimeout
	}

	if s.Timeouts.Command <= 0 {
		s.Timeouts.Command = DefaultCommandTimeout
	}
	if s.Timeouts.Condition <= 0 {
		s.Timeouts.Condition = DefaultConditionTimeout
	}
	if s.Timeouts.PollingInterval <= 0 {
		s.Timeouts.PollingInterval = DefaultPollingInterval
	}
	if s.Timeouts.SessionCreation <= 0 {
		s.Timeouts.SessionCreation = DefaultSessionCreationTimeout
	}

	if s.Retry.PollingInterval <= 0 {
		s.Retry.PollingInterval = DefaultRetryPollingInterval
	}

	s.Logging.ApplyDefaults()
	s.Observability.ApplyDefaults(s.Name)
}

// Validate checks the settings. Struct tag rules run first, then rules
// that span several keys. Failures are INVALID_CONFIG errors.
func (s *Settings) Validate() error {
	if err := validation.Validate(s); err != nil {
		return err
	}

	v := validation.New()
	if s.Application.IsRemote {
		v.URL("application.remote_connection_url", s.Application.RemoteConnectionURL)
	} else {
		v.Required("appium.binary", s.Appium.Binary)
		v.Positive("appium.start_timeout", s.Appium.StartTimeout)
	}
	v.Positive("timeouts.command", s.Timeouts.Command)
	v.Positive("timeouts.condition", s.Timeouts.Condition)
	v.Positive("timeouts.polling_interval", s.Timeouts.PollingInterval)
	if err := s.Logging.Validate(); err != nil {
		v.AddError("logging", err.Error())
	}
	if err := s.Observability.Validate(); err != nil {
		v.AddError("observability", err.Error())
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// Platform returns the session settings of the configured platform.
func (s *Settings) Platform() PlatformSettings {
	if s.Application.Platform == PlatformIOS {
		return s.Driver.IOS
	}
	return s.Driver.Android
}

// Capabilities returns a copy of the configured platform's capabilities
// with platformName set.
func (s *Settings) Capabilities() map[string]any {
	caps := make(map[string]any, len(s.Platform().Capabilities)+1)
	maps.Copy(caps, s.Platform().Capabilities)
	if _, ok := caps["platformName"]; !ok {
		caps["platformName"] = platformName(s.Application.Platform)
	}
	return caps
}

// ServerURL returns the Appium server sessions are created on.
func (s *Settings) ServerURL() string {
	if s.Application.IsRemote {
		return s.Application.RemoteConnectionURL
	}
	return s.Appium.URL()
}

// String summarizes the settings for logs. Credentials in the server URL
// are masked.
func (s *Settings) String() string {
	mode := "local"
	if s.Application.IsRemote {
		mode = "remote"
	}
	return fmt.Sprintf("%s %s session on %s", s.Application.Platform, mode, util.MaskURL(s.ServerURL()))
}

func platformName(platform string) string {
	if platform == PlatformIOS {
		return "iOS"
	}
	return "Android"
}
