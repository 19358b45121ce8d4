package appium

import (
	"fmt"
	"strings"

	"github.com/kbukum/mobilekit/errors"
)

// Platform is the mobile operating system of the application under test.
type Platform string

const (
	Android Platform = "android"
	IOS     Platform = "ios"
)

// ParsePlatform parses a settings value such as "android" or "iOS".
func ParsePlatform(s string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case Android:
		return Android, nil
	case IOS:
		return IOS, nil
	default:
		return "", errors.InvalidConfig(fmt.Sprintf("unsupported platform %q", s))
	}
}

func (p Platform) String() string { return string(p) }

// appIDArg is the argument name mobile: commands use for the application id.
func (p Platform) appIDArg() string {
	if p == IOS {
		return "bundleId"
	}
	return "appId"
}

// appIDCapability is the capability that names the application when no
// app id is configured.
func (p Platform) appIDCapability() string {
	if p == IOS {
		return "appium:bundleId"
	}
	return "appium:appPackage"
}
