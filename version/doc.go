// Package version reports the build of the test binary. Test runs attach it
// to telemetry as service.version and to the suite start log.
//
// Version, commit and build time can be set at compile time:
//
//	go test -ldflags "-X github.com/kbukum/mobilekit/version.Version=1.4.0" ./features
package version
