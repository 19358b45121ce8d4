// Package config loads the settings of a test run.
//
// It uses Viper to read settings.yml (or settings.<profile>.yml when a
// profile is selected through $PROFILE), loads a .env file with godotenv and
// binds environment variables onto settings keys. Defaults are applied and
// the result is validated before it is returned.
//
// # Usage
//
//	settings, err := config.Load()
//	settings, err := config.Load(config.WithSettingsFile("testdata/settings.yml"))
//
// Environment variables override file values using underscore-separated
// paths (e.g., APPLICATION_PLATFORM=ios, APPLICATION_IS_REMOTE=true,
// DRIVER_ANDROID_APP_ID=com.example.app). Durations are written as Go
// duration strings ("30s", "300ms").
package config
