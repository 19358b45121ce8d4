// Package validation checks loaded settings.
//
// Struct tag validation (using the validator library) covers single-key
// rules; the programmatic Validator covers rules spanning several keys.
// Both report failures as INVALID_CONFIG errors naming the settings keys.
//
// # Struct Tag Validation
//
//	type ApplicationSettings struct {
//	    Platform string `mapstructure:"platform" validate:"required,oneof=android ios"`
//	}
//	err := validation.Validate(settings)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Custom(!s.IsRemote || s.RemoteURL != "", "application.remote_connection_url", "is required for remote runs")
//	if appErr := v.Validate(); appErr != nil { ... }
package validation
