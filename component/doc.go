// Package component defines lifecycle-managed, process-wide services.
//
// A Registry starts components in registration order and stops them in
// reverse order. The service locator keeps one registry per run; a local
// Appium server is registered there and stopped when the suite finishes.
package component
