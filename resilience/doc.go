// Package resilience provides the retry and polling primitives used when
// talking to an Appium server.
//
// Retry re-runs an operation with exponential backoff; it backs session
// creation, where a freshly started server or device may refuse the first
// attempts. WaitFor polls a condition until it holds or a timeout expires;
// it backs local server readiness checks and element lookups.
//
// Scenario cleanup deliberately uses neither: a failed terminate or quit
// surfaces immediately.
package resilience
