// Package appium controls the mobile application under test through an
// Appium server speaking the W3C WebDriver protocol.
//
// A Driver owns one WebDriver session. MobileApplication wraps it with the
// platform and app id so the application can be terminated and the session
// quit. Application factories create sessions either on a remote server
// (a device farm or a server started outside the test run) or on a
// LocalService they launch on first use.
//
// Session creation is retried per the retry settings. WebDriver errors keep
// their W3C code and map to SESSION_FAILED, APP_CONTROL_FAILED or
// NO_SUCH_ELEMENT application errors.
package appium
