// Package process runs subprocesses in their own process group.
//
// Run executes a command to completion and captures its output. Start
// launches a long-running process (such as a local Appium server) that is
// later terminated with Stop: SIGTERM to the whole group, then SIGKILL once
// the grace period runs out.
package process
