// Package util provides string helpers shared by settings and process
// handling: masking secrets for logs and cleaning environment values.
package util
