// Package shared holds helpers used by more than one package.
//
// The testutil subpackage provides a capturing slog handler and a small
// metadata.csv fixture used by service, transport and application tests.
package shared
