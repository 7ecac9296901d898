// Package testutil holds small shared fakes used across the core's test
// suites, grounded on Synnergy's internal/testutil convention of keeping
// test doubles out of the production packages they exercise.
package testutil

import "floatingtemple/internal/logging"

// NoopLogger satisfies logging.Logger while discarding everything,
// keeping test output free of incidental log noise.
type NoopLogger struct{}

func (NoopLogger) Info(...interface{})           {}
func (NoopLogger) Infof(string, ...interface{})  {}
func (NoopLogger) Warn(...interface{})           {}
func (NoopLogger) Warnf(string, ...interface{})  {}
func (NoopLogger) Error(...interface{})          {}
func (NoopLogger) Errorf(string, ...interface{}) {}
func (NoopLogger) Debug(...interface{})          {}
func (NoopLogger) Debugf(string, ...interface{}) {}
func (NoopLogger) Fatal(...interface{})          {}
func (NoopLogger) Fatalf(string, ...interface{}) {}
func (NoopLogger) ToggleDebug(on bool) bool      { return on }
func (NoopLogger) With(string, interface{}) logging.Logger {
	return NoopLogger{}
}
