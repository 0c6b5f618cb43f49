// Package testutil holds helpers shared by the package test suites.
package testutil

import (
	"log"
	"testing"
)

// TestLogger returns a logger that writes through t.Log, so core and
// synchronizer output is collected per test and only shown on failure.
func TestLogger(t *testing.T) *log.Logger {
	return log.New(testWriter{t}, "kvchat: ", log.LstdFlags)
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
