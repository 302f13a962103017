package remote

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsConnectivity(t *testing.T) {
	err := &ConnectivityError{Endpoint: "10.0.0.5:22", Err: errors.New("connection refused")}

	if !IsConnectivity(err) {
		t.Error("expected connectivity error to classify as connectivity")
	}
	if IsCommand(err) {
		t.Error("connectivity error must not classify as command error")
	}

	// Classification must survive wrapping.
	wrapped := fmt.Errorf("scan failed: %w", err)
	if !IsConnectivity(wrapped) {
		t.Error("wrapped connectivity error lost its classification")
	}
}

func TestIsCommand(t *testing.T) {
	err := &CommandError{Command: "find /var/crash", ExitCode: 1, Stderr: "permission denied"}

	if !IsCommand(err) {
		t.Error("expected command error to classify as command")
	}
	if IsConnectivity(err) {
		t.Error("command error must not classify as connectivity")
	}
}

func TestClassify_PlainError(t *testing.T) {
	err := errors.New("something else")
	if IsConnectivity(err) || IsCommand(err) {
		t.Error("plain error should not match either class")
	}
}

func TestConnectivityError_Unwrap(t *testing.T) {
	inner := errors.New("no route to host")
	err := &ConnectivityError{Endpoint: "node-a:22", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("expected Unwrap to expose the inner error")
	}
}
