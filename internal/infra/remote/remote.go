package remote

import (
	"context"
	"errors"
	"fmt"
)

// Result holds the outcome of a remote command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Executor runs commands on a target machine. Implementations must return
// *ConnectivityError when the target is unreachable and *CommandError when
// the command ran but exited non-zero.
type Executor interface {
	// Run executes a command on the target. The context bounds the attempt.
	Run(ctx context.Context, command string) (*Result, error)

	// Endpoint returns the target address, for logging.
	Endpoint() string

	// Close tears down any open session. Safe to call at any time; the next
	// Run re-establishes the connection.
	Close() error
}

// ConnectivityError indicates the target could not be reached. During a
// crash/reboot cycle every flavor of it (DNS, refused, handshake, dropped
// session) is expected and transient, so callers never distinguish them.
type ConnectivityError struct {
	Endpoint string
	Err      error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("target %s unreachable: %v", e.Endpoint, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// CommandError indicates the command ran but exited non-zero.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q exited %d: %s", e.Command, e.ExitCode, e.Stderr)
}

// IsConnectivity reports whether err stems from the target being unreachable.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

// IsCommand reports whether err is a non-zero exit from a command that ran.
func IsCommand(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}
