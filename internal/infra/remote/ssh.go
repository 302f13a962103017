package remote

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHConfig holds connection settings for an SSH executor.
type SSHConfig struct {
	Endpoint    string // host:port
	User        string
	KeyFile     string
	Password    string
	DialTimeout time.Duration
}

// SSHExecutor implements Executor over SSH. A dropped connection is released
// on failure and re-dialed on the next Run, which is the normal rhythm while
// the target crashes and reboots.
type SSHExecutor struct {
	cfg SSHConfig

	mu           sync.Mutex
	client       *ssh.Client
	successCount int
	failureCount int
}

// NewSSHExecutor creates an executor for the given target.
func NewSSHExecutor(cfg SSHConfig) *SSHExecutor {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	return &SSHExecutor{cfg: cfg}
}

// Endpoint returns the target address.
func (e *SSHExecutor) Endpoint() string {
	return e.cfg.Endpoint
}

// Run executes a command, dialing first if no session is open.
func (e *SSHExecutor) Run(ctx context.Context, command string) (*Result, error) {
	client, err := e.ensureClient(ctx)
	if err != nil {
		e.recordFailure()
		return nil, &ConnectivityError{Endpoint: e.cfg.Endpoint, Err: err}
	}

	session, err := client.NewSession()
	if err != nil {
		// The transport looked open but the session failed; the target
		// likely dropped mid-reboot. Release the client so the next Run
		// re-dials.
		e.drop()
		e.recordFailure()
		return nil, &ConnectivityError{Endpoint: e.cfg.Endpoint, Err: err}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		// A hung command on a crashing box is indistinguishable from a lost
		// connection; release the client and report it as such.
		_ = session.Signal(ssh.SIGKILL)
		e.drop()
		e.recordFailure()
		return nil, &ConnectivityError{Endpoint: e.cfg.Endpoint, Err: ctx.Err()}
	case err = <-done:
	}

	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		e.recordSuccess()
		return res, nil
	}

	if exitErr, ok := err.(*ssh.ExitError); ok {
		res.ExitCode = exitErr.ExitStatus()
		e.recordSuccess() // the transport worked; the command did not
		return res, &CommandError{
			Command:  command,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
		}
	}

	// Exit status missing or transport error: the connection died under us.
	e.drop()
	e.recordFailure()
	return nil, &ConnectivityError{Endpoint: e.cfg.Endpoint, Err: err}
}

// Close tears down the current connection, if any.
func (e *SSHExecutor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		err := e.client.Close()
		e.client = nil
		return err
	}
	return nil
}

// Stats returns success/failure counts since creation.
func (e *SSHExecutor) Stats() (successes, failures int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.successCount, e.failureCount
}

func (e *SSHExecutor) ensureClient(ctx context.Context) (*ssh.Client, error) {
	e.mu.Lock()
	if e.client != nil {
		client := e.client
		e.mu.Unlock()
		return client, nil
	}
	e.mu.Unlock()

	auth, err := e.authMethods()
	if err != nil {
		return nil, err
	}

	timeout := e.cfg.DialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("no time left to dial %s", e.cfg.Endpoint)
	}

	clientCfg := &ssh.ClientConfig{
		User: e.cfg.User,
		Auth: auth,
		// Lab targets are re-imaged constantly; host keys churn with them.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	client, err := ssh.Dial("tcp", e.cfg.Endpoint, clientCfg)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.client = client
	e.mu.Unlock()
	return client, nil
}

func (e *SSHExecutor) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if e.cfg.KeyFile != "" {
		key, err := os.ReadFile(e.cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if e.cfg.Password != "" {
		methods = append(methods, ssh.Password(e.cfg.Password))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no auth configured for %s", e.cfg.Endpoint)
	}
	return methods, nil
}

func (e *SSHExecutor) drop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client != nil {
		_ = e.client.Close()
		e.client = nil
	}
}

func (e *SSHExecutor) recordSuccess() {
	e.mu.Lock()
	e.successCount++
	e.mu.Unlock()
}

func (e *SSHExecutor) recordFailure() {
	e.mu.Lock()
	e.failureCount++
	e.mu.Unlock()
}
