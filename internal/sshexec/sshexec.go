// Package sshexec implements one-shot command execution: connect via the
// three-stage auth ladder (with a richer password-prompt message than the
// plain one the streaming and file-write handlers pass), run the command to completion, and return its
// combined stdout/stderr/exit status.
package sshexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/websoft9/sshcore/internal/authbroker"
	"github.com/websoft9/sshcore/internal/bus"
	"github.com/websoft9/sshcore/internal/sshconn"
	"github.com/websoft9/sshcore/internal/storageclient"
)

// KeychainKeySSHPrivateKeyPEM is the stored-credential key the auth ladder
// falls back to when a request omits an explicit private key.
const KeychainKeySSHPrivateKeyPEM = "ssh_private_key_pem"

// Handle runs req to completion and returns its response.
func Handle(ctx context.Context, storage *storageclient.Client, auth *authbroker.Broker, connector *sshconn.Connector, req bus.SshExecRequest) bus.SshExecResponse {
	requestID := req.RequestID
	fail := func(msg string) bus.SshExecResponse {
		return bus.SshExecResponse{RequestID: requestID, OK: false, ExitStatus: -1, Error: bus.Str(msg)}
	}

	port, err := sshconn.ValidatePort(req.Port)
	if err != nil {
		return fail("Invalid port")
	}
	connectTimeout := sshconn.ClampMillis(req.ConnectTimeoutMS)
	commandTimeout := sshconn.ClampMillis(req.CommandTimeoutMS)

	keyPEM := resolveKeyPEM(ctx, storage, req.PrivateKeyPEM)

	var lastErr string
	if keyPEM != "" {
		client, err := connector.TryKey(ctx, req.Host, port, req.Username, keyPEM, req.PrivateKeyPassphrase, connectTimeout)
		if err == nil {
			defer client.Close()
			return runExec(client, req.Command, commandTimeout, requestID)
		}
		if errors.Is(err, sshconn.ErrKeyInvalid) {
			return fail("SSH private key is invalid or passphrase is wrong")
		}
		if errors.Is(err, sshconn.ErrKeyAuthFailed) {
			lastErr = "SSH key authentication failed"
		} else {
			return fail(err.Error())
		}
	} else {
		lastErr = "No SSH private key set"
	}

	prompt := fmt.Sprintf("%s. Password required for %s@%s.", lastErr, req.Username, req.Host)
	password, err := auth.RequestPassword(ctx, requestID, prompt)
	if err != nil {
		return fail(err.Error())
	}

	client, err := connector.DialPassword(ctx, req.Host, port, req.Username, password, connectTimeout)
	if err != nil {
		return fail(err.Error())
	}
	defer client.Close()
	return runExec(client, req.Command, commandTimeout, requestID)
}

func resolveKeyPEM(ctx context.Context, storage *storageclient.Client, override *string) string {
	if s := strings.TrimSpace(bus.NonEmpty(override)); s != "" {
		return bus.NonEmpty(override)
	}
	v, err := storage.GetKeychainString(ctx, KeychainKeySSHPrivateKeyPEM)
	if err != nil || v == nil {
		return ""
	}
	return *v
}

func runExec(client *ssh.Client, command string, commandTimeout time.Duration, requestID uint64) bus.SshExecResponse {
	sess, err := client.NewSession()
	if err != nil {
		return bus.SshExecResponse{RequestID: requestID, OK: false, ExitStatus: -1, Error: bus.Str(err.Error())}
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- sess.Run(command) }()

	select {
	case err := <-done:
		if err == nil {
			return bus.SshExecResponse{RequestID: requestID, OK: true, Stdout: stdout.String(), Stderr: stderr.String(), ExitStatus: 0}
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return bus.SshExecResponse{RequestID: requestID, OK: true, Stdout: stdout.String(), Stderr: stderr.String(), ExitStatus: coerceExit(exitErr.ExitStatus())}
		}
		return bus.SshExecResponse{RequestID: requestID, OK: false, ExitStatus: -1, Error: bus.Str(err.Error())}
	case <-time.After(commandTimeout):
		_ = sess.Close()
		return bus.SshExecResponse{RequestID: requestID, OK: false, ExitStatus: -1, Error: bus.Str("SSH command timeout")}
	}
}

func coerceExit(code int) int32 {
	if code < -2147483648 || code > 2147483647 {
		return -1
	}
	return int32(code)
}
