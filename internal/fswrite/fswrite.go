// Package fswrite implements text file upload via shell redirection
// (`mkdir -p` + `cat >`) — binary-safe transfer and SFTP are explicitly out
// of scope.
package fswrite

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

// KeychainKeySSHPrivateKeyPEM mirrors the other handlers' stored-credential key.
const KeychainKeySSHPrivateKeyPEM = "ssh_private_key_pem"

// Quote renders s as a single POSIX shell word: the empty string becomes
// `''`; a string made entirely of [A-Za-z0-9_./:=@-] is left unquoted;
// anything else is single-quoted, with embedded quotes escaped as '\''.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case strings.ContainsRune("_./:=@-", r):
		default:
			safe = false
		}
		if !safe {
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Handle connects via the shared auth ladder and writes req.Contents to
// req.RemotePath by piping it into `mkdir -p <dir> && cat > <path>`.
func Handle(ctx context.Context, storage *storageclient.Client, auth *authbroker.Broker, connector *sshconn.Connector, req bus.SshWriteFileRequest) bus.SshWriteFileResponse {
	requestID := req.RequestID
	fail := func(msg string) bus.SshWriteFileResponse {
		return bus.SshWriteFileResponse{RequestID: requestID, OK: false, Error: bus.Str(msg)}
	}

	port, err := sshconn.ValidatePort(req.Port)
	if err != nil {
		return fail("Invalid port")
	}
	connectTimeout := sshconn.ClampMillis(req.ConnectTimeoutMS)
	commandTimeout := sshconn.ClampMillis(req.CommandTimeoutMS)

	keyPEM := resolveKeyPEM(ctx, storage, req.PrivateKeyPEM)
	requestPassword := func(c context.Context) (string, error) {
		return auth.RequestPassword(c, requestID, fmt.Sprintf("Password required for %s@%s.", req.Username, req.Host))
	}

	client, _, err := connector.Connect(ctx, req.Host, port, req.Username, keyPEM, req.PrivateKeyPassphrase, requestPassword, connectTimeout)
	if err != nil {
		return fail(err.Error())
	}
	defer client.Close()

	remoteDir := remoteDirOf(req.RemotePath)
	command := fmt.Sprintf("mkdir -p %s && cat > %s", Quote(remoteDir), Quote(req.RemotePath))

	sess, err := client.NewSession()
	if err != nil {
		return fail(err.Error())
	}
	defer sess.Close()

	stdin, err := sess.StdinPipe()
	if err != nil {
		return fail(err.Error())
	}
	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	if err := sess.Start(command); err != nil {
		return fail(err.Error())
	}

	go func() {
		_, _ = stdin.Write([]byte(req.Contents))
		_ = stdin.Close()
	}()

	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()

	select {
	case err := <-done:
		if err == nil {
			return bus.SshWriteFileResponse{RequestID: requestID, OK: true}
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = strings.TrimSpace(stdout.String())
			}
			return fail(fmt.Sprintf("write failed (exit=%d): %s", exitErr.ExitStatus(), msg))
		}
		return fail(err.Error())
	case <-time.After(commandTimeout):
		_ = sess.Close()
		return fail("SSH command timeout")
	}
}

func remoteDirOf(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return "."
	}
	return path[:idx]
}

func resolveKeyPEM(ctx context.Context, storage *storageclient.Client, override *string) string {
	if s := bus.NonEmpty(override); strings.TrimSpace(s) != "" {
		return s
	}
	v, err := storage.GetKeychainString(ctx, KeychainKeySSHPrivateKeyPEM)
	if err != nil || v == nil {
		return ""
	}
	return *v
}
