// Package keyinstall appends a derived public key to a remote user's
// authorized_keys file over a password-only SSH connection. It never
// attempts key auth against the install target, and it deliberately
// ignores the remote command's exit status: a non-zero exit from the
// composite shell command is not treated as RPC failure, only a transport
// or timeout error is.
package keyinstall

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/websoft9/sshcore/internal/bus"
	"github.com/websoft9/sshcore/internal/fswrite"
	"github.com/websoft9/sshcore/internal/sshconn"
	"github.com/websoft9/sshcore/internal/sshkey"
)

const (
	connectTimeout = 10 * time.Second
	commandTimeout = 30 * time.Second
)

// Handle parses req.UserAtHost, derives the authorized_keys line from
// req.PrivateKeyPEM, and installs it on the target via a fixed shell
// command run over a freshly password-authenticated connection.
func Handle(ctx context.Context, connector *sshconn.Connector, req bus.SshInstallPublicKeyRequest) bus.SshInstallPublicKeyResponse {
	requestID := req.RequestID
	fail := func(msg string) bus.SshInstallPublicKeyResponse {
		return bus.SshInstallPublicKeyResponse{RequestID: requestID, OK: false, Error: bus.Str(msg)}
	}

	at := strings.IndexByte(req.UserAtHost, '@')
	if at < 0 {
		return fail("user_at_host must be username@host")
	}
	username := req.UserAtHost[:at]
	host := req.UserAtHost[at+1:]

	port, err := sshconn.ValidatePort(req.Port)
	if err != nil {
		return fail("Invalid port")
	}

	line, err := sshkey.DeriveAuthorizedKey(req.PrivateKeyPEM, req.PrivateKeyPassphrase, req.Comment)
	if err != nil {
		return fail(err.Error())
	}

	remoteCmd := remoteInstallCommand(line)

	client, err := connector.DialPassword(ctx, host, port, username, req.Password, connectTimeout)
	if err != nil {
		return fail(err.Error())
	}
	defer client.Close()

	sess, err := client.NewSession()
	if err != nil {
		return fail(err.Error())
	}
	defer sess.Close()

	done := make(chan error, 1)
	go func() { done <- sess.Run(remoteCmd) }()

	select {
	case err := <-done:
		if err != nil && !isExitStatusError(err) {
			// A transport-level failure, not a nonzero exit from the
			// remote command — the latter is ignored by design.
			return fail(err.Error())
		}
		return bus.SshInstallPublicKeyResponse{RequestID: requestID, OK: true}
	case <-time.After(commandTimeout):
		_ = sess.Close()
		return fail("SSH command timeout")
	}
}

func remoteInstallCommand(authorizedKeyLine string) string {
	escaped := fswrite.Quote(authorizedKeyLine)
	return strings.Join([]string{
		"umask 077",
		"mkdir -p ~/.ssh",
		"chmod 700 ~/.ssh",
		"touch ~/.ssh/authorized_keys",
		"chmod 600 ~/.ssh/authorized_keys",
		fmt.Sprintf("grep -qxF %s ~/.ssh/authorized_keys || printf '%%s\\n' %s >> ~/.ssh/authorized_keys", escaped, escaped),
	}, "; ")
}

func isExitStatusError(err error) bool {
	type exitStatuser interface{ ExitStatus() int }
	_, ok := err.(exitStatuser)
	return ok
}
