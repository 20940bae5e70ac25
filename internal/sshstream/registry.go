// Package sshstream implements the streaming command runner: connect, run
// a long-lived remote command, fan out incremental line events, and honor
// out-of-band cancellation. Grounded on the teacher's idle-timeout session
// registry (internal/terminal/session.go) for the id-keyed map/mutex shape,
// generalized here to cancel-on-demand instead of cancel-on-idle.
package sshstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"

	"github.com/websoft9/sshcore/internal/authbroker"
	"github.com/websoft9/sshcore/internal/bus"
	"github.com/websoft9/sshcore/internal/linebuf"
	"github.com/websoft9/sshcore/internal/sshconn"
	"github.com/websoft9/sshcore/internal/storageclient"
)

// KeychainKeySSHPrivateKeyPEM mirrors sshexec's stored-credential key; both
// handlers fall back to the same keychain entry.
const KeychainKeySSHPrivateKeyPEM = "ssh_private_key_pem"

type task struct {
	cancel func()
}

// Registry tracks active streams by id and honors cancel requests. The
// zero value is not usable; build one with NewRegistry.
type Registry struct {
	mu     sync.Mutex
	tasks  map[uint64]*task
	nextID atomic.Uint64
}

// NewRegistry builds an empty registry. Stream ids start at 1.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[uint64]*task)}
}

// remove atomically deletes id if present, reporting whether it was found.
// Both the cancel path and the natural-exit path call this; whichever
// removes the entry first wins the race.
func (r *Registry) remove(id uint64) bool {
	r.mu.Lock()
	_, ok := r.tasks[id]
	if ok {
		delete(r.tasks, id)
	}
	r.mu.Unlock()
	return ok
}

// Cancel aborts the stream identified by id, if it is still running, and
// emits a synthetic exit event via send. A cancel for an absent or
// already-finished id is a no-op, making repeated cancels idempotent.
func (r *Registry) Cancel(id uint64, send func(bus.SshStreamExit) error) {
	r.mu.Lock()
	t, ok := r.tasks[id]
	if ok {
		delete(r.tasks, id)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	t.cancel()
	_ = send(bus.SshStreamExit{StreamID: id, ExitStatus: -1, Error: bus.Str("cancelled")})
}

// Start connects, launches the remote command, and returns once the
// SshStartCommandResponse has been sent — synchronously, before the
// background task begins emitting any line events, so the caller is
// guaranteed to learn the stream id before any output arrives for it. The
// returned bool reports whether the start itself succeeded, for callers
// that want to audit the outcome without re-deriving it from the response.
func (r *Registry) Start(ctx context.Context, storage *storageclient.Client, auth *authbroker.Broker, connector *sshconn.Connector, b bus.Bus, req bus.SshStartCommandRequest) bool {
	requestID := req.RequestID
	fail := func(msg string) bool {
		_ = b.SendStartCommandResponse(ctx, bus.SshStartCommandResponse{RequestID: requestID, OK: false, Error: bus.Str(msg)})
		return false
	}

	port, err := sshconn.ValidatePort(req.Port)
	if err != nil {
		return fail("Invalid port")
	}

	keyPEM := resolveKeyPEM(ctx, storage, req.PrivateKeyPEM)
	connectTimeout := sshconn.ClampMillis(req.ConnectTimeoutMS)

	requestPassword := func(ctx context.Context) (string, error) {
		return auth.RequestPassword(ctx, requestID, fmt.Sprintf("Password required for %s@%s.", req.Username, req.Host))
	}

	client, _, err := connector.Connect(ctx, req.Host, port, req.Username, keyPEM, req.PrivateKeyPassphrase, requestPassword, connectTimeout)
	if err != nil {
		return fail(err.Error())
	}

	sess, err := client.NewSession()
	if err != nil {
		client.Close()
		return fail(err.Error())
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return fail(err.Error())
	}
	stderr, err := sess.StderrPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return fail(err.Error())
	}
	if err := sess.Start(req.Command); err != nil {
		sess.Close()
		client.Close()
		return fail(err.Error())
	}

	streamID := r.nextID.Add(1)

	var once sync.Once
	cancelFn := func() {
		once.Do(func() {
			_ = sess.Close()
			_ = client.Close()
		})
	}

	r.mu.Lock()
	r.tasks[streamID] = &task{cancel: cancelFn}
	r.mu.Unlock()

	_ = b.SendStartCommandResponse(ctx, bus.SshStartCommandResponse{RequestID: requestID, OK: true, StreamID: streamID})

	go r.run(streamID, sess, client, stdout, stderr, b)
	return true
}

func (r *Registry) run(streamID uint64, sess *ssh.Session, client *ssh.Client, stdout, stderr io.Reader, b bus.Bus) {
	defer client.Close()
	defer sess.Close()

	var outBuf, errBuf linebuf.Buffer
	ctx := context.Background()

	var g errgroup.Group
	g.Go(func() error {
		drain(stdout, &outBuf, func(line string) {
			_ = b.SendStreamLine(ctx, bus.SshStreamLine{StreamID: streamID, IsStderr: false, Line: line})
		})
		return nil
	})
	g.Go(func() error {
		drain(stderr, &errBuf, func(line string) {
			_ = b.SendStreamLine(ctx, bus.SshStreamLine{StreamID: streamID, IsStderr: true, Line: line})
		})
		return nil
	})
	_ = g.Wait()

	waitErr := sess.Wait()

	if line, ok := outBuf.Flush(); ok {
		_ = b.SendStreamLine(ctx, bus.SshStreamLine{StreamID: streamID, IsStderr: false, Line: line})
	}
	if line, ok := errBuf.Flush(); ok {
		_ = b.SendStreamLine(ctx, bus.SshStreamLine{StreamID: streamID, IsStderr: true, Line: line})
	}

	if !r.remove(streamID) {
		// Cancel already removed this entry and emitted the synthetic
		// exit event; suppress our own to preserve exactly-one-exit.
		return
	}

	if waitErr == nil {
		_ = b.SendStreamExit(ctx, bus.SshStreamExit{StreamID: streamID, ExitStatus: 0})
		return
	}
	var exitErr *ssh.ExitError
	if errors.As(waitErr, &exitErr) {
		_ = b.SendStreamExit(ctx, bus.SshStreamExit{StreamID: streamID, ExitStatus: coerceExit(exitErr.ExitStatus())})
		return
	}
	_ = b.SendStreamExit(ctx, bus.SshStreamExit{StreamID: streamID, ExitStatus: -1, Error: bus.Str(waitErr.Error())})
}

func drain(r io.Reader, buf *linebuf.Buffer, emit func(string)) {
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			for _, line := range buf.Feed(chunk[:n]) {
				emit(line)
			}
		}
		if err != nil {
			return
		}
	}
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

func coerceExit(code int) int32 {
	if code < -2147483648 || code > 2147483647 {
		return -1
	}
	return int32(code)
}
