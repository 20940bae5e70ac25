// Package authbroker prompts the UI for a credential and waits for the
// reply, with a bounded deadline distinguishing "timed out" from
// "cancelled" so the caller can surface a precise error.
package authbroker

import (
	"context"
	"errors"
	"time"

	"github.com/websoft9/sshcore/internal/bus"
	"github.com/websoft9/sshcore/internal/correlation"
)

// PasswordPromptTimeout bounds how long a password prompt waits for the UI
// to respond before giving up.
const PasswordPromptTimeout = 300 * time.Second

var (
	errTimedOut  = errors.New("Password prompt timed out")
	errCancelled = errors.New("Password prompt cancelled")
)

// Broker issues AuthRequired prompts and waits for the matching
// AuthProvide reply.
type Broker struct {
	b       bus.Bus
	broker  *correlation.Broker[bus.AuthProvide]
	timeout time.Duration
}

// New builds a Broker and starts its background receive loop, which runs
// until ctx is done. A zero or negative timeout falls back to
// PasswordPromptTimeout.
func New(ctx context.Context, b bus.Bus, timeout time.Duration) *Broker {
	if timeout <= 0 {
		timeout = PasswordPromptTimeout
	}
	a := &Broker{b: b, broker: correlation.New[bus.AuthProvide](), timeout: timeout}
	go a.broker.Listen(ctx, b.AuthProvides(), func(r bus.AuthProvide) uint64 { return r.RequestID })
	return a
}

// RequestPassword sends an AuthRequired prompt under requestID (the same id
// as the RPC that needs the credential, so the UI can correlate them) and
// blocks for the reply for up to the timeout given to New
// (PasswordPromptTimeout by default).
func (a *Broker) RequestPassword(ctx context.Context, requestID uint64, message string) (string, error) {
	reply, err := a.broker.Call(ctx, requestID, func() error {
		return a.b.SendAuthRequired(ctx, bus.AuthRequired{
			RequestID: requestID,
			Kind:      bus.AuthKindSSHPassword,
			Message:   message,
		})
	}, a.timeout)
	if err != nil {
		if errors.Is(err, correlation.ErrTimeout) {
			return "", errTimedOut
		}
		return "", errCancelled
	}
	if reply.Value == nil {
		return "", errCancelled
	}
	return *reply.Value, nil
}
