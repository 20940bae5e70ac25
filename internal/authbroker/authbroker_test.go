package authbroker

import (
	"context"
	"testing"
	"time"

	"github.com/websoft9/sshcore/internal/bus"
)

func TestRequestPasswordDelivered(t *testing.T) {
	m := bus.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := New(ctx, m, 0)

	go func() {
		req := <-m.Out.AuthRequired
		if req.Kind != bus.AuthKindSSHPassword {
			t.Errorf("kind: got %v, want ssh_password", req.Kind)
		}
		m.In.AuthProvides <- bus.AuthProvide{RequestID: req.RequestID, Value: bus.Str("hunter2")}
	}()

	pw, err := a.RequestPassword(ctx, 42, "Password required for u@h.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pw != "hunter2" {
		t.Fatalf("got %q, want %q", pw, "hunter2")
	}
}

func TestRequestPasswordCancelledByNilValue(t *testing.T) {
	m := bus.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := New(ctx, m, 0)

	go func() {
		req := <-m.Out.AuthRequired
		m.In.AuthProvides <- bus.AuthProvide{RequestID: req.RequestID, Value: nil}
	}()

	_, err := a.RequestPassword(ctx, 1, "prompt")
	if err == nil || err.Error() != "Password prompt cancelled" {
		t.Fatalf("got %v, want \"Password prompt cancelled\"", err)
	}
}

func TestRequestPasswordTimeout(t *testing.T) {
	m := bus.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := New(ctx, m, 0)
	a.timeout = 10 * time.Millisecond // avoid a 300s test

	go func() { <-m.Out.AuthRequired }() // never reply

	_, err := a.RequestPassword(ctx, 9, "prompt")
	if err == nil || err.Error() != "Password prompt timed out" {
		t.Fatalf("got %v, want \"Password prompt timed out\"", err)
	}
}

func TestRequestPasswordContextCancel(t *testing.T) {
	m := bus.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a := New(ctx, m, 0)

	callCtx, callCancel := context.WithCancel(context.Background())
	go func() {
		<-m.Out.AuthRequired
		callCancel()
	}()

	_, err := a.RequestPassword(callCtx, 3, "prompt")
	if err == nil || err.Error() != "Password prompt cancelled" {
		t.Fatalf("got %v, want \"Password prompt cancelled\"", err)
	}
}
