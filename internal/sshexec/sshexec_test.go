package sshexec

import (
	"context"
	"testing"

	"github.com/websoft9/sshcore/internal/bus"
	"github.com/websoft9/sshcore/internal/storageclient"
)

func TestResolveKeyPEMPrefersOverride(t *testing.T) {
	m := bus.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	storage := storageclient.New(ctx, m)

	got := resolveKeyPEM(ctx, storage, bus.Str("explicit-pem"))
	if got != "explicit-pem" {
		t.Fatalf("got %q, want explicit-pem", got)
	}
}

func TestResolveKeyPEMFallsBackToKeychain(t *testing.T) {
	m := bus.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	storage := storageclient.New(ctx, m)

	go func() {
		req := <-m.Out.StorageRequest
		m.In.StorageResponses <- bus.StorageResponse{RequestID: req.RequestID, OK: true, Value: bus.Str("stored-pem")}
	}()

	got := resolveKeyPEM(ctx, storage, nil)
	if got != "stored-pem" {
		t.Fatalf("got %q, want stored-pem", got)
	}
}

func TestResolveKeyPEMBlankOverrideFallsBack(t *testing.T) {
	m := bus.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	storage := storageclient.New(ctx, m)

	go func() {
		req := <-m.Out.StorageRequest
		m.In.StorageResponses <- bus.StorageResponse{RequestID: req.RequestID, OK: true, Value: bus.Str("stored-pem")}
	}()

	got := resolveKeyPEM(ctx, storage, bus.Str("   "))
	if got != "stored-pem" {
		t.Fatalf("got %q, want stored-pem", got)
	}
}

func TestResolveKeyPEMMissingKeychainValue(t *testing.T) {
	m := bus.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	storage := storageclient.New(ctx, m)

	go func() {
		req := <-m.Out.StorageRequest
		m.In.StorageResponses <- bus.StorageResponse{RequestID: req.RequestID, OK: true, Value: nil}
	}()

	got := resolveKeyPEM(ctx, storage, nil)
	if got != "" {
		t.Fatalf("got %q, want empty string", got)
	}
}

func TestCoerceExit(t *testing.T) {
	cases := []struct {
		in   int
		want int32
	}{
		{0, 0},
		{1, 1},
		{255, 255},
	}
	for _, c := range cases {
		if got := coerceExit(c.in); got != c.want {
			t.Errorf("coerceExit(%d): got %d, want %d", c.in, got, c.want)
		}
	}
}

func TestHandleInvalidPort(t *testing.T) {
	m := bus.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	storage := storageclient.New(ctx, m)

	resp := handleInvalidPortForTest(ctx, storage, m)
	if resp.OK {
		t.Fatal("expected failure for out-of-range port")
	}
	if resp.Error == nil || *resp.Error != "Invalid port" {
		t.Fatalf("got %v, want \"Invalid port\"", resp.Error)
	}
}

// handleInvalidPortForTest exercises Handle's port-validation short-circuit
// without needing a live SSH server: an out-of-range port fails before any
// network I/O is attempted.
func handleInvalidPortForTest(ctx context.Context, storage *storageclient.Client, m *bus.Memory) bus.SshExecResponse {
	req := bus.SshExecRequest{RequestID: 1, Host: "example.invalid", Port: 70000, Username: "u", Command: "true"}
	return Handle(ctx, storage, nil, nil, req)
}
