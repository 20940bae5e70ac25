package storageclient

import (
	"context"
	"testing"
	"time"

	"github.com/websoft9/sshcore/internal/bus"
)

func TestGetStringRoundTrip(t *testing.T) {
	m := bus.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := New(ctx, m)

	go func() {
		req := <-m.Out.StorageRequest
		if req.Op != bus.StorageOpGetString {
			t.Errorf("op: got %v, want get_string", req.Op)
		}
		m.In.StorageResponses <- bus.StorageResponse{RequestID: req.RequestID, OK: true, Value: bus.Str("v")}
	}()

	v, err := c.GetString(ctx, bus.ScopeKeychain, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v == nil || *v != "v" {
		t.Fatalf("got %v, want \"v\"", v)
	}
}

func TestGetStringAbsent(t *testing.T) {
	m := bus.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := New(ctx, m)

	go func() {
		req := <-m.Out.StorageRequest
		m.In.StorageResponses <- bus.StorageResponse{RequestID: req.RequestID, OK: true, Value: nil}
	}()

	v, err := c.GetString(ctx, bus.ScopeKeychain, "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != nil {
		t.Fatalf("got %v, want nil", v)
	}
}

func TestSetStringFailure(t *testing.T) {
	m := bus.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := New(ctx, m)

	go func() {
		req := <-m.Out.StorageRequest
		m.In.StorageResponses <- bus.StorageResponse{RequestID: req.RequestID, OK: false, Error: bus.Str("disk full")}
	}()

	err := c.SetString(ctx, bus.ScopeSharedPreferences, "k", "v")
	if err == nil || err.Error() != "disk full" {
		t.Fatalf("got %v, want \"disk full\"", err)
	}
}

func TestRemoveNoTimeout(t *testing.T) {
	// Storage calls are unbounded; a slow reply still completes instead of
	// timing out, unlike the auth broker's 300s bound.
	m := bus.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := New(ctx, m)

	go func() {
		req := <-m.Out.StorageRequest
		time.Sleep(20 * time.Millisecond)
		m.In.StorageResponses <- bus.StorageResponse{RequestID: req.RequestID, OK: true}
	}()

	if err := c.Remove(ctx, bus.ScopeKeychain, "k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
