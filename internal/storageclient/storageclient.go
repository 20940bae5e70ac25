// Package storageclient is a thin RPC wrapper over the signal bus exposing
// get/set/remove against the UI's secure-storage provider across two
// scopes (shared preferences and keychain).
package storageclient

import (
	"context"

	"github.com/websoft9/sshcore/internal/bus"
	"github.com/websoft9/sshcore/internal/correlation"
)

// Client issues storage requests and waits for their replies. Requests are
// unbounded: there is no client-side timeout, matching the storage broker's
// "unbounded" deadline in the concurrency model.
type Client struct {
	b      bus.Bus
	broker *correlation.Broker[bus.StorageResponse]
}

// New builds a Client and starts its background receive loop, which runs
// until ctx is done.
func New(ctx context.Context, b bus.Bus) *Client {
	c := &Client{b: b, broker: correlation.New[bus.StorageResponse]()}
	go c.broker.Listen(ctx, b.StorageResponses(), func(r bus.StorageResponse) uint64 { return r.RequestID })
	return c
}

func (c *Client) call(ctx context.Context, scope bus.Scope, op bus.StorageOp, key string, value *string) (bus.StorageResponse, error) {
	id := c.broker.NextID()
	return c.broker.Call(ctx, id, func() error {
		return c.b.SendStorageRequest(ctx, bus.StorageRequest{
			RequestID: id,
			Scope:     scope,
			Op:        op,
			Key:       key,
			Value:     value,
		})
	}, 0)
}

// GetString reads key from scope, returning a nil pointer if the key is
// absent, and a non-nil error if the reply reports failure, ctx is done, or
// the reply channel closes underneath the call.
func (c *Client) GetString(ctx context.Context, scope bus.Scope, key string) (*string, error) {
	resp, err := c.call(ctx, scope, bus.StorageOpGetString, key, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, failureErr(resp.Error)
	}
	return resp.Value, nil
}

// SetString writes value under key in scope.
func (c *Client) SetString(ctx context.Context, scope bus.Scope, key, value string) error {
	resp, err := c.call(ctx, scope, bus.StorageOpSetString, key, bus.Str(value))
	if err != nil {
		return err
	}
	if !resp.OK {
		return failureErr(resp.Error)
	}
	return nil
}

// Remove deletes key from scope.
func (c *Client) Remove(ctx context.Context, scope bus.Scope, key string) error {
	resp, err := c.call(ctx, scope, bus.StorageOpRemove, key, nil)
	if err != nil {
		return err
	}
	if !resp.OK {
		return failureErr(resp.Error)
	}
	return nil
}

// GetKeychainString is a convenience wrapper used by the SSH handlers to
// resolve a stored private key PEM.
func (c *Client) GetKeychainString(ctx context.Context, key string) (*string, error) {
	return c.GetString(ctx, bus.ScopeKeychain, key)
}

func failureErr(msg *string) error {
	return storageError(bus.StrOr(msg, "storage request failed"))
}

type storageError string

func (e storageError) Error() string { return string(e) }
