package sshconn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/websoft9/sshcore/internal/sshkey"
)

func TestValidatePort(t *testing.T) {
	cases := []struct {
		in      int32
		wantErr bool
	}{
		{22, false},
		{0, false},
		{65535, false},
		{-1, true},
		{65536, true},
		{100000, true},
	}
	for _, c := range cases {
		_, err := ValidatePort(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("ValidatePort(%d): err=%v, wantErr=%v", c.in, err, c.wantErr)
		}
	}
}

func TestClampMillis(t *testing.T) {
	if got := ClampMillis(0); got != time.Millisecond {
		t.Errorf("ClampMillis(0): got %v, want 1ms", got)
	}
	if got := ClampMillis(-5); got != time.Millisecond {
		t.Errorf("ClampMillis(-5): got %v, want 1ms", got)
	}
	if got := ClampMillis(500); got != 500*time.Millisecond {
		t.Errorf("ClampMillis(500): got %v, want 500ms", got)
	}
}

func TestKeyAuthMethodInvalidPEM(t *testing.T) {
	_, err := keyAuthMethod("not a key", nil)
	if !errors.Is(err, ErrKeyInvalid) {
		t.Fatalf("got %v, want ErrKeyInvalid", err)
	}
}

func TestDialWithKeyConnectTimeout(t *testing.T) {
	c := &Connector{}
	// 203.0.113.0/24 (TEST-NET-3) is non-routable; the dial goroutine
	// should still be in flight when our short timer fires.
	_, err := c.dialWithKey(context.Background(), "203.0.113.1:22", "user",
		validTestKeyPEM(t), nil, 20*time.Millisecond)
	if !errors.Is(err, ErrConnectTimeout) && !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want ErrConnectTimeout", err)
	}
}

func validTestKeyPEM(t *testing.T) string {
	t.Helper()
	// A syntactically valid PEM is required to get past keyAuthMethod and
	// exercise the dial-timeout path instead of the parse-error path.
	pemStr, err := sshkey.Generate("test")
	if err != nil {
		t.Fatalf("sshkey.Generate: %v", err)
	}
	return pemStr
}
