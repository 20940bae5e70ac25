package fswrite

import (
	"context"
	"testing"

	"github.com/websoft9/sshcore/internal/bus"
	"github.com/websoft9/sshcore/internal/storageclient"
)

func TestQuoteEmpty(t *testing.T) {
	if got := Quote(""); got != "''" {
		t.Fatalf("got %q, want ''", got)
	}
}

func TestQuoteSafeCharsUnquoted(t *testing.T) {
	cases := []string{"file.txt", "a/b/c", "user@host", "a-b_c:d=e", "123"}
	for _, in := range cases {
		if got := Quote(in); got != in {
			t.Errorf("Quote(%q): got %q, want unquoted %q", in, got, in)
		}
	}
}

func TestQuoteUnsafeCharsQuoted(t *testing.T) {
	cases := map[string]string{
		"hello world":  "'hello world'",
		"a'b":          `'a'\''b'`,
		"$(rm -rf /)":  "'$(rm -rf /)'",
		"semi;colon":   "'semi;colon'",
	}
	for in, want := range cases {
		if got := Quote(in); got != want {
			t.Errorf("Quote(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestRemoteDirOf(t *testing.T) {
	cases := map[string]string{
		"/etc/app/config.yml": "/etc/app",
		"/config.yml":         "",
		"config.yml":          ".",
		"a/b/c.txt":           "a/b",
	}
	for in, want := range cases {
		if got := remoteDirOf(in); got != want {
			t.Errorf("remoteDirOf(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestResolveKeyPEMOverrideWins(t *testing.T) {
	m := bus.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	storage := storageclient.New(ctx, m)

	got := resolveKeyPEM(ctx, storage, bus.Str("explicit"))
	if got != "explicit" {
		t.Fatalf("got %q, want explicit", got)
	}
}
