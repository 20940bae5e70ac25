package sshkey

import (
	"strings"
	"testing"
)

func TestGenerateDeriveRoundTrip(t *testing.T) {
	pemStr, err := Generate("test-comment")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(pemStr, "BEGIN OPENSSH PRIVATE KEY") {
		t.Fatalf("generated key does not look like an OpenSSH PEM block:\n%s", pemStr)
	}

	line, err := DeriveAuthorizedKey(pemStr, nil, "user@host")
	if err != nil {
		t.Fatalf("DeriveAuthorizedKey: %v", err)
	}
	if !strings.HasPrefix(line, "ssh-ed25519 ") {
		t.Fatalf("authorized_keys line: got %q, want ssh-ed25519 prefix", line)
	}
	if !strings.HasSuffix(line, "user@host") {
		t.Fatalf("authorized_keys line: got %q, want user@host suffix", line)
	}
}

func TestDeriveAuthorizedKeyNoComment(t *testing.T) {
	pemStr, err := Generate("")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	line, err := DeriveAuthorizedKey(pemStr, nil, "")
	if err != nil {
		t.Fatalf("DeriveAuthorizedKey: %v", err)
	}
	if strings.Contains(line, "\n") {
		t.Fatalf("authorized_keys line must be single-line, got %q", line)
	}
}

func TestDeriveAuthorizedKeyInvalidPEM(t *testing.T) {
	_, err := DeriveAuthorizedKey("not a pem", nil, "")
	if err == nil {
		t.Fatal("expected error for malformed PEM")
	}
}

func TestDeriveAuthorizedKeyWrongPassphrase(t *testing.T) {
	pemStr, err := Generate("")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	wrong := "not-the-right-passphrase"
	_, err = DeriveAuthorizedKey(pemStr, &wrong, "")
	if err == nil {
		t.Fatal("expected error: key has no passphrase but one was supplied")
	}
}
