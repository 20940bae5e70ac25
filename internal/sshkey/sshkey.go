// Package sshkey is the small OpenSSH key toolkit: generate an Ed25519
// keypair, derive an authorized_keys line from a PEM, and nothing more —
// host-key trust and SFTP are explicitly out of scope.
package sshkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Generate creates a new Ed25519 keypair and returns the private key
// encoded as an OpenSSH PEM block with comment embedded.
func Generate(comment string) (string, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("sshkey: generate: %w", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, comment)
	if err != nil {
		return "", fmt.Errorf("sshkey: marshal: %w", err)
	}
	return string(pem.EncodeToMemory(block)), nil
}

// DeriveAuthorizedKey decodes pemStr (optionally passphrase-protected) and
// renders its public half as a single authorized_keys line, with comment
// appended if non-empty.
func DeriveAuthorizedKey(pemStr string, passphrase *string, comment string) (string, error) {
	signer, err := parsePrivateKey(pemStr, passphrase)
	if err != nil {
		return "", err
	}

	line := strings.TrimSuffix(string(ssh.MarshalAuthorizedKey(signer.PublicKey())), "\n")
	if comment != "" {
		line += " " + comment
	}
	return line, nil
}

func parsePrivateKey(pemStr string, passphrase *string) (ssh.Signer, error) {
	if passphrase != nil && *passphrase != "" {
		signer, err := ssh.ParsePrivateKeyWithPassphrase([]byte(pemStr), []byte(*passphrase))
		if err != nil {
			return nil, fmt.Errorf("sshkey: parse with passphrase: %w", err)
		}
		return signer, nil
	}
	signer, err := ssh.ParsePrivateKey([]byte(pemStr))
	if err != nil {
		return nil, fmt.Errorf("sshkey: parse: %w", err)
	}
	return signer, nil
}
