// Package bus defines the message catalogue exchanged between the SSH
// session coordinator and the UI signal transport, and the Bus contract
// (bus.go) a concrete transport must implement.
package bus

// Scope selects which secure-storage backend a StorageRequest targets.
type Scope int32

const (
	ScopeSharedPreferences Scope = 0
	ScopeKeychain          Scope = 1
)

// StorageOp selects the storage operation a StorageRequest performs.
type StorageOp int32

const (
	StorageOpGetString StorageOp = 0
	StorageOpSetString StorageOp = 1
	StorageOpRemove    StorageOp = 2
)

// AuthKind identifies the credential an AuthRequired prompt is asking for.
// SSH password is the only kind this backend ever sends today.
type AuthKind int32

const AuthKindSSHPassword AuthKind = 0

type Ping struct {
	Nonce uint64 `json:"nonce"`
}

type Pong struct {
	Nonce uint64 `json:"nonce"`
}

type AuthRequired struct {
	RequestID uint64   `json:"request_id"`
	Kind      AuthKind `json:"kind"`
	Message   string   `json:"message"`
}

type AuthProvide struct {
	RequestID uint64  `json:"request_id"`
	Value     *string `json:"value,omitempty"`
}

type StorageRequest struct {
	RequestID uint64    `json:"request_id"`
	Scope     Scope     `json:"scope"`
	Op        StorageOp `json:"op"`
	Key       string    `json:"key"`
	Value     *string   `json:"value,omitempty"`
}

type StorageResponse struct {
	RequestID uint64  `json:"request_id"`
	OK        bool    `json:"ok"`
	Value     *string `json:"value,omitempty"`
	Error     *string `json:"error,omitempty"`
}

type SshExecRequest struct {
	RequestID            uint64  `json:"request_id"`
	Host                 string  `json:"host"`
	Port                 int32   `json:"port"`
	Username             string  `json:"username"`
	Command              string  `json:"command"`
	PrivateKeyPEM        *string `json:"private_key_pem,omitempty"`
	PrivateKeyPassphrase *string `json:"private_key_passphrase,omitempty"`
	ConnectTimeoutMS     int32   `json:"connect_timeout_ms"`
	CommandTimeoutMS     int32   `json:"command_timeout_ms"`
}

type SshExecResponse struct {
	RequestID  uint64  `json:"request_id"`
	OK         bool    `json:"ok"`
	Stdout     string  `json:"stdout"`
	Stderr     string  `json:"stderr"`
	ExitStatus int32   `json:"exit_status"`
	Error      *string `json:"error,omitempty"`
}

type SshStartCommandRequest struct {
	RequestID            uint64  `json:"request_id"`
	Host                 string  `json:"host"`
	Port                 int32   `json:"port"`
	Username             string  `json:"username"`
	Command              string  `json:"command"`
	PrivateKeyPEM        *string `json:"private_key_pem,omitempty"`
	PrivateKeyPassphrase *string `json:"private_key_passphrase,omitempty"`
	ConnectTimeoutMS     int32   `json:"connect_timeout_ms"`
}

type SshStartCommandResponse struct {
	RequestID uint64  `json:"request_id"`
	OK        bool    `json:"ok"`
	StreamID  uint64  `json:"stream_id"`
	Error     *string `json:"error,omitempty"`
}

type SshStreamLine struct {
	StreamID uint64 `json:"stream_id"`
	IsStderr bool   `json:"is_stderr"`
	Line     string `json:"line"`
}

type SshStreamExit struct {
	StreamID   uint64  `json:"stream_id"`
	ExitStatus int32   `json:"exit_status"`
	Error      *string `json:"error,omitempty"`
}

type SshCancelStream struct {
	StreamID uint64 `json:"stream_id"`
}

type SshWriteFileRequest struct {
	RequestID            uint64  `json:"request_id"`
	Host                 string  `json:"host"`
	Port                 int32   `json:"port"`
	Username             string  `json:"username"`
	RemotePath           string  `json:"remote_path"`
	Contents             string  `json:"contents"`
	PrivateKeyPEM        *string `json:"private_key_pem,omitempty"`
	PrivateKeyPassphrase *string `json:"private_key_passphrase,omitempty"`
	ConnectTimeoutMS     int32   `json:"connect_timeout_ms"`
	CommandTimeoutMS     int32   `json:"command_timeout_ms"`
}

type SshWriteFileResponse struct {
	RequestID uint64  `json:"request_id"`
	OK        bool    `json:"ok"`
	Error     *string `json:"error,omitempty"`
}

type SshGenerateKeyRequest struct {
	RequestID uint64 `json:"request_id"`
	Comment   string `json:"comment"`
}

type SshGenerateKeyResponse struct {
	RequestID     uint64  `json:"request_id"`
	OK            bool    `json:"ok"`
	PrivateKeyPEM string  `json:"private_key_pem"`
	Error         *string `json:"error,omitempty"`
}

type SshAuthorizedKeyRequest struct {
	RequestID            uint64  `json:"request_id"`
	PrivateKeyPEM        string  `json:"private_key_pem"`
	PrivateKeyPassphrase *string `json:"private_key_passphrase,omitempty"`
	Comment              string  `json:"comment"`
}

type SshAuthorizedKeyResponse struct {
	RequestID         uint64  `json:"request_id"`
	OK                bool    `json:"ok"`
	AuthorizedKeyLine string  `json:"authorized_key_line"`
	Error             *string `json:"error,omitempty"`
}

type SshInstallPublicKeyRequest struct {
	RequestID            uint64  `json:"request_id"`
	UserAtHost           string  `json:"user_at_host"`
	Port                 int32   `json:"port"`
	Password             string  `json:"password"`
	PrivateKeyPEM        string  `json:"private_key_pem"`
	PrivateKeyPassphrase *string `json:"private_key_passphrase,omitempty"`
	Comment              string  `json:"comment"`
}

type SshInstallPublicKeyResponse struct {
	RequestID uint64  `json:"request_id"`
	OK        bool    `json:"ok"`
	Error     *string `json:"error,omitempty"`
}

// Str returns a pointer to s, for populating the optional string fields
// above without a throwaway local variable at every call site.
func Str(s string) *string { return &s }

// StrOr dereferences p, or returns def if p is nil.
func StrOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

// NonEmpty dereferences p, returning "" for nil. The value is not trimmed;
// callers that fall back to a stored credential when the caller-supplied
// key material is whitespace-only trim the result themselves.
func NonEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
