package bus

import "context"

// Bus is the signal transport contract: one Sender-ish method per outbound
// message type the coordinator emits, and one channel getter per inbound
// type it consumes. Core logic (correlation, dispatch, SSH handling) only
// ever depends on this interface, never on a concrete transport.
//
// Inbound channels are closed by the transport when the underlying
// connection goes away; consumers treat a closed channel as "this request
// kind will never produce another message" and stop selecting on it.
type Bus interface {
	SendPong(ctx context.Context, m Pong) error
	SendAuthRequired(ctx context.Context, m AuthRequired) error
	SendStorageRequest(ctx context.Context, m StorageRequest) error
	SendExecResponse(ctx context.Context, m SshExecResponse) error
	SendStartCommandResponse(ctx context.Context, m SshStartCommandResponse) error
	SendStreamLine(ctx context.Context, m SshStreamLine) error
	SendStreamExit(ctx context.Context, m SshStreamExit) error
	SendWriteFileResponse(ctx context.Context, m SshWriteFileResponse) error
	SendGenerateKeyResponse(ctx context.Context, m SshGenerateKeyResponse) error
	SendAuthorizedKeyResponse(ctx context.Context, m SshAuthorizedKeyResponse) error
	SendInstallPublicKeyResponse(ctx context.Context, m SshInstallPublicKeyResponse) error

	Pings() <-chan Ping
	AuthProvides() <-chan AuthProvide
	StorageResponses() <-chan StorageResponse
	ExecRequests() <-chan SshExecRequest
	StartCommandRequests() <-chan SshStartCommandRequest
	CancelStreams() <-chan SshCancelStream
	WriteFileRequests() <-chan SshWriteFileRequest
	GenerateKeyRequests() <-chan SshGenerateKeyRequest
	AuthorizedKeyRequests() <-chan SshAuthorizedKeyRequest
	InstallPublicKeyRequests() <-chan SshInstallPublicKeyRequest
}
