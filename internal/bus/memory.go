package bus

import "context"

// Memory is an in-process Bus with no wire framing: outbound sends land on
// buffered channels a test can drain, and inbound channels are fed directly
// by pushing onto the exported In fields. It implements Bus so the broker,
// dispatcher, and handler packages can be exercised without a real socket.
type Memory struct {
	In  MemoryIn
	Out MemoryOut
}

// MemoryIn holds the channels a test feeds to simulate messages arriving
// from the UI side of the bus.
type MemoryIn struct {
	Pings                    chan Ping
	AuthProvides             chan AuthProvide
	StorageResponses         chan StorageResponse
	ExecRequests             chan SshExecRequest
	StartCommandRequests     chan SshStartCommandRequest
	CancelStreams            chan SshCancelStream
	WriteFileRequests        chan SshWriteFileRequest
	GenerateKeyRequests      chan SshGenerateKeyRequest
	AuthorizedKeyRequests    chan SshAuthorizedKeyRequest
	InstallPublicKeyRequests chan SshInstallPublicKeyRequest
}

// MemoryOut holds the channels a test drains to observe messages the
// coordinator sent toward the UI side of the bus.
type MemoryOut struct {
	Pong                     chan Pong
	AuthRequired             chan AuthRequired
	StorageRequest           chan StorageRequest
	ExecResponse             chan SshExecResponse
	StartCommandResponse     chan SshStartCommandResponse
	StreamLine               chan SshStreamLine
	StreamExit               chan SshStreamExit
	WriteFileResponse        chan SshWriteFileResponse
	GenerateKeyResponse      chan SshGenerateKeyResponse
	AuthorizedKeyResponse    chan SshAuthorizedKeyResponse
	InstallPublicKeyResponse chan SshInstallPublicKeyResponse
}

// NewMemory builds a Memory bus with generously buffered channels so
// handler goroutines in tests never block on a send.
func NewMemory() *Memory {
	const n = 64
	return &Memory{
		In: MemoryIn{
			Pings:                    make(chan Ping, n),
			AuthProvides:             make(chan AuthProvide, n),
			StorageResponses:         make(chan StorageResponse, n),
			ExecRequests:             make(chan SshExecRequest, n),
			StartCommandRequests:     make(chan SshStartCommandRequest, n),
			CancelStreams:            make(chan SshCancelStream, n),
			WriteFileRequests:        make(chan SshWriteFileRequest, n),
			GenerateKeyRequests:      make(chan SshGenerateKeyRequest, n),
			AuthorizedKeyRequests:    make(chan SshAuthorizedKeyRequest, n),
			InstallPublicKeyRequests: make(chan SshInstallPublicKeyRequest, n),
		},
		Out: MemoryOut{
			Pong:                     make(chan Pong, n),
			AuthRequired:             make(chan AuthRequired, n),
			StorageRequest:           make(chan StorageRequest, n),
			ExecResponse:             make(chan SshExecResponse, n),
			StartCommandResponse:     make(chan SshStartCommandResponse, n),
			StreamLine:               make(chan SshStreamLine, n),
			StreamExit:               make(chan SshStreamExit, n),
			WriteFileResponse:        make(chan SshWriteFileResponse, n),
			GenerateKeyResponse:      make(chan SshGenerateKeyResponse, n),
			AuthorizedKeyResponse:    make(chan SshAuthorizedKeyResponse, n),
			InstallPublicKeyResponse: make(chan SshInstallPublicKeyResponse, n),
		},
	}
}

func (m *Memory) SendPong(_ context.Context, v Pong) error { m.Out.Pong <- v; return nil }
func (m *Memory) SendAuthRequired(_ context.Context, v AuthRequired) error {
	m.Out.AuthRequired <- v
	return nil
}
func (m *Memory) SendStorageRequest(_ context.Context, v StorageRequest) error {
	m.Out.StorageRequest <- v
	return nil
}
func (m *Memory) SendExecResponse(_ context.Context, v SshExecResponse) error {
	m.Out.ExecResponse <- v
	return nil
}
func (m *Memory) SendStartCommandResponse(_ context.Context, v SshStartCommandResponse) error {
	m.Out.StartCommandResponse <- v
	return nil
}
func (m *Memory) SendStreamLine(_ context.Context, v SshStreamLine) error {
	m.Out.StreamLine <- v
	return nil
}
func (m *Memory) SendStreamExit(_ context.Context, v SshStreamExit) error {
	m.Out.StreamExit <- v
	return nil
}
func (m *Memory) SendWriteFileResponse(_ context.Context, v SshWriteFileResponse) error {
	m.Out.WriteFileResponse <- v
	return nil
}
func (m *Memory) SendGenerateKeyResponse(_ context.Context, v SshGenerateKeyResponse) error {
	m.Out.GenerateKeyResponse <- v
	return nil
}
func (m *Memory) SendAuthorizedKeyResponse(_ context.Context, v SshAuthorizedKeyResponse) error {
	m.Out.AuthorizedKeyResponse <- v
	return nil
}
func (m *Memory) SendInstallPublicKeyResponse(_ context.Context, v SshInstallPublicKeyResponse) error {
	m.Out.InstallPublicKeyResponse <- v
	return nil
}

func (m *Memory) Pings() <-chan Ping                   { return m.In.Pings }
func (m *Memory) AuthProvides() <-chan AuthProvide     { return m.In.AuthProvides }
func (m *Memory) StorageResponses() <-chan StorageResponse { return m.In.StorageResponses }
func (m *Memory) ExecRequests() <-chan SshExecRequest  { return m.In.ExecRequests }
func (m *Memory) StartCommandRequests() <-chan SshStartCommandRequest {
	return m.In.StartCommandRequests
}
func (m *Memory) CancelStreams() <-chan SshCancelStream { return m.In.CancelStreams }
func (m *Memory) WriteFileRequests() <-chan SshWriteFileRequest {
	return m.In.WriteFileRequests
}
func (m *Memory) GenerateKeyRequests() <-chan SshGenerateKeyRequest {
	return m.In.GenerateKeyRequests
}
func (m *Memory) AuthorizedKeyRequests() <-chan SshAuthorizedKeyRequest {
	return m.In.AuthorizedKeyRequests
}
func (m *Memory) InstallPublicKeyRequests() <-chan SshInstallPublicKeyRequest {
	return m.In.InstallPublicKeyRequests
}

var _ Bus = (*Memory)(nil)
