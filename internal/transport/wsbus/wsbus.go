// Package wsbus is the reference bus.Bus transport: a single WebSocket
// connection carrying JSON envelopes, one envelope per WebSocket text
// message. It mirrors the teacher's terminal package in structure (a
// connection wrapped by read/write goroutines) but frames discrete typed
// messages instead of a raw PTY byte stream.
package wsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/websoft9/sshcore/internal/bus"
)

// envelope is the wire shape every frame takes: a type tag the receiver
// switches on, and the message payload itself.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

const (
	typePing                 = "ping"
	typePong                 = "pong"
	typeAuthRequired         = "auth_required"
	typeAuthProvide          = "auth_provide"
	typeStorageRequest       = "storage_request"
	typeStorageResponse      = "storage_response"
	typeExecRequest          = "ssh_exec_request"
	typeExecResponse         = "ssh_exec_response"
	typeStartCommandRequest  = "ssh_start_command_request"
	typeStartCommandResponse = "ssh_start_command_response"
	typeStreamLine           = "ssh_stream_line"
	typeStreamExit           = "ssh_stream_exit"
	typeCancelStream         = "ssh_cancel_stream"
	typeWriteFileRequest     = "ssh_write_file_request"
	typeWriteFileResponse    = "ssh_write_file_response"
	typeGenerateKeyRequest   = "ssh_generate_key_request"
	typeGenerateKeyResponse  = "ssh_generate_key_response"
	typeAuthorizedKeyRequest = "ssh_authorized_key_request"
	typeAuthorizedKeyResp    = "ssh_authorized_key_response"
	typeInstallKeyRequest    = "ssh_install_public_key_request"
	typeInstallKeyResponse   = "ssh_install_public_key_response"
)

// Bus adapts a single *websocket.Conn to bus.Bus. It owns one read loop
// that fans inbound envelopes out onto typed channels, and serializes
// outbound writes behind a mutex since gorilla/websocket forbids
// concurrent writers on one connection.
type Bus struct {
	conn *websocket.Conn
	id   string
	log  zerolog.Logger

	writeMu sync.Mutex

	pings                 chan bus.Ping
	authProvides          chan bus.AuthProvide
	storageResponses      chan bus.StorageResponse
	execRequests          chan bus.SshExecRequest
	startCommandRequests  chan bus.SshStartCommandRequest
	cancelStreams         chan bus.SshCancelStream
	writeFileRequests     chan bus.SshWriteFileRequest
	generateKeyRequests   chan bus.SshGenerateKeyRequest
	authorizedKeyRequests chan bus.SshAuthorizedKeyRequest
	installKeyRequests    chan bus.SshInstallPublicKeyRequest
}

// New wraps conn, assigning it a random id used only to tag the read
// loop's log lines for this connection.
func New(conn *websocket.Conn, log zerolog.Logger) *Bus {
	b := &Bus{
		conn: conn,
		id:   uuid.NewString(),
		log:  log,

		pings:                 make(chan bus.Ping, 16),
		authProvides:          make(chan bus.AuthProvide, 16),
		storageResponses:      make(chan bus.StorageResponse, 16),
		execRequests:          make(chan bus.SshExecRequest, 16),
		startCommandRequests:  make(chan bus.SshStartCommandRequest, 16),
		cancelStreams:         make(chan bus.SshCancelStream, 16),
		writeFileRequests:     make(chan bus.SshWriteFileRequest, 16),
		generateKeyRequests:   make(chan bus.SshGenerateKeyRequest, 16),
		authorizedKeyRequests: make(chan bus.SshAuthorizedKeyRequest, 16),
		installKeyRequests:    make(chan bus.SshInstallPublicKeyRequest, 16),
	}
	return b
}

// Run reads envelopes off the connection until it errs or closes, then
// closes every inbound channel so the dispatcher's select loop winds down.
// It blocks; callers run it in its own goroutine.
func (b *Bus) Run(ctx context.Context) {
	defer b.closeAll()
	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			b.log.Debug().Str("conn_id", b.id).Err(err).Msg("websocket read loop exiting")
			return
		}
		if ctx.Err() != nil {
			return
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			b.log.Warn().Str("conn_id", b.id).Err(err).Msg("malformed envelope")
			continue
		}
		if err := b.dispatch(env); err != nil {
			b.log.Warn().Str("conn_id", b.id).Str("type", env.Type).Err(err).Msg("undecodable payload")
		}
	}
}

func (b *Bus) dispatch(env envelope) error {
	switch env.Type {
	case typePing:
		var m bus.Ping
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return err
		}
		b.pings <- m
	case typeAuthProvide:
		var m bus.AuthProvide
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return err
		}
		b.authProvides <- m
	case typeStorageResponse:
		var m bus.StorageResponse
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return err
		}
		b.storageResponses <- m
	case typeExecRequest:
		var m bus.SshExecRequest
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return err
		}
		b.execRequests <- m
	case typeStartCommandRequest:
		var m bus.SshStartCommandRequest
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return err
		}
		b.startCommandRequests <- m
	case typeCancelStream:
		var m bus.SshCancelStream
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return err
		}
		b.cancelStreams <- m
	case typeWriteFileRequest:
		var m bus.SshWriteFileRequest
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return err
		}
		b.writeFileRequests <- m
	case typeGenerateKeyRequest:
		var m bus.SshGenerateKeyRequest
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return err
		}
		b.generateKeyRequests <- m
	case typeAuthorizedKeyRequest:
		var m bus.SshAuthorizedKeyRequest
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return err
		}
		b.authorizedKeyRequests <- m
	case typeInstallKeyRequest:
		var m bus.SshInstallPublicKeyRequest
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return err
		}
		b.installKeyRequests <- m
	default:
		return fmt.Errorf("unknown envelope type %q", env.Type)
	}
	return nil
}

func (b *Bus) closeAll() {
	close(b.pings)
	close(b.authProvides)
	close(b.storageResponses)
	close(b.execRequests)
	close(b.startCommandRequests)
	close(b.cancelStreams)
	close(b.writeFileRequests)
	close(b.generateKeyRequests)
	close(b.authorizedKeyRequests)
	close(b.installKeyRequests)
}

func (b *Bus) send(typ string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	full, err := json.Marshal(envelope{Type: typ, Payload: raw})
	if err != nil {
		return err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.conn.WriteMessage(websocket.TextMessage, full)
}

func (b *Bus) SendPong(_ context.Context, m bus.Pong) error { return b.send(typePong, m) }
func (b *Bus) SendAuthRequired(_ context.Context, m bus.AuthRequired) error {
	return b.send(typeAuthRequired, m)
}
func (b *Bus) SendStorageRequest(_ context.Context, m bus.StorageRequest) error {
	return b.send(typeStorageRequest, m)
}
func (b *Bus) SendExecResponse(_ context.Context, m bus.SshExecResponse) error {
	return b.send(typeExecResponse, m)
}
func (b *Bus) SendStartCommandResponse(_ context.Context, m bus.SshStartCommandResponse) error {
	return b.send(typeStartCommandResponse, m)
}
func (b *Bus) SendStreamLine(_ context.Context, m bus.SshStreamLine) error {
	return b.send(typeStreamLine, m)
}
func (b *Bus) SendStreamExit(_ context.Context, m bus.SshStreamExit) error {
	return b.send(typeStreamExit, m)
}
func (b *Bus) SendWriteFileResponse(_ context.Context, m bus.SshWriteFileResponse) error {
	return b.send(typeWriteFileResponse, m)
}
func (b *Bus) SendGenerateKeyResponse(_ context.Context, m bus.SshGenerateKeyResponse) error {
	return b.send(typeGenerateKeyResponse, m)
}
func (b *Bus) SendAuthorizedKeyResponse(_ context.Context, m bus.SshAuthorizedKeyResponse) error {
	return b.send(typeAuthorizedKeyResp, m)
}
func (b *Bus) SendInstallPublicKeyResponse(_ context.Context, m bus.SshInstallPublicKeyResponse) error {
	return b.send(typeInstallKeyResponse, m)
}

func (b *Bus) Pings() <-chan bus.Ping                                     { return b.pings }
func (b *Bus) AuthProvides() <-chan bus.AuthProvide                       { return b.authProvides }
func (b *Bus) StorageResponses() <-chan bus.StorageResponse               { return b.storageResponses }
func (b *Bus) ExecRequests() <-chan bus.SshExecRequest                    { return b.execRequests }
func (b *Bus) StartCommandRequests() <-chan bus.SshStartCommandRequest    { return b.startCommandRequests }
func (b *Bus) CancelStreams() <-chan bus.SshCancelStream                  { return b.cancelStreams }
func (b *Bus) WriteFileRequests() <-chan bus.SshWriteFileRequest          { return b.writeFileRequests }
func (b *Bus) GenerateKeyRequests() <-chan bus.SshGenerateKeyRequest      { return b.generateKeyRequests }
func (b *Bus) AuthorizedKeyRequests() <-chan bus.SshAuthorizedKeyRequest  { return b.authorizedKeyRequests }
func (b *Bus) InstallPublicKeyRequests() <-chan bus.SshInstallPublicKeyRequest {
	return b.installKeyRequests
}

var _ bus.Bus = (*Bus)(nil)
