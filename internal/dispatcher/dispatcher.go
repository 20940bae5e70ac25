// Package dispatcher owns the dispatch loop: one goroutine selects over
// the six request-kind receivers, spawns an independent handler goroutine
// per message, and runs until every receiver has closed. Pings, auth
// replies, and storage replies are each handled by their own owning
// component and never touch this loop directly.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/websoft9/sshcore/internal/audit"
	"github.com/websoft9/sshcore/internal/authbroker"
	"github.com/websoft9/sshcore/internal/bus"
	"github.com/websoft9/sshcore/internal/fswrite"
	"github.com/websoft9/sshcore/internal/keyinstall"
	"github.com/websoft9/sshcore/internal/sshconn"
	"github.com/websoft9/sshcore/internal/sshexec"
	"github.com/websoft9/sshcore/internal/sshkey"
	"github.com/websoft9/sshcore/internal/sshstream"
	"github.com/websoft9/sshcore/internal/storageclient"
)

// Dispatcher wires the correlation clients, the connector, and the stream
// registry to the bus and runs the request/reply loop.
type Dispatcher struct {
	bus       bus.Bus
	storage   *storageclient.Client
	auth      *authbroker.Broker
	connector *sshconn.Connector
	streams   *sshstream.Registry
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// New builds a Dispatcher. connRatePerSec/connBurst limit the rate at which
// exec/start/write/install requests combined are admitted to their SSH
// connect attempt, the same "admission control at the edge of a
// goroutine-per-connection server" concern the teacher's tunnel accept loop
// guards with golang.org/x/time/rate.
func New(ctx context.Context, b bus.Bus, log zerolog.Logger, connRatePerSec float64, connBurst int) *Dispatcher {
	return NewWithAuthTimeout(ctx, b, log, connRatePerSec, connBurst, 0)
}

// NewWithAuthTimeout is New with an explicit password-prompt timeout
// override (0 falls back to authbroker.PasswordPromptTimeout).
func NewWithAuthTimeout(ctx context.Context, b bus.Bus, log zerolog.Logger, connRatePerSec float64, connBurst int, authTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		bus:       b,
		storage:   storageclient.New(ctx, b),
		auth:      authbroker.New(ctx, b, authTimeout),
		connector: &sshconn.Connector{},
		streams:   sshstream.NewRegistry(),
		limiter:   rate.NewLimiter(rate.Limit(connRatePerSec), connBurst),
		log:       log,
	}
}

// Run blocks, dispatching requests until ctx is done or all six request
// channels have been closed.
func (d *Dispatcher) Run(ctx context.Context) {
	go d.runPings(ctx)
	go d.runCancels(ctx)

	execCh := d.bus.ExecRequests()
	startCh := d.bus.StartCommandRequests()
	writeCh := d.bus.WriteFileRequests()
	genCh := d.bus.GenerateKeyRequests()
	authKeyCh := d.bus.AuthorizedKeyRequests()
	installCh := d.bus.InstallPublicKeyRequests()

	for execCh != nil || startCh != nil || writeCh != nil || genCh != nil || authKeyCh != nil || installCh != nil {
		select {
		case req, ok := <-execCh:
			if !ok {
				execCh = nil
				continue
			}
			go d.handleExec(ctx, req)
		case req, ok := <-startCh:
			if !ok {
				startCh = nil
				continue
			}
			go d.handleStart(ctx, req)
		case req, ok := <-writeCh:
			if !ok {
				writeCh = nil
				continue
			}
			go d.handleWrite(ctx, req)
		case req, ok := <-genCh:
			if !ok {
				genCh = nil
				continue
			}
			go d.handleGenerateKey(ctx, req)
		case req, ok := <-authKeyCh:
			if !ok {
				authKeyCh = nil
				continue
			}
			go d.handleAuthorizedKey(ctx, req)
		case req, ok := <-installCh:
			if !ok {
				installCh = nil
				continue
			}
			go d.handleInstall(ctx, req)
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) runPings(ctx context.Context) {
	for {
		select {
		case p, ok := <-d.bus.Pings():
			if !ok {
				return
			}
			if err := d.bus.SendPong(ctx, bus.Pong{Nonce: p.Nonce}); err != nil {
				d.log.Warn().Err(err).Msg("pong send failed")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) runCancels(ctx context.Context) {
	for {
		select {
		case c, ok := <-d.bus.CancelStreams():
			if !ok {
				return
			}
			d.log.Debug().Uint64("stream_id", c.StreamID).Msg("cancel requested")
			d.streams.Cancel(c.StreamID, func(e bus.SshStreamExit) error {
				return d.bus.SendStreamExit(ctx, e)
			})
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) handleExec(ctx context.Context, req bus.SshExecRequest) {
	if err := d.limiter.Wait(ctx); err != nil {
		return
	}
	d.log.Debug().Uint64("request_id", req.RequestID).Str("host", req.Host).Msg("exec requested")
	resp := sshexec.Handle(ctx, d.storage, d.auth, d.connector, req)
	d.auditResult(req.Username, req.Host, req.Port, "ssh.exec", resp.OK, resp.Error)
	if !resp.OK {
		d.log.Warn().Uint64("request_id", req.RequestID).Str("error", bus.StrOr(resp.Error, "")).Msg("exec failed")
	}
	if err := d.bus.SendExecResponse(ctx, resp); err != nil {
		d.log.Warn().Err(err).Msg("exec response send failed")
	}
}

// auditResult records one audit event for an operation targeting
// username@host:port.
func (d *Dispatcher) auditResult(username, host string, port int32, action string, ok bool, errMsg *string) {
	status := audit.StatusSuccess
	detail := map[string]any{}
	if !ok {
		status = audit.StatusFailed
		detail["error"] = bus.StrOr(errMsg, "")
	}
	audit.Write(d.log, audit.Entry{
		Action:       action,
		ResourceType: "host",
		ResourceID:   fmt.Sprintf("%s@%s:%d", username, host, port),
		Status:       status,
		Detail:       detail,
	})
}

func (d *Dispatcher) handleStart(ctx context.Context, req bus.SshStartCommandRequest) {
	if err := d.limiter.Wait(ctx); err != nil {
		return
	}
	d.log.Debug().Uint64("request_id", req.RequestID).Str("host", req.Host).Msg("stream start requested")
	ok := d.streams.Start(ctx, d.storage, d.auth, d.connector, d.bus, req)
	d.auditResult(req.Username, req.Host, req.Port, "ssh.stream.start", ok, nil)
}

func (d *Dispatcher) handleWrite(ctx context.Context, req bus.SshWriteFileRequest) {
	if err := d.limiter.Wait(ctx); err != nil {
		return
	}
	d.log.Debug().Uint64("request_id", req.RequestID).Str("path", req.RemotePath).Msg("write file requested")
	resp := fswrite.Handle(ctx, d.storage, d.auth, d.connector, req)
	d.auditResult(req.Username, req.Host, req.Port, "ssh.write_file", resp.OK, resp.Error)
	if err := d.bus.SendWriteFileResponse(ctx, resp); err != nil {
		d.log.Warn().Err(err).Msg("write response send failed")
	}
}

func (d *Dispatcher) handleGenerateKey(ctx context.Context, req bus.SshGenerateKeyRequest) {
	var resp bus.SshGenerateKeyResponse
	pemStr, err := sshkey.Generate(req.Comment)
	if err != nil {
		resp = bus.SshGenerateKeyResponse{RequestID: req.RequestID, OK: false, Error: bus.Str(err.Error())}
	} else {
		resp = bus.SshGenerateKeyResponse{RequestID: req.RequestID, OK: true, PrivateKeyPEM: pemStr}
	}
	if err := d.bus.SendGenerateKeyResponse(ctx, resp); err != nil {
		d.log.Warn().Err(err).Msg("generate-key response send failed")
	}
}

func (d *Dispatcher) handleAuthorizedKey(ctx context.Context, req bus.SshAuthorizedKeyRequest) {
	var resp bus.SshAuthorizedKeyResponse
	line, err := sshkey.DeriveAuthorizedKey(req.PrivateKeyPEM, req.PrivateKeyPassphrase, req.Comment)
	if err != nil {
		resp = bus.SshAuthorizedKeyResponse{RequestID: req.RequestID, OK: false, Error: bus.Str(err.Error())}
	} else {
		resp = bus.SshAuthorizedKeyResponse{RequestID: req.RequestID, OK: true, AuthorizedKeyLine: line}
	}
	if err := d.bus.SendAuthorizedKeyResponse(ctx, resp); err != nil {
		d.log.Warn().Err(err).Msg("authorized-key response send failed")
	}
}

func (d *Dispatcher) handleInstall(ctx context.Context, req bus.SshInstallPublicKeyRequest) {
	if err := d.limiter.Wait(ctx); err != nil {
		return
	}
	d.log.Debug().Uint64("request_id", req.RequestID).Str("target", req.UserAtHost).Msg("install public key requested")
	resp := keyinstall.Handle(ctx, d.connector, req)
	status := audit.StatusSuccess
	detail := map[string]any{}
	if !resp.OK {
		status = audit.StatusFailed
		detail["error"] = bus.StrOr(resp.Error, "")
	}
	audit.Write(d.log, audit.Entry{
		Action:       "ssh.install_key",
		ResourceType: "host",
		ResourceID:   req.UserAtHost,
		Status:       status,
		Detail:       detail,
	})
	if err := d.bus.SendInstallPublicKeyResponse(ctx, resp); err != nil {
		d.log.Warn().Err(err).Msg("install response send failed")
	}
}
