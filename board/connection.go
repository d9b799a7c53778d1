package board

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

type ConnectionMode string

const (
	ModeLive    ConnectionMode = "live"
	ModeArchive ConnectionMode = "archive"
)

type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusReconnecting ConnectionStatus = "reconnecting"
	StatusError        ConnectionStatus = "error"
)

// registry paths for connection state
const (
	PathConnectionStatus = "connectionStatus"
	PathMode             = "mode"
)

type ConnectionSettings struct {
	WsHandshakeTimeout time.Duration
	// deadline for the seed snapshot after the resync request
	SeedTimeout  time.Duration
	PingTimeout  time.Duration
	WriteTimeout time.Duration
	ReadTimeout  time.Duration

	ReconnectMinTimeout  time.Duration
	ReconnectMaxTimeout  time.Duration
	MaxReconnectAttempts int

	ArchiveFetchTimeout time.Duration
}

func DefaultConnectionSettings() *ConnectionSettings {
	return &ConnectionSettings{
		WsHandshakeTimeout:   5 * time.Second,
		SeedTimeout:          15 * time.Second,
		PingTimeout:          5 * time.Second,
		WriteTimeout:         5 * time.Second,
		ReadTimeout:          30 * time.Second,
		ReconnectMinTimeout:  1 * time.Second,
		ReconnectMaxTimeout:  30 * time.Second,
		MaxReconnectAttempts: 8,
		ArchiveFetchTimeout:  30 * time.Second,
	}
}

// ConnectionManager owns exactly one ingestion mode for the session: a live
// incremental event stream, or a one-shot read-only archive snapshot. The
// mode is chosen at construction and never changes.
//
// Status transitions in live mode:
//
//	disconnected -> connecting -> connected
//	connected -> reconnecting on transport loss
//	reconnecting -> connected on success
//	reconnecting -> error after the bounded retry budget is exhausted
//	any -> error on a protocol-level fatal rejection (auth failure)
//
// Archive mode runs disconnected -> connecting -> connected (terminal) or
// -> error on a fetch/parse failure, and never reconnects.
type ConnectionManager struct {
	ctx    context.Context
	cancel context.CancelFunc

	mode       ConnectionMode
	registry   *PathRegistry
	reconciler *Reconciler
	settings   *ConnectionSettings

	liveUrl string
	auth    *SessionAuth

	stateLock sync.Mutex
	status    ConnectionStatus
}

func newConnectionManager(
	ctx context.Context,
	mode ConnectionMode,
	registry *PathRegistry,
	reconciler *Reconciler,
	settings *ConnectionSettings,
) *ConnectionManager {
	cancelCtx, cancel := context.WithCancel(ctx)
	connection := &ConnectionManager{
		ctx:        cancelCtx,
		cancel:     cancel,
		mode:       mode,
		registry:   registry,
		reconciler: reconciler,
		settings:   settings,
		status:     StatusDisconnected,
	}
	registry.Set(PathMode, mode)
	registry.Set(PathConnectionStatus, StatusDisconnected)
	return connection
}

// NewLiveConnection starts the live websocket ingestion loop. The returned
// manager begins in `StatusDisconnected` and moves to `StatusConnecting`
// immediately.
func NewLiveConnection(
	ctx context.Context,
	liveUrl string,
	auth *SessionAuth,
	registry *PathRegistry,
	reconciler *Reconciler,
	settings *ConnectionSettings,
) *ConnectionManager {
	connection := newConnectionManager(ctx, ModeLive, registry, reconciler, settings)
	connection.liveUrl = liveUrl
	connection.auth = auth
	go connection.run()
	return connection
}

func (self *ConnectionManager) Mode() ConnectionMode {
	return self.mode
}

func (self *ConnectionManager) ConnectionStatus() ConnectionStatus {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.status
}

// IsReadonly is true whenever the session cannot issue mutations: always in
// archive mode, and in live mode whenever the stream is not connected.
func (self *ConnectionManager) IsReadonly() bool {
	if self.mode == ModeArchive {
		return true
	}
	return self.ConnectionStatus() != StatusConnected
}

func (self *ConnectionManager) Close() {
	self.cancel()
}

func (self *ConnectionManager) setStatus(status ConnectionStatus) {
	changed := false
	func() {
		self.stateLock.Lock()
		defer self.stateLock.Unlock()
		if self.status != status {
			self.status = status
			changed = true
		}
	}()
	if changed {
		glog.V(LogVStatus).Infof("[conn]%s\n", status)
		self.registry.Set(PathConnectionStatus, status)
	}
}
