package board

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

// fatalConnectError marks a protocol-level rejection that must not be
// retried (e.g. auth failure).
type fatalConnectError struct {
	err error
}

func (self *fatalConnectError) Error() string {
	return self.err.Error()
}

func (self *ConnectionManager) run() {
	defer func() {
		self.cancel()
	}()

	attempt := 0
	connectedOnce := false
	for {
		// reconnecting is only reachable from a previously connected
		// session. retries before the first success stay in connecting.
		if connectedOnce {
			self.setStatus(StatusReconnecting)
		} else {
			self.setStatus(StatusConnecting)
		}

		ws, err := self.connect()
		if err != nil {
			fatal := &fatalConnectError{}
			if errors.As(err, &fatal) {
				glog.Infof("[conn]fatal = %s\n", err)
				self.setStatus(StatusError)
				return
			}
			glog.Infof("[conn]connect error = %s\n", err)
			attempt += 1
			if self.settings.MaxReconnectAttempts <= attempt {
				glog.Infof("[conn]reconnect budget exhausted\n")
				self.setStatus(StatusError)
				return
			}
			reconnect := NewReconnect(reconnectBackoff(
				attempt,
				self.settings.ReconnectMinTimeout,
				self.settings.ReconnectMaxTimeout,
			))
			select {
			case <-self.ctx.Done():
				self.setStatus(StatusDisconnected)
				return
			case <-reconnect.After():
				continue
			}
		}

		// the store is seeded. incremental events can be trusted now.
		attempt = 0
		connectedOnce = true
		self.setStatus(StatusConnected)

		err = self.handle(ws)
		ws.Close()
		if err != nil {
			fatal := &fatalConnectError{}
			if errors.As(err, &fatal) {
				glog.Infof("[conn]fatal = %s\n", err)
				self.setStatus(StatusError)
				return
			}
			glog.Infof("[conn]transport loss = %s\n", err)
		}

		select {
		case <-self.ctx.Done():
			self.setStatus(StatusDisconnected)
			return
		default:
		}
		attempt = 1
	}
}

// connect dials the live endpoint, requests a full resync, and applies the
// seed snapshot. The websocket is returned only after the store is seeded.
func (self *ConnectionManager) connect() (*websocket.Conn, error) {
	dialer := &websocket.Dialer{
		HandshakeTimeout: self.settings.WsHandshakeTimeout,
	}
	header := http.Header{}
	if self.auth != nil {
		if self.auth.ByJwt != "" {
			header.Add("Authorization", fmt.Sprintf("Bearer %s", self.auth.ByJwt))
		}
		if self.auth.AppVersion != "" {
			header.Add("X-App-Version", self.auth.AppVersion)
		}
	}

	ws, response, err := dialer.DialContext(self.ctx, self.liveUrl, header)
	if err != nil {
		if response != nil {
			switch response.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				return nil, &fatalConnectError{
					err: fmt.Errorf("auth rejected: %s", response.Status),
				}
			}
		}
		return nil, err
	}

	success := false
	defer func() {
		if !success {
			ws.Close()
		}
	}()

	ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
	if err := ws.WriteJSON(&resyncRequest{Type: resyncRequestType}); err != nil {
		return nil, err
	}

	// wait for the seed snapshot. incremental events that race ahead of the
	// seed are dropped since the store cannot apply them consistently yet.
	seedDeadline := time.Now().Add(self.settings.SeedTimeout)
	for {
		ws.SetReadDeadline(seedDeadline)
		messageType, message, err := ws.ReadMessage()
		if err != nil {
			if closeErr := asPolicyClose(err); closeErr != nil {
				return nil, &fatalConnectError{err: closeErr}
			}
			return nil, err
		}
		switch messageType {
		case websocket.TextMessage, websocket.BinaryMessage:
			event, err := ParseEvent(message)
			if err != nil {
				glog.Infof("[conn]drop pre-seed event = %s\n", err)
				continue
			}
			if event.Type != EventTypeSnapshot {
				glog.V(LogVTrace).Infof("[conn]drop pre-seed %s\n", event.Type)
				continue
			}
			self.reconciler.Apply(event)
			success = true
			return ws, nil
		}
	}
}

// handle reads and applies incremental events until transport loss or
// shutdown.
func (self *ConnectionManager) handle(ws *websocket.Conn) error {
	handleCtx, handleCancel := context.WithCancel(self.ctx)
	defer handleCancel()

	// pong control frames are consumed inside ReadMessage without
	// returning, so this handler is the only place an idle connection's
	// read deadline gets refreshed
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))
	})

	// keepalive
	go func() {
		defer handleCancel()
		for {
			select {
			case <-handleCtx.Done():
				return
			case <-time.After(self.settings.PingTimeout):
				ws.SetWriteDeadline(time.Now().Add(self.settings.WriteTimeout))
				if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
					// a websocket deadline timeout cannot be recovered
					return
				}
			}
		}
	}()

	for {
		select {
		case <-handleCtx.Done():
			return nil
		default:
		}

		ws.SetReadDeadline(time.Now().Add(self.settings.ReadTimeout))
		messageType, message, err := ws.ReadMessage()
		if err != nil {
			if closeErr := asPolicyClose(err); closeErr != nil {
				return &fatalConnectError{err: closeErr}
			}
			return err
		}

		switch messageType {
		case websocket.TextMessage, websocket.BinaryMessage:
			event, err := ParseEvent(message)
			if err != nil {
				glog.Infof("[conn]drop event = %s\n", err)
				continue
			}
			self.reconciler.Apply(event)
			glog.V(LogVTrace).Infof("[conn]<-%s\n", event.Type)
		}
	}
}

// asPolicyClose returns the close error when the server closed the
// connection with a policy violation, which signals a fatal protocol-level
// rejection.
func asPolicyClose(err error) error {
	closeErr := &websocket.CloseError{}
	if errors.As(err, &closeErr) {
		if closeErr.Code == websocket.ClosePolicyViolation {
			return closeErr
		}
	}
	return nil
}
