// Package httpapi provides the WebSocket stream endpoint.
// This file contains the upgrade handler that pushes records as JSON frames.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vnykmshr/topiclog/internal/broker"
	"github.com/vnykmshr/topiclog/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleStream upgrades to WebSocket and pushes every record after the
// client's cursor as a JSON text frame until the client disconnects or the
// stream fails. Failures are reported in the close frame.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	cur, err := cursorFromQuery(r.PathValue("topic"), r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}

	// Reject unauthorized or out-of-range cursors before upgrading so the
	// client gets a regular HTTP error.
	if _, _, err := s.reg.PollMax(r.Context(), cur, 0, 1); err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.opts.Logger.Warn("websocket upgrade failed", logging.F("error", err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The reader only watches for the client going away.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.opts.Logger.Debug("stream opened",
		logging.F("topic", cur.TopicID),
		logging.F("subscriber", cur.SubscriberID),
		logging.F("cursor", cur.Offset),
	)

	cur, err = s.reg.Stream(ctx, cur, func(rec broker.Record) error {
		_ = conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
		return conn.WriteJSON(newRecordJSON(rec))
	})

	code, reason := closeFrameFor(err)
	deadline := time.Now().Add(s.opts.WriteTimeout)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = conn.Close()
	<-readerDone

	s.opts.Logger.Debug("stream closed",
		logging.F("topic", cur.TopicID),
		logging.F("subscriber", cur.SubscriberID),
		logging.F("cursor", cur.Offset),
		logging.F("reason", reason),
	)
}

func closeFrameFor(err error) (int, string) {
	if err == nil || errors.Is(err, context.Canceled) {
		return websocket.CloseNormalClosure, ""
	}

	he := toHTTPError(err)
	code := websocket.CloseInternalServerErr
	switch he.Status {
	case http.StatusForbidden:
		code = websocket.ClosePolicyViolation
	case http.StatusNotFound, http.StatusRequestedRangeNotSatisfiable, http.StatusServiceUnavailable:
		code = websocket.CloseGoingAway
	}

	return code, he.Code
}
