// Package httpapi provides publish and long-poll handlers.
// This file contains the message endpoints and their wire types.
package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/vnykmshr/topiclog/internal/broker"
)

type publishRequest struct {
	ProducerID string `json:"producer_id"`
	Payload    []byte `json:"payload"`
}

type publishResponse struct {
	Offset int64 `json:"offset"`
}

// recordJSON is the wire form of a record. Payload is base64 encoded.
type recordJSON struct {
	Offset     int64     `json:"offset"`
	Payload    []byte    `json:"payload"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func newRecordJSON(rec broker.Record) recordJSON {
	return recordJSON{
		Offset:     rec.Offset,
		Payload:    rec.Payload,
		EnqueuedAt: rec.EnqueuedAt,
	}
}

type pollResponse struct {
	Records    []recordJSON `json:"records"`
	NextCursor int64        `json:"next_cursor"`
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ProducerID == "" {
		writeError(w, errBadRequest.withMessage("producer_id is required"))
		return
	}

	offset, err := s.reg.Publish(r.PathValue("topic"), req.ProducerID, req.Payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, publishResponse{Offset: offset})
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	cur, err := cursorFromQuery(r.PathValue("topic"), q)
	if err != nil {
		writeError(w, err)
		return
	}

	timeout, err := s.pollTimeout(q.Get("timeout"))
	if err != nil {
		writeError(w, err)
		return
	}

	limit := 0
	if v := q.Get("max"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, errBadRequest.withMessage("max must be a non-negative integer"))
			return
		}
	}

	records, next, err := s.reg.PollMax(r.Context(), cur, timeout, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := pollResponse{
		Records:    make([]recordJSON, len(records)),
		NextCursor: next.Offset,
	}
	for i, rec := range records {
		resp.Records[i] = newRecordJSON(rec)
	}
	writeJSON(w, http.StatusOK, resp)
}

// cursorFromQuery rebuilds the caller's cursor from the subscriber and cursor
// query parameters.
func cursorFromQuery(topicID string, q url.Values) (broker.Cursor, error) {
	sub := q.Get("subscriber")
	if sub == "" {
		return broker.Cursor{}, errBadRequest.withMessage("subscriber is required")
	}

	raw := q.Get("cursor")
	if raw == "" {
		return broker.Cursor{}, errBadRequest.withMessage("cursor is required")
	}
	offset, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || offset < -1 {
		return broker.Cursor{}, errBadRequest.withMessage("cursor must be an integer >= -1")
	}

	return broker.Cursor{TopicID: topicID, SubscriberID: sub, Offset: offset}, nil
}

// pollTimeout parses a Go duration, applying the default and the cap.
// A negative value asks to wait forever and is subject to the cap.
func (s *Server) pollTimeout(raw string) (time.Duration, error) {
	timeout := s.opts.PollTimeout
	if raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return 0, errBadRequest.withMessage("timeout must be a duration such as 5s")
		}
		timeout = d
	}

	if limit := s.opts.MaxPollTimeout; limit > 0 && (timeout < 0 || timeout > limit) {
		timeout = limit
	}
	if timeout < 0 {
		timeout = broker.WaitForever
	}

	return timeout, nil
}
